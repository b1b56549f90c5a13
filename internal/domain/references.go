package domain

// Reference is a foreign-key column that points at a validatable record.
// UserScoped references have a (user_id, column) uniqueness constraint, so
// rows that would collide with the merge target are dropped first.
type Reference struct {
	Table      string
	Column     string
	UserScoped bool
}

var references = map[EntityType][]Reference{
	EntityOrganization: {
		{Table: "quests", Column: "organization_id"},
		{Table: "expeditions", Column: "organization_id"},
	},
	EntityQuest: {
		{Table: "quest_progress", Column: "quest_id", UserScoped: true},
		{Table: "saved_quests", Column: "quest_id", UserScoped: true},
		{Table: "quest_exercises", Column: "quest_id"},
	},
	EntityExpedition: {
		{Table: "quests", Column: "expedition_id"},
		{Table: "saved_expeditions", Column: "expedition_id", UserScoped: true},
	},
}

// ReferencesTo returns the columns that must be rewritten when a record of
// type t is merged into another.
func ReferencesTo(t EntityType) []Reference {
	return references[t]
}
