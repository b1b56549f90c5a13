// Package storage holds the SQL shared by the SQLite and PostgreSQL stores.
package storage

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mindbreaker/mindbreaker/internal/domain"
	"github.com/mindbreaker/mindbreaker/internal/validation"
)

// Placeholder renders the n-th (1-based) bind parameter of a dialect
type Placeholder func(n int) string

// Question renders SQLite placeholders
func Question(int) string { return "?" }

// Dollar renders PostgreSQL placeholders
func Dollar(n int) string { return "$" + strconv.Itoa(n) }

// UpdateEntity builds the conditional UPDATE behind validation.Tx.UpdateEntity.
// The WHERE clause pins the expected status, validated flag and, for quests,
// the presence of a draft, so a concurrent transition matches zero rows.
func UpdateEntity(ph Placeholder, t domain.EntityType, id uuid.UUID, expect validation.Expect, set map[string]any, now time.Time) (string, []any, error) {
	cols := make([]string, 0, len(set))
	for col := range set {
		if col == "id" || col == "updated_at" {
			return "", nil, fmt.Errorf("column %s is not writable", col)
		}
		if _, ok := domain.ColumnOf(t, col); !ok {
			return "", nil, fmt.Errorf("unknown column %s.%s", t.Table(), col)
		}
		cols = append(cols, col)
	}
	slices.Sort(cols)

	var (
		b    strings.Builder
		args []any
	)
	bind := func(v any) string {
		args = append(args, v)
		return ph(len(args))
	}

	fmt.Fprintf(&b, "UPDATE %s SET ", t.Table())
	for _, col := range cols {
		v := set[col]
		if kind, _ := domain.ColumnOf(t, col); kind == domain.KindJSON && v != nil {
			data, err := json.Marshal(v)
			if err != nil {
				return "", nil, fmt.Errorf("encode %s: %w", col, err)
			}
			v = data
		}
		fmt.Fprintf(&b, "%s = %s, ", col, bind(v))
	}
	fmt.Fprintf(&b, "updated_at = %s", bind(now))
	fmt.Fprintf(&b, " WHERE id = %s AND status = %s AND is_validated = %s",
		bind(id), bind(string(expect.Status)), bind(expect.IsValidated))

	if t == domain.EntityQuest {
		if expect.HasDraft {
			b.WriteString(" AND draft_data IS NOT NULL")
		} else {
			b.WriteString(" AND draft_data IS NULL")
		}
	}
	return b.String(), args, nil
}

// DropCollisions builds the DELETE that removes user-scoped reference rows
// which would duplicate a row already pointing at the merge target.
// Dropping a quest_progress row leaves the user's earned XP untouched.
func DropCollisions(ph Placeholder, ref domain.Reference) string {
	return fmt.Sprintf(
		"DELETE FROM %[1]s WHERE %[2]s = %[3]s AND user_id IN (SELECT user_id FROM %[1]s WHERE %[2]s = %[4]s)",
		ref.Table, ref.Column, ph(1), ph(2))
}

// Reassign builds the UPDATE that points reference rows at a new record.
// Its parameters are (to, from).
func Reassign(ph Placeholder, ref domain.Reference) string {
	return fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s = %s",
		ref.Table, ref.Column, ph(1), ref.Column, ph(2))
}

// PendingFilter is the WHERE clause selecting records awaiting review
func PendingFilter(t domain.EntityType) string {
	if t == domain.EntityQuest {
		return "(status = 'published' AND NOT is_validated) OR draft_data IS NOT NULL"
	}
	return "status = 'published' AND NOT is_validated"
}
