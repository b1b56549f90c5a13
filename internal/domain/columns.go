package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// ColumnKind is the value type stored in a content column
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindInt
	KindBool
	KindUUID
	KindTime
	KindJSON
)

var columns = map[EntityType]map[string]ColumnKind{
	EntityOrganization: {
		"id":           KindUUID,
		"name":         KindText,
		"description":  KindText,
		"website_url":  KindText,
		"status":       KindText,
		"is_validated": KindBool,
		"created_at":   KindTime,
		"updated_at":   KindTime,
	},
	EntityExpedition: {
		"id":              KindUUID,
		"title":           KindText,
		"summary":         KindText,
		"organization_id": KindUUID,
		"author_id":       KindUUID,
		"status":          KindText,
		"is_validated":    KindBool,
		"created_at":      KindTime,
		"updated_at":      KindTime,
	},
	EntityQuest: {
		"id":                KindUUID,
		"title":             KindText,
		"summary":           KindText,
		"description":       KindText,
		"difficulty":        KindText,
		"xp_reward":         KindInt,
		"estimated_minutes": KindInt,
		"organization_id":   KindUUID,
		"expedition_id":     KindUUID,
		"author_id":         KindUUID,
		"status":            KindText,
		"is_validated":      KindBool,
		"draft_data":        KindJSON,
		"edit_reason":       KindText,
		"rejection_reason":  KindText,
		"archived_at":       KindTime,
		"created_at":        KindTime,
		"updated_at":        KindTime,
	},
}

// ColumnOf reports the kind of column col on type t
func ColumnOf(t EntityType, col string) (ColumnKind, bool) {
	kind, ok := columns[t][col]
	return kind, ok
}

// NormalizeValue converts a decoded JSON value into the Go type stored in
// a column of the given kind. nil stays nil.
func NormalizeValue(kind ColumnKind, v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch kind {
	case KindText:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case KindInt:
		switch n := v.(type) {
		case float64:
			if n == math.Trunc(n) {
				return int(n), nil
			}
		case int:
			return n, nil
		case int64:
			return int(n), nil
		}
	case KindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case KindUUID:
		switch id := v.(type) {
		case string:
			parsed, err := uuid.Parse(id)
			if err != nil {
				return nil, fmt.Errorf("invalid uuid %q: %w", id, err)
			}
			return parsed, nil
		case uuid.UUID:
			return id, nil
		}
	case KindTime:
		switch ts := v.(type) {
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, ts)
			if err != nil {
				return nil, fmt.Errorf("invalid timestamp %q: %w", ts, err)
			}
			return parsed, nil
		case time.Time:
			return ts, nil
		}
	case KindJSON:
		return v, nil
	}
	return nil, fmt.Errorf("unexpected %T value", v)
}
