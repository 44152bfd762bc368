package store

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"foodshare/internal/docstore"
	"foodshare/pkg/types"
)

// Backends hand values back in their own shapes: Firestore returns int64 and
// time.Time, the jsonb backend returns float64 and RFC 3339 strings. These
// readers accept both and treat null like an absent field.

func corrupt(field string, value any) error {
	return fmt.Errorf("%w: field %q has unexpected value %v (%T)", types.ErrCorruptDocument, field, value, value)
}

func readString(f docstore.Fields, field string) (string, error) {
	value, ok := f[field]
	if !ok || value == nil {
		return "", nil
	}

	s, ok := value.(string)
	if !ok {
		return "", corrupt(field, value)
	}
	return s, nil
}

func readOptionalString(f docstore.Fields, field string) (*string, error) {
	value, ok := f[field]
	if !ok || value == nil {
		return nil, nil
	}

	s, ok := value.(string)
	if !ok {
		return nil, corrupt(field, value)
	}
	return &s, nil
}

func readBool(f docstore.Fields, field string) (bool, error) {
	value, ok := f[field]
	if !ok || value == nil {
		return false, nil
	}

	b, ok := value.(bool)
	if !ok {
		return false, corrupt(field, value)
	}
	return b, nil
}

func readInt64(f docstore.Fields, field string) (int64, error) {
	value, ok := f[field]
	if !ok || value == nil {
		return 0, nil
	}

	switch n := value.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, corrupt(field, value)
		}
		return int64(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, corrupt(field, value)
		}
		return i, nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, corrupt(field, value)
		}
		return i, nil
	}

	return 0, corrupt(field, value)
}

func readOptionalTime(f docstore.Fields, field string) (*time.Time, error) {
	value, ok := f[field]
	if !ok || value == nil {
		return nil, nil
	}

	switch t := value.(type) {
	case time.Time:
		return &t, nil
	case *time.Time:
		return t, nil
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return nil, corrupt(field, value)
		}
		return &parsed, nil
	}

	return nil, corrupt(field, value)
}

func readTime(f docstore.Fields, field string) (time.Time, error) {
	t, err := readOptionalTime(f, field)
	if err != nil || t == nil {
		return time.Time{}, err
	}
	return *t, nil
}

func readMap(f docstore.Fields, field string) (docstore.Fields, error) {
	value, ok := f[field]
	if !ok || value == nil {
		return nil, nil
	}

	switch m := value.(type) {
	case map[string]any:
		return docstore.Fields(m), nil
	case docstore.Fields:
		return m, nil
	}

	return nil, corrupt(field, value)
}

func optionalTimeValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func optionalStringValue(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
