package workspaces

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"
)

// Sequence is the ordered list of prompt ids a workspace executes. It holds
// no duplicates and, once stored, only ids associated with the workspace.
// It is persisted as a JSON array.
type Sequence []int64

// Contains reports whether id is in the sequence.
func (s Sequence) Contains(id int64) bool {
	return slices.Contains(s, id)
}

// Append returns s with id added at the end.
func (s Sequence) Append(id int64) (Sequence, error) {
	if s.Contains(id) {
		return s, fmt.Errorf("%w: %d", ErrDuplicatePrompt, id)
	}
	return append(slices.Clone(s), id), nil
}

// Remove returns s without id. Removing an absent id is a no-op.
func (s Sequence) Remove(id int64) Sequence {
	return slices.DeleteFunc(slices.Clone(s), func(v int64) bool { return v == id })
}

// Reorder validates ids as a replacement sequence: it must be non-empty,
// free of duplicates, and drawn from associated.
func Reorder(ids []int64, associated []int64) (Sequence, error) {
	if len(ids) == 0 {
		return nil, ErrEmptySequence
	}

	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicatePrompt, id)
		}
		seen[id] = struct{}{}

		if !slices.Contains(associated, id) {
			return nil, fmt.Errorf("%w: %d", ErrNotAssociated, id)
		}
	}

	return slices.Clone(ids), nil
}

// Value encodes the sequence as a JSON array. A nil sequence encodes as [].
func (s Sequence) Value() (driver.Value, error) {
	if s == nil {
		s = Sequence{}
	}
	b, err := json.Marshal([]int64(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan decodes a JSON array column. NULL scans as an empty sequence.
func (s *Sequence) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = Sequence{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan sequence: unsupported type %T", src)
	}

	var ids []int64
	if err := json.Unmarshal(raw, &ids); err != nil {
		return fmt.Errorf("scan sequence: %w", err)
	}
	if ids == nil {
		ids = []int64{}
	}
	*s = ids
	return nil
}
