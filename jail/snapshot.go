package jail

import (
	"encoding/json"
	"fmt"
)

// RoleIDs is the list of roles a member held before being jailed.
// It decodes both string and numeric IDs, so files written with numeric IDs still load.
type RoleIDs []string

// UnmarshalJSON implements json.Unmarshaler.
func (r *RoleIDs) UnmarshalJSON(b []byte) error {
	var raw []json.Number
	if err := json.Unmarshal(b, &raw); err == nil {
		ids := make(RoleIDs, 0, len(raw))
		for _, n := range raw {
			ids = append(ids, n.String())
		}
		*r = ids
		return nil
	}

	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return fmt.Errorf("role IDs must be strings or integers: %w", err)
	}
	*r = ids
	return nil
}

// Snapshots maps a jailed member's user ID to the roles to restore.
type Snapshots map[string]RoleIDs

// Store loads and atomically updates Snapshots. *store.JSONFile[Snapshots] satisfies this interface.
type Store interface {
	Load() (Snapshots, error)
	Update(fn func(*Snapshots) error) (Snapshots, error)
}
