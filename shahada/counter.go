package shahada

import (
	"errors"
	"slices"
)

var (
	// ErrAlreadyRecorded is returned when the member is already counted.
	ErrAlreadyRecorded = errors.New("member is already recorded")

	// ErrNotRecorded is returned when removing a member that was never counted.
	ErrNotRecorded = errors.New("member is not recorded")

	// ErrNothingToRemove is returned when the total is already 0.
	ErrNothingToRemove = errors.New("no shahada counts to remove")
)

// State is the persisted counter. Members holds user IDs in the order they were counted.
// Total may exceed len(Members) after the counter was set by hand.
type State struct {
	Total   int      `json:"total"`
	Members []string `json:"members"`
}

// Store loads and atomically updates the State. *store.JSONFile[State] satisfies this interface.
type Store interface {
	Load() (State, error)
	Update(fn func(*State) error) (State, error)
}

// Counter owns the shahada counter.
type Counter struct {
	store Store
}

// NewCounter returns a Counter backed by store.
func NewCounter(store Store) *Counter {
	return &Counter{store: store}
}

// Set overwrites the total and forgets the recorded members.
func (c *Counter) Set(total int) (State, error) {
	return c.store.Update(func(s *State) error {
		s.Total = total
		s.Members = []string{}
		return nil
	})
}

// Add counts the member once.
func (c *Counter) Add(userID string) (State, error) {
	return c.store.Update(func(s *State) error {
		if slices.Contains(s.Members, userID) {
			return ErrAlreadyRecorded
		}
		s.Total++
		s.Members = append(s.Members, userID)
		return nil
	})
}

// Remove uncounts the member.
func (c *Counter) Remove(userID string) (State, error) {
	return c.store.Update(func(s *State) error {
		i := slices.Index(s.Members, userID)
		if i < 0 {
			return ErrNotRecorded
		}
		if s.Total <= 0 {
			return ErrNothingToRemove
		}
		s.Total--
		s.Members = slices.Delete(s.Members, i, i+1)
		return nil
	})
}

// State returns the current counter.
func (c *Counter) State() (State, error) {
	return c.store.Load()
}
