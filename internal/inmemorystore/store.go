package inmemorystore

import (
	"context"
	"fmt"
	"sync"
)

// Status is the lifecycle state of an ensemble member.
type Status int

const (
	Pending Status = iota
	Running
	Completed
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Store is an in-memory member state store.
//
// The store maintains three independent sync.Maps:
//   - states: member number to Status
//   - outputs: member number to its collected output
//   - errors: member number to the error of a failed member
type Store struct {
	states  sync.Map
	outputs sync.Map
	errors  sync.Map
}

// New creates a new, empty member store.
func New() *Store {
	return &Store{}
}

// SetStatus updates the status of a member.
func (s *Store) SetStatus(ctx context.Context, member int, status Status) error {
	s.states.Store(member, status)
	return nil
}

// GetStatus returns the status of a member, Pending if none was set.
func (s *Store) GetStatus(ctx context.Context, member int) (Status, error) {
	status, ok := s.states.Load(member)
	if !ok {
		return Pending, nil
	}
	return status.(Status), nil
}

// SetOutput records the output of a completed member.
func (s *Store) SetOutput(ctx context.Context, member int, output any) error {
	s.outputs.Store(member, output)
	return nil
}

// GetOutput returns the output of a member, nil if none was recorded.
func (s *Store) GetOutput(ctx context.Context, member int) (any, error) {
	output, ok := s.outputs.Load(member)
	if !ok {
		return nil, nil
	}
	return output, nil
}

// SetError records the error of a failed member.
func (s *Store) SetError(ctx context.Context, member int, memberErr error) error {
	s.errors.Store(member, memberErr)
	return nil
}

// GetError returns the error of a member, nil if none was recorded.
func (s *Store) GetError(ctx context.Context, member int) (error, error) {
	err, ok := s.errors.Load(member)
	if !ok {
		return nil, nil
	}
	return err.(error), nil
}

// Counts returns the number of members in every status that was set at
// least once.
func (s *Store) Counts() map[Status]int {
	counts := make(map[Status]int)
	s.states.Range(func(_, v any) bool {
		counts[v.(Status)]++
		return true
	})
	return counts
}
