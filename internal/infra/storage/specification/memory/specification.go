// Package memory provides in-memory specification storage for tests and
// database-less runs.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aegis-tests/orchestrator/internal/domain/specification"
)

var (
	_ specification.Repository     = (*SpecificationStore)(nil)
	_ specification.APICallCatalog = (*APICallStore)(nil)
)

// SpecificationStore is a thread-safe in-memory specification.Repository.
// It stores snapshots so callers cannot mutate persisted state through the
// pointers they hold.
type SpecificationStore struct {
	mu     sync.Mutex
	nextID int64
	specs  map[int64]specification.ReconstructParams
}

// NewSpecificationStore creates an empty store.
func NewSpecificationStore() *SpecificationStore {
	return &SpecificationStore{specs: make(map[int64]specification.ReconstructParams)}
}

// CreateSpecification stores a snapshot of spec and assigns the next ID.
func (s *SpecificationStore) CreateSpecification(ctx context.Context, spec *specification.Specification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	if err := spec.AssignID(s.nextID); err != nil {
		s.nextID--
		return err
	}
	s.specs[spec.ID()] = snapshot(spec)

	return nil
}

// GetSpecification returns a fresh copy of the stored specification.
func (s *SpecificationStore) GetSpecification(ctx context.Context, id int64) (*specification.Specification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.specs[id]
	if !ok {
		return nil, specification.ErrSpecificationNotFound
	}
	return specification.ReconstructSpecification(p), nil
}

// UpdateStatus applies a compare-and-set on the stored status.
func (s *SpecificationStore) UpdateStatus(ctx context.Context, id int64, from, to specification.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.specs[id]
	if !ok {
		return specification.ErrSpecificationNotFound
	}
	if p.Status != from {
		return specification.ErrStatusConflict
	}

	p.Status = to
	p.UpdatedAt = time.Now().UTC()
	s.specs[id] = p

	return nil
}

func snapshot(spec *specification.Specification) specification.ReconstructParams {
	p := specification.ReconstructParams{
		ID:                      spec.ID(),
		TestProjectID:           spec.TestProjectID(),
		Title:                   spec.Title(),
		Description:             spec.Description(),
		InputType:               spec.InputType(),
		Method:                  spec.Method(),
		Path:                    spec.Path(),
		TestObjective:           spec.TestObjective(),
		RequestExample:          spec.RequestExample(),
		RequiresAuth:            spec.RequiresAuth(),
		ApproveBeforeGeneration: spec.ApproveBeforeGeneration(),
		AuthProfileID:           copyInt64(spec.AuthProfileID()),
		APICallID:               copyInt64(spec.APICallID()),
		TagIDs:                  spec.TagIDs(),
		Status:                  spec.Status(),
		CreatedBy:               spec.CreatedBy(),
		CreatedAt:               spec.CreatedAt(),
		UpdatedAt:               spec.UpdatedAt(),
	}
	if call := spec.APICall(); call != nil {
		c := *call
		p.APICall = &c
	}
	return p
}

func copyInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

// APICallStore is a thread-safe in-memory specification.APICallCatalog.
type APICallStore struct {
	mu     sync.RWMutex
	nextID int64
	calls  map[int64]specification.APICall
}

// NewAPICallStore creates an empty catalog.
func NewAPICallStore() *APICallStore {
	return &APICallStore{calls: make(map[int64]specification.APICall)}
}

// CreateAPICall stores call and sets its ID.
func (s *APICallStore) CreateAPICall(ctx context.Context, call *specification.APICall) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	call.ID = s.nextID
	s.calls[call.ID] = *call

	return nil
}

// GetAPICall returns a copy of the cataloged call.
func (s *APICallStore) GetAPICall(ctx context.Context, id int64) (*specification.APICall, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	call, ok := s.calls[id]
	if !ok {
		return nil, specification.ErrAPICallNotFound
	}
	return &call, nil
}
