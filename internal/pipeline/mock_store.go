package pipeline

import (
	"context"
	"sort"
	"time"
)

// MockStore implements Store with in-memory storage. It honours the same
// semantics as the PostgreSQL store: append-at-end stage creation, delete
// re-compaction, conflict on deleting a referenced stage and all-or-nothing
// reordering, so service tests exercise real invariants.
type MockStore struct {
	stages []Stage
	apps   []Application
	events map[string][]StatusEvent
	users  []User

	// ReorderErr, when set, rejects the next reorder submission without
	// applying it. Used to test optimistic-revert behavior.
	ReorderErr error
}

// NewMockStore returns an empty in-memory store.
func NewMockStore() *MockStore {
	return &MockStore{events: make(map[string][]StatusEvent)}
}

// SeedUsers loads users for assignment lookups.
func (m *MockStore) SeedUsers(users ...User) {
	m.users = append(m.users, users...)
}

func (m *MockStore) ListStages(ctx context.Context) ([]Stage, error) {
	out := make([]Stage, len(m.stages))
	copy(out, m.stages)
	sort.Slice(out, func(i, j int) bool { return out[i].OrderSequence < out[j].OrderSequence })
	return out, nil
}

func (m *MockStore) GetStage(ctx context.Context, id string) (Stage, error) {
	for _, s := range m.stages {
		if s.ID == id {
			return s, nil
		}
	}
	return Stage{}, ErrNotFound
}

func (m *MockStore) CreateStage(ctx context.Context, s Stage) (Stage, error) {
	s.OrderSequence = len(m.stages)
	m.stages = append(m.stages, s)
	return s, nil
}

func (m *MockStore) UpdateStage(ctx context.Context, id, name, description string) (Stage, error) {
	for i, s := range m.stages {
		if s.ID == id {
			m.stages[i].Name = name
			m.stages[i].Description = description
			m.stages[i].UpdatedAt = time.Now().UTC()
			return m.stages[i], nil
		}
	}
	return Stage{}, ErrNotFound
}

func (m *MockStore) DeleteStage(ctx context.Context, id string) error {
	idx := -1
	for i, s := range m.stages {
		if s.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrNotFound
	}
	for _, a := range m.apps {
		if a.CurrentStatusID == id {
			return ErrConflict
		}
	}

	removed := m.stages[idx]
	m.stages = append(m.stages[:idx], m.stages[idx+1:]...)
	for i := range m.stages {
		if m.stages[i].OrderSequence > removed.OrderSequence {
			m.stages[i].OrderSequence--
		}
	}
	return nil
}

func (m *MockStore) ReorderStages(ctx context.Context, items []StageOrder) ([]Stage, error) {
	if m.ReorderErr != nil {
		err := m.ReorderErr
		m.ReorderErr = nil
		return nil, err
	}
	for _, it := range items {
		found := false
		for i := range m.stages {
			if m.stages[i].ID == it.ID {
				m.stages[i].OrderSequence = it.OrderSequence
				found = true
				break
			}
		}
		if !found {
			return nil, ErrNotFound
		}
	}
	return m.ListStages(ctx)
}

func (m *MockStore) ListApplications(ctx context.Context) ([]Application, error) {
	out := make([]Application, len(m.apps))
	copy(out, m.apps)
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	for i := range out {
		out[i].CurrentStatusDetails = m.stageDetails(out[i].CurrentStatusID)
		out[i].StatusHistory = nil
	}
	return out, nil
}

func (m *MockStore) GetApplication(ctx context.Context, id string) (Application, error) {
	for _, a := range m.apps {
		if a.ID == id {
			a.CurrentStatusDetails = m.stageDetails(a.CurrentStatusID)
			history := make([]StatusEvent, len(m.events[id]))
			copy(history, m.events[id])
			a.StatusHistory = history
			return a, nil
		}
	}
	return Application{}, ErrNotFound
}

func (m *MockStore) CreateApplication(ctx context.Context, app Application, initial StatusEvent) (Application, error) {
	m.apps = append(m.apps, app)
	m.events[app.ID] = append(m.events[app.ID], initial)
	return m.GetApplication(ctx, app.ID)
}

func (m *MockStore) ApplyStatusUpdate(ctx context.Context, appID, statusID, assignedUserID string, ev StatusEvent) (Application, error) {
	for i := range m.apps {
		if m.apps[i].ID == appID {
			m.apps[i].CurrentStatusID = statusID
			m.apps[i].AssignedUserID = assignedUserID
			m.apps[i].UpdatedAt = time.Now().UTC()
			m.events[appID] = append(m.events[appID], ev)
			return m.GetApplication(ctx, appID)
		}
	}
	return Application{}, ErrNotFound
}

func (m *MockStore) ListUsers(ctx context.Context) ([]User, error) {
	out := make([]User, len(m.users))
	copy(out, m.users)
	return out, nil
}

func (m *MockStore) GetUser(ctx context.Context, id string) (User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *MockStore) stageDetails(id string) *Stage {
	for _, s := range m.stages {
		if s.ID == id {
			detail := s
			return &detail
		}
	}
	return nil
}
