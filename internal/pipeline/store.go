package pipeline

import "context"

// Store defines the persistence operations the pipeline services need.
// internal/store provides the PostgreSQL implementation; MockStore is the
// in-memory implementation used by tests.
type Store interface {
	// Stage operations
	ListStages(ctx context.Context) ([]Stage, error)
	GetStage(ctx context.Context, id string) (Stage, error)
	CreateStage(ctx context.Context, s Stage) (Stage, error)
	UpdateStage(ctx context.Context, id, name, description string) (Stage, error)
	DeleteStage(ctx context.Context, id string) error
	ReorderStages(ctx context.Context, items []StageOrder) ([]Stage, error)

	// Application operations
	ListApplications(ctx context.Context) ([]Application, error)
	GetApplication(ctx context.Context, id string) (Application, error)
	CreateApplication(ctx context.Context, app Application, initial StatusEvent) (Application, error)
	ApplyStatusUpdate(ctx context.Context, appID, statusID, assignedUserID string, ev StatusEvent) (Application, error)

	// User operations
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id string) (User, error)
}
