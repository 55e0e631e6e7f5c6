package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Engine is the system of record for an application's position in the
// pipeline. It applies validated stage/assignment/note changes and grows
// the append-only status history, one immutable event per accepted update.
type Engine struct {
	store Store
	cache *StageCache
	rdb   *redis.Client
}

// NewEngine returns an Engine backed by the given store. cache and rdb may
// be nil (tests); caching and event publishing then become no-ops.
func NewEngine(store Store, cache *StageCache, rdb *redis.Client) *Engine {
	return &Engine{store: store, cache: cache, rdb: rdb}
}

// ListApplications returns all applications, newest first.
func (e *Engine) ListApplications(ctx context.Context) ([]Application, error) {
	return e.store.ListApplications(ctx)
}

// GetApplication returns one application with its current-status details
// and full status history in insertion order.
func (e *Engine) GetApplication(ctx context.Context, id string) (Application, error) {
	return e.store.GetApplication(ctx, id)
}

// CreateRequest carries the fields needed to open a new application.
type CreateRequest struct {
	CandidateName  string `json:"candidate_name"`
	CandidateEmail string `json:"candidate_email"`
	JobTitle       string `json:"job_title"`
}

// CreateApplication opens an application at the registry's first stage and
// writes the initial status event, so the history invariant holds from the
// very first read.
func (e *Engine) CreateApplication(ctx context.Context, req CreateRequest) (Application, error) {
	if strings.TrimSpace(req.CandidateName) == "" {
		return Application{}, &ValidationError{Msg: "candidate name must not be empty"}
	}
	if strings.TrimSpace(req.CandidateEmail) == "" {
		return Application{}, &ValidationError{Msg: "candidate email must not be empty"}
	}

	stages, err := e.orderedStages(ctx)
	if err != nil {
		return Application{}, err
	}
	if len(stages) == 0 {
		return Application{}, &ValidationError{Msg: "no pipeline stages configured"}
	}
	first := stages[0]

	now := time.Now().UTC()
	app := Application{
		ID:              uuid.NewString(),
		CandidateName:   strings.TrimSpace(req.CandidateName),
		CandidateEmail:  strings.TrimSpace(req.CandidateEmail),
		JobTitle:        strings.TrimSpace(req.JobTitle),
		CurrentStatusID: first.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	initial := StatusEvent{
		ID:         uuid.NewString(),
		StatusID:   first.ID,
		StatusName: first.Name,
		CreatedAt:  now,
	}

	created, err := e.store.CreateApplication(ctx, app, initial)
	if err != nil {
		return Application{}, fmt.Errorf("create application: %w", err)
	}
	return created, nil
}

// ApplyUpdate applies one validated status/assignment/note change.
//
// A nil StatusID means no stage change; a nil AssignedUserID means no
// assignment change; an AssignedUserID pointing at "" unassigns. A stage
// change must satisfy the forward-transition rule against the registry's
// current ordering. Exactly one status event is appended, capturing the
// resulting stage and assignee with their names snapshotted at event time —
// either the whole update commits or nothing is recorded.
func (e *Engine) ApplyUpdate(ctx context.Context, appID string, p ProposedUpdate) (Application, error) {
	app, err := e.store.GetApplication(ctx, appID)
	if err != nil {
		return Application{}, err
	}

	if !HasChanges(app, p) {
		return Application{}, &ValidationError{Msg: "no changes to apply"}
	}
	upd := BuildUpdate(app, p)

	stages, err := e.orderedStages(ctx)
	if err != nil {
		return Application{}, err
	}

	// Resulting stage: new or unchanged.
	statusID := app.CurrentStatusID
	statusName := ""
	if app.CurrentStatusDetails != nil {
		statusName = app.CurrentStatusDetails.Name
	}
	if upd.StatusID != nil {
		target, ok := findStage(stages, *upd.StatusID)
		if !ok {
			return Application{}, fmt.Errorf("stage %q: %w", *upd.StatusID, ErrNotFound)
		}
		if !ForwardAllowed(stages, app.CurrentStatusID, target.ID) {
			return Application{}, &ValidationError{Msg: "status must be forward-moving"}
		}
		statusID, statusName = target.ID, target.Name
	} else if statusName == "" {
		if current, ok := findStage(stages, statusID); ok {
			statusName = current.Name
		}
	}

	// Resulting assignee: new, cleared, or unchanged.
	assigneeID := app.AssignedUserID
	assigneeName := ""
	if upd.AssignedUserID != nil {
		assigneeID = *upd.AssignedUserID
	}
	if assigneeID != "" {
		user, err := e.store.GetUser(ctx, assigneeID)
		if err != nil {
			return Application{}, fmt.Errorf("assignee %q: %w", assigneeID, err)
		}
		assigneeName = user.Name
	}

	ev := StatusEvent{
		ID:               uuid.NewString(),
		StatusID:         statusID,
		StatusName:       statusName,
		AssignedUserID:   assigneeID,
		AssignedUserName: assigneeName,
		Notes:            upd.Notes,
		CreatedAt:        time.Now().UTC(),
	}

	updated, err := e.store.ApplyStatusUpdate(ctx, appID, statusID, assigneeID, ev)
	if err != nil {
		return Application{}, fmt.Errorf("apply update: %w", err)
	}

	e.publishStatusChanged(ctx, app, updated)
	return updated, nil
}

// ListUsers returns the organization members for the assignment picker.
func (e *Engine) ListUsers(ctx context.Context) ([]User, error) {
	return e.store.ListUsers(ctx)
}

// orderedStages serves the registry ordering from the cache when possible.
func (e *Engine) orderedStages(ctx context.Context) ([]Stage, error) {
	if stages, ok := e.cache.Get(ctx); ok {
		return stages, nil
	}
	stages, err := e.store.ListStages(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	e.cache.Prime(ctx, stages)
	return stages, nil
}

func findStage(stages []Stage, id string) (Stage, bool) {
	for _, s := range stages {
		if s.ID == id {
			return s, true
		}
	}
	return Stage{}, false
}

// publishStatusChanged emits EVENT_STATUS_CHANGED for gateway SSE
// forwarding. Non-fatal.
func (e *Engine) publishStatusChanged(ctx context.Context, before, after Application) {
	if e.rdb == nil {
		return
	}
	event, _ := json.Marshal(map[string]string{
		"type":          "EVENT_STATUS_CHANGED",
		"applicationId": after.ID,
		"from":          before.CurrentStatusID,
		"to":            after.CurrentStatusID,
		"assignedTo":    after.AssignedUserID,
	})
	if err := e.rdb.Publish(ctx, "EVENT_STATUS_CHANGED", event).Err(); err != nil {
		slog.Warn("publish EVENT_STATUS_CHANGED failed", "err", err)
	}
}
