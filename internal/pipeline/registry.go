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

// Placeholder values used when the add-stage button posts an empty body.
const (
	placeholderStageName        = "New Stage"
	placeholderStageDescription = "Stage description"
)

// Registry owns the ordered list of pipeline stage definitions. All
// mutating operations require the Administrator role and are attempted
// once; on failure the caller reverts any optimistic local state.
type Registry struct {
	store Store
	cache *StageCache
	rdb   *redis.Client
}

// NewRegistry returns a Registry backed by the given store. cache and rdb
// may be nil (tests); caching and event publishing then become no-ops.
func NewRegistry(store Store, cache *StageCache, rdb *redis.Client) *Registry {
	return &Registry{store: store, cache: cache, rdb: rdb}
}

// ListStages returns stages sorted by order_sequence ascending, serving
// from the cache when possible.
func (r *Registry) ListStages(ctx context.Context) ([]Stage, error) {
	if stages, ok := r.cache.Get(ctx); ok {
		return stages, nil
	}
	stages, err := r.store.ListStages(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	r.cache.Prime(ctx, stages)
	return stages, nil
}

// AddStage appends a new stage at the end of the pipeline. Empty inputs
// default to the placeholder name/description the stage-config screen posts
// for its "add" button; a provided-but-blank field is a validation error.
func (r *Registry) AddStage(ctx context.Context, actor Actor, name, description string) (Stage, error) {
	if err := requireAdmin(actor); err != nil {
		return Stage{}, err
	}
	if name == "" && description == "" {
		name, description = placeholderStageName, placeholderStageDescription
	}
	if err := ValidateStageInput(name, description); err != nil {
		return Stage{}, err
	}

	now := time.Now().UTC()
	created, err := r.store.CreateStage(ctx, Stage{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Stage{}, fmt.Errorf("add stage: %w", err)
	}

	r.afterMutation(ctx, actor, "created", created.ID)
	return created, nil
}

// RenameStage updates a stage's name and description in place.
func (r *Registry) RenameStage(ctx context.Context, actor Actor, id, name, description string) (Stage, error) {
	if err := requireAdmin(actor); err != nil {
		return Stage{}, err
	}
	if err := ValidateStageInput(name, description); err != nil {
		return Stage{}, err
	}

	updated, err := r.store.UpdateStage(ctx, id, strings.TrimSpace(name), strings.TrimSpace(description))
	if err != nil {
		return Stage{}, err
	}

	r.afterMutation(ctx, actor, "renamed", id)
	return updated, nil
}

// DeleteStage removes a stage and re-compacts the ordering of the stages
// behind it. Deleting a stage still referenced by live applications fails
// with ErrConflict; the caller surfaces it without retry.
func (r *Registry) DeleteStage(ctx context.Context, actor Actor, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := r.store.DeleteStage(ctx, id); err != nil {
		return err
	}

	r.afterMutation(ctx, actor, "deleted", id)
	return nil
}

// Reorder applies a full reordering atomically. The submission must cover
// exactly the current stage set with a contiguous permutation of 0..N-1;
// the store applies it all-or-nothing, so a rejected submission leaves the
// last known-good order in place for the caller to revert to.
func (r *Registry) Reorder(ctx context.Context, actor Actor, items []StageOrder) ([]Stage, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	current, err := r.store.ListStages(ctx)
	if err != nil {
		return nil, fmt.Errorf("reorder: %w", err)
	}
	if err := ValidateOrdering(current, items); err != nil {
		return nil, err
	}

	stages, err := r.store.ReorderStages(ctx, items)
	if err != nil {
		return nil, err
	}

	r.afterMutation(ctx, actor, "reordered", "")
	return stages, nil
}

// MoveStage swaps a stage's order_sequence with its immediate neighbour in
// the given direction. Moving the first stage up or the last stage down is
// a no-op returning the current order unchanged.
func (r *Registry) MoveStage(ctx context.Context, actor Actor, id string, dir Direction) ([]Stage, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	current, err := r.store.ListStages(ctx)
	if err != nil {
		return nil, fmt.Errorf("move stage: %w", err)
	}
	items, changed, err := SwapAdjacent(current, id, dir)
	if err != nil {
		return nil, err
	}
	if !changed {
		return current, nil
	}

	stages, err := r.store.ReorderStages(ctx, items)
	if err != nil {
		return nil, err
	}

	r.afterMutation(ctx, actor, "reordered", id)
	return stages, nil
}

func requireAdmin(actor Actor) error {
	if actor.Role != RoleAdministrator {
		return fmt.Errorf("stage configuration requires the %s role: %w", RoleAdministrator, ErrForbidden)
	}
	return nil
}

// afterMutation drops the cached ordering and publishes EVENT_STAGES_CHANGED
// for gateway SSE forwarding. Both are non-fatal.
func (r *Registry) afterMutation(ctx context.Context, actor Actor, change, stageID string) {
	r.cache.Invalidate(ctx)

	if r.rdb == nil {
		return
	}
	event, _ := json.Marshal(map[string]string{
		"type":    "EVENT_STAGES_CHANGED",
		"change":  change,
		"stageId": stageID,
		"userId":  actor.ID,
	})
	if err := r.rdb.Publish(ctx, "EVENT_STAGES_CHANGED", event).Err(); err != nil {
		slog.Warn("publish EVENT_STAGES_CHANGED failed", "err", err)
	}
}
