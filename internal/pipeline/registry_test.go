package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"hireline/pipeline-service/internal/pipeline"
)

var admin = pipeline.Actor{ID: "admin-1", Role: pipeline.RoleAdministrator}

func newRegistry() (*pipeline.Registry, *pipeline.MockStore) {
	store := pipeline.NewMockStore()
	return pipeline.NewRegistry(store, nil, nil), store
}

// assertContiguous checks the registry ordering invariant after a mutation.
func assertContiguous(t *testing.T, stages []pipeline.Stage) {
	t.Helper()
	assert.NoError(t, pipeline.CheckContiguous(stages))
}

func TestRegistry_AddStageAppendsAtEnd(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry()

	first, err := reg.AddStage(ctx, admin, "HR Screening", "First contact")
	assert.NoError(t, err)
	assert.Equal(t, 0, first.OrderSequence)
	assert.NotEmpty(t, first.ID)

	second, err := reg.AddStage(ctx, admin, "Tech Screening", "Technical call")
	assert.NoError(t, err)
	assert.Equal(t, 1, second.OrderSequence)

	stages, err := reg.ListStages(ctx)
	assert.NoError(t, err)
	assert.Len(t, stages, 2)
	assertContiguous(t, stages)
}

// An empty body means the stage-config add button: placeholders are used.
func TestRegistry_AddStagePlaceholders(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry()

	stage, err := reg.AddStage(ctx, admin, "", "")
	assert.NoError(t, err)
	assert.Equal(t, "New Stage", stage.Name)
	assert.Equal(t, "Stage description", stage.Description)
}

func TestRegistry_AddStageValidation(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry()

	var ve *pipeline.ValidationError
	_, err := reg.AddStage(ctx, admin, "   ", "provided description")
	assert.Error(t, err)
	assert.ErrorAs(t, err, &ve)

	_, err = reg.AddStage(ctx, admin, "provided name", "   ")
	assert.ErrorAs(t, err, &ve)
}

func TestRegistry_RenameStage(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry()

	stage, err := reg.AddStage(ctx, admin, "HR Screening", "First contact")
	assert.NoError(t, err)

	renamed, err := reg.RenameStage(ctx, admin, stage.ID, "Phone Screening", "Intro call")
	assert.NoError(t, err)
	assert.Equal(t, "Phone Screening", renamed.Name)
	assert.Equal(t, "Intro call", renamed.Description)
	assert.Equal(t, stage.ID, renamed.ID)
	assert.Equal(t, stage.OrderSequence, renamed.OrderSequence)

	_, err = reg.RenameStage(ctx, admin, "missing-id", "X", "Y")
	assert.ErrorIs(t, err, pipeline.ErrNotFound)
}

// Deleting a middle stage closes the gap: [A(0) B(1) C(2) D(3)] minus B
// becomes [A(0) C(1) D(2)].
func TestRegistry_DeleteStageRecompacts(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry()

	var ids []string
	for _, n := range []string{"A", "B", "C", "D"} {
		s, err := reg.AddStage(ctx, admin, n, n+" desc")
		assert.NoError(t, err)
		ids = append(ids, s.ID)
	}

	assert.NoError(t, reg.DeleteStage(ctx, admin, ids[1]))

	stages, err := reg.ListStages(ctx)
	assert.NoError(t, err)
	assert.Len(t, stages, 3)
	assertContiguous(t, stages)
	assert.Equal(t, []string{"A", "C", "D"}, []string{stages[0].Name, stages[1].Name, stages[2].Name})
	for i, s := range stages {
		assert.Equal(t, i, s.OrderSequence)
	}
}

func TestRegistry_DeleteReferencedStageConflicts(t *testing.T) {
	ctx := context.Background()
	store := pipeline.NewMockStore()
	reg := pipeline.NewRegistry(store, nil, nil)
	engine := pipeline.NewEngine(store, nil, nil)

	stage, err := reg.AddStage(ctx, admin, "HR Screening", "First contact")
	assert.NoError(t, err)

	_, err = engine.CreateApplication(ctx, pipeline.CreateRequest{
		CandidateName:  "Dana Silva",
		CandidateEmail: "dana@example.com",
	})
	assert.NoError(t, err)

	err = reg.DeleteStage(ctx, admin, stage.ID)
	assert.ErrorIs(t, err, pipeline.ErrConflict)

	// The stage list is untouched after the rejected delete.
	stages, err := reg.ListStages(ctx)
	assert.NoError(t, err)
	assert.Len(t, stages, 1)
}

// Moving B "up" in [A(0) B(1) C(2)] yields [B(0) A(1) C(2)].
func TestRegistry_MoveStageUp(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry()

	for _, n := range []string{"A", "B", "C"} {
		_, err := reg.AddStage(ctx, admin, n, n+" desc")
		assert.NoError(t, err)
	}
	stages, _ := reg.ListStages(ctx)

	moved, err := reg.MoveStage(ctx, admin, stages[1].ID, pipeline.DirectionUp)
	assert.NoError(t, err)
	assertContiguous(t, moved)
	assert.Equal(t, []string{"B", "A", "C"}, []string{moved[0].Name, moved[1].Name, moved[2].Name})
}

// Moving the first stage "up" is a no-op returning the order unchanged.
func TestRegistry_MoveFirstStageUpIsNoOp(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry()

	for _, n := range []string{"A", "B", "C"} {
		_, err := reg.AddStage(ctx, admin, n, n+" desc")
		assert.NoError(t, err)
	}
	stages, _ := reg.ListStages(ctx)

	moved, err := reg.MoveStage(ctx, admin, stages[0].ID, pipeline.DirectionUp)
	assert.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, []string{moved[0].Name, moved[1].Name, moved[2].Name})
	assertContiguous(t, moved)
}

// A rejected reorder submission leaves the stored order untouched, so the
// caller can revert its optimistic local state to the last known-good one.
func TestRegistry_RejectedReorderLeavesOrderIntact(t *testing.T) {
	ctx := context.Background()
	store := pipeline.NewMockStore()
	reg := pipeline.NewRegistry(store, nil, nil)

	for _, n := range []string{"A", "B", "C"} {
		_, err := reg.AddStage(ctx, admin, n, n+" desc")
		assert.NoError(t, err)
	}
	stages, _ := reg.ListStages(ctx)

	store.ReorderErr = errors.New("backend rejected reorder")
	_, err := reg.MoveStage(ctx, admin, stages[1].ID, pipeline.DirectionUp)
	assert.Error(t, err)

	after, listErr := reg.ListStages(ctx)
	assert.NoError(t, listErr)
	assert.Equal(t, []string{"A", "B", "C"}, []string{after[0].Name, after[1].Name, after[2].Name})
	assertContiguous(t, after)
}

func TestRegistry_ReorderValidatesSubmission(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry()

	for _, n := range []string{"A", "B"} {
		_, err := reg.AddStage(ctx, admin, n, n+" desc")
		assert.NoError(t, err)
	}
	stages, _ := reg.ListStages(ctx)

	var ve *pipeline.ValidationError

	// Incomplete submission.
	_, err := reg.Reorder(ctx, admin, []pipeline.StageOrder{{ID: stages[0].ID, OrderSequence: 0}})
	assert.ErrorAs(t, err, &ve)

	// Non-contiguous order values.
	_, err = reg.Reorder(ctx, admin, []pipeline.StageOrder{
		{ID: stages[0].ID, OrderSequence: 0},
		{ID: stages[1].ID, OrderSequence: 2},
	})
	assert.ErrorAs(t, err, &ve)

	// A valid full permutation is accepted.
	reordered, err := reg.Reorder(ctx, admin, []pipeline.StageOrder{
		{ID: stages[0].ID, OrderSequence: 1},
		{ID: stages[1].ID, OrderSequence: 0},
	})
	assert.NoError(t, err)
	assertContiguous(t, reordered)
	assert.Equal(t, "B", reordered[0].Name)
}

// Stage configuration is gated on the Administrator role.
func TestRegistry_RequiresAdministrator(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry()

	recruiter := pipeline.Actor{ID: "u-7", Role: pipeline.RoleRecruiter}

	_, err := reg.AddStage(ctx, recruiter, "X", "Y")
	assert.ErrorIs(t, err, pipeline.ErrForbidden)

	_, err = reg.RenameStage(ctx, recruiter, "any", "X", "Y")
	assert.ErrorIs(t, err, pipeline.ErrForbidden)

	err = reg.DeleteStage(ctx, recruiter, "any")
	assert.ErrorIs(t, err, pipeline.ErrForbidden)

	_, err = reg.MoveStage(ctx, recruiter, "any", pipeline.DirectionUp)
	assert.ErrorIs(t, err, pipeline.ErrForbidden)
}
