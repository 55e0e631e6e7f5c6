package pipeline_test

import (
	"testing"

	"hireline/pipeline-service/internal/pipeline"
)

func orderedStages(names ...string) []pipeline.Stage {
	stages := make([]pipeline.Stage, len(names))
	for i, n := range names {
		stages[i] = pipeline.Stage{ID: "stage-" + n, Name: n, Description: n + " desc", OrderSequence: i}
	}
	return stages
}

// ── ParseDirection ─────────────────────────────────────────────────────────

func TestParseDirection_ValidValues(t *testing.T) {
	for _, s := range []string{"up", "down"} {
		got, err := pipeline.ParseDirection(s)
		if err != nil {
			t.Errorf("ParseDirection(%q) returned unexpected error: %v", s, err)
		}
		if string(got) != s {
			t.Errorf("ParseDirection(%q) = %q, want %q", s, got, s)
		}
	}
}

func TestParseDirection_InvalidValues(t *testing.T) {
	for _, s := range []string{"", "UP", "left", "sideways"} {
		if _, err := pipeline.ParseDirection(s); err == nil {
			t.Errorf("ParseDirection(%q) expected error, got nil", s)
		}
	}
}

// ── ValidateStageInput ─────────────────────────────────────────────────────

func TestValidateStageInput(t *testing.T) {
	cases := []struct {
		name        string
		description string
		wantErr     bool
	}{
		{"HR Screening", "First contact", false},
		{"", "First contact", true},
		{"   ", "First contact", true},
		{"HR Screening", "", true},
		{"HR Screening", "\t\n", true},
		{"", "", true},
	}
	for _, c := range cases {
		err := pipeline.ValidateStageInput(c.name, c.description)
		if c.wantErr && err == nil {
			t.Errorf("ValidateStageInput(%q, %q) expected error, got nil", c.name, c.description)
		}
		if !c.wantErr && err != nil {
			t.Errorf("ValidateStageInput(%q, %q) unexpected error: %v", c.name, c.description, err)
		}
	}
}

// ── SwapAdjacent — swap semantics ──────────────────────────────────────────

func TestSwapAdjacent_MoveUp(t *testing.T) {
	stages := orderedStages("A", "B", "C")

	items, changed, err := pipeline.SwapAdjacent(stages, "stage-B", pipeline.DirectionUp)
	if err != nil {
		t.Fatalf("SwapAdjacent unexpected error: %v", err)
	}
	if !changed {
		t.Fatal("SwapAdjacent(B, up) should report a change")
	}

	want := map[string]int{"stage-B": 0, "stage-A": 1, "stage-C": 2}
	for _, it := range items {
		if want[it.ID] != it.OrderSequence {
			t.Errorf("after moving B up, %s has order %d, want %d", it.ID, it.OrderSequence, want[it.ID])
		}
	}
}

func TestSwapAdjacent_MoveDown(t *testing.T) {
	stages := orderedStages("A", "B", "C")

	items, changed, err := pipeline.SwapAdjacent(stages, "stage-A", pipeline.DirectionDown)
	if err != nil {
		t.Fatalf("SwapAdjacent unexpected error: %v", err)
	}
	if !changed {
		t.Fatal("SwapAdjacent(A, down) should report a change")
	}

	want := map[string]int{"stage-B": 0, "stage-A": 1, "stage-C": 2}
	for _, it := range items {
		if want[it.ID] != it.OrderSequence {
			t.Errorf("after moving A down, %s has order %d, want %d", it.ID, it.OrderSequence, want[it.ID])
		}
	}
}

// Moving the first stage up (or the last down) is a no-op returning the
// current order unchanged.
func TestSwapAdjacent_BoundaryNoOp(t *testing.T) {
	stages := orderedStages("A", "B", "C")

	cases := []struct {
		id  string
		dir pipeline.Direction
	}{
		{"stage-A", pipeline.DirectionUp},
		{"stage-C", pipeline.DirectionDown},
	}
	for _, c := range cases {
		items, changed, err := pipeline.SwapAdjacent(stages, c.id, c.dir)
		if err != nil {
			t.Fatalf("SwapAdjacent(%s, %s) unexpected error: %v", c.id, c.dir, err)
		}
		if changed {
			t.Errorf("SwapAdjacent(%s, %s) should be a no-op", c.id, c.dir)
		}
		for i, it := range items {
			if it.ID != stages[i].ID || it.OrderSequence != i {
				t.Errorf("SwapAdjacent(%s, %s) no-op should preserve order, got %v", c.id, c.dir, items)
			}
		}
	}
}

func TestSwapAdjacent_UnknownStage(t *testing.T) {
	stages := orderedStages("A", "B")
	if _, _, err := pipeline.SwapAdjacent(stages, "stage-X", pipeline.DirectionUp); err == nil {
		t.Error("SwapAdjacent with unknown id expected error, got nil")
	}
}

// ── ValidateOrdering ───────────────────────────────────────────────────────

func TestValidateOrdering_Accepts(t *testing.T) {
	stages := orderedStages("A", "B", "C")
	items := []pipeline.StageOrder{
		{ID: "stage-C", OrderSequence: 0},
		{ID: "stage-A", OrderSequence: 1},
		{ID: "stage-B", OrderSequence: 2},
	}
	if err := pipeline.ValidateOrdering(stages, items); err != nil {
		t.Errorf("ValidateOrdering unexpected error: %v", err)
	}
}

func TestValidateOrdering_Rejects(t *testing.T) {
	stages := orderedStages("A", "B", "C")

	cases := []struct {
		name  string
		items []pipeline.StageOrder
	}{
		{"incomplete submission", []pipeline.StageOrder{
			{ID: "stage-A", OrderSequence: 0},
		}},
		{"unknown stage id", []pipeline.StageOrder{
			{ID: "stage-A", OrderSequence: 0},
			{ID: "stage-B", OrderSequence: 1},
			{ID: "stage-X", OrderSequence: 2},
		}},
		{"duplicate order", []pipeline.StageOrder{
			{ID: "stage-A", OrderSequence: 0},
			{ID: "stage-B", OrderSequence: 0},
			{ID: "stage-C", OrderSequence: 2},
		}},
		{"gap in order", []pipeline.StageOrder{
			{ID: "stage-A", OrderSequence: 0},
			{ID: "stage-B", OrderSequence: 1},
			{ID: "stage-C", OrderSequence: 3},
		}},
		{"negative order", []pipeline.StageOrder{
			{ID: "stage-A", OrderSequence: -1},
			{ID: "stage-B", OrderSequence: 0},
			{ID: "stage-C", OrderSequence: 1},
		}},
	}
	for _, c := range cases {
		if err := pipeline.ValidateOrdering(stages, c.items); err == nil {
			t.Errorf("ValidateOrdering should reject %s", c.name)
		}
	}
}

// ── CheckContiguous ────────────────────────────────────────────────────────

func TestCheckContiguous(t *testing.T) {
	good := orderedStages("A", "B", "C")
	if err := pipeline.CheckContiguous(good); err != nil {
		t.Errorf("CheckContiguous on contiguous set unexpected error: %v", err)
	}

	gapped := orderedStages("A", "B", "C")
	gapped[2].OrderSequence = 5
	if err := pipeline.CheckContiguous(gapped); err == nil {
		t.Error("CheckContiguous should reject a gapped ordering")
	}

	dup := orderedStages("A", "B", "C")
	dup[1].OrderSequence = 0
	if err := pipeline.CheckContiguous(dup); err == nil {
		t.Error("CheckContiguous should reject duplicate order values")
	}
}
