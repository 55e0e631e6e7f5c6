// Package pipeline implements the hiring-pipeline core: the ordered stage
// registry, the applicant status engine and the status-update decision rules.
//
// Stages form a total order via order_sequence:
//
//	HR Screening(0) ──► Tech Screening(1) ──► Interview(2) ──► Offer(3)
//
// An application may only move to a stage with equal or greater
// order_sequence. Every accepted update appends exactly one immutable
// status event to the application's history.
package pipeline

import (
	"fmt"
	"strings"
	"time"
)

// Stage is one named, ordered step in the hiring pipeline.
type Stage struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	OrderSequence int       `json:"order_sequence"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// StageOrder is one entry of a full reorder submission.
type StageOrder struct {
	ID            string `json:"id"`
	OrderSequence int    `json:"order_sequence"`
}

// Direction is a single-step reorder direction.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// ParseDirection converts a raw string to a Direction, returning an error
// for unknown values.
func ParseDirection(s string) (Direction, error) {
	d := Direction(s)
	switch d {
	case DirectionUp, DirectionDown:
		return d, nil
	}
	return "", fmt.Errorf("unknown move direction %q", s)
}

// ValidateStageInput checks name and description after trimming.
func ValidateStageInput(name, description string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Msg: "stage name must not be empty"}
	}
	if strings.TrimSpace(description) == "" {
		return &ValidationError{Msg: "stage description must not be empty"}
	}
	return nil
}

// SwapAdjacent returns the full reorder submission produced by moving the
// stage with the given id one step in the given direction. The boolean is
// false when the move is a no-op (stage already first or last); the returned
// items then reflect the unchanged current order.
//
// stages must be sorted by OrderSequence ascending.
func SwapAdjacent(stages []Stage, id string, dir Direction) ([]StageOrder, bool, error) {
	idx := -1
	for i, s := range stages {
		if s.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, false, ErrNotFound
	}

	other := idx - 1
	if dir == DirectionDown {
		other = idx + 1
	}

	items := make([]StageOrder, len(stages))
	for i, s := range stages {
		items[i] = StageOrder{ID: s.ID, OrderSequence: i}
	}
	if other < 0 || other >= len(stages) {
		return items, false, nil
	}

	items[idx].OrderSequence, items[other].OrderSequence = other, idx
	return items, true, nil
}

// ValidateOrdering checks that a reorder submission covers exactly the
// current stage set and that its order values are a contiguous permutation
// of 0..N-1.
func ValidateOrdering(current []Stage, items []StageOrder) error {
	if len(items) != len(current) {
		return &ValidationError{Msg: fmt.Sprintf("reorder must cover all %d stages, got %d", len(current), len(items))}
	}

	known := make(map[string]bool, len(current))
	for _, s := range current {
		known[s.ID] = true
	}

	seen := make(map[int]bool, len(items))
	for _, it := range items {
		if !known[it.ID] {
			return &ValidationError{Msg: fmt.Sprintf("unknown stage id %q in reorder", it.ID)}
		}
		delete(known, it.ID)
		if it.OrderSequence < 0 || it.OrderSequence >= len(items) {
			return &ValidationError{Msg: fmt.Sprintf("order_sequence %d out of range", it.OrderSequence)}
		}
		if seen[it.OrderSequence] {
			return &ValidationError{Msg: fmt.Sprintf("duplicate order_sequence %d", it.OrderSequence)}
		}
		seen[it.OrderSequence] = true
	}
	return nil
}

// CheckContiguous verifies the registry ordering invariant: order_sequence
// values of the given stages form exactly {0, 1, ..., N-1}.
func CheckContiguous(stages []Stage) error {
	seen := make(map[int]bool, len(stages))
	for _, s := range stages {
		if s.OrderSequence < 0 || s.OrderSequence >= len(stages) || seen[s.OrderSequence] {
			return fmt.Errorf("stage ordering is not a contiguous permutation: %q has order_sequence %d", s.Name, s.OrderSequence)
		}
		seen[s.OrderSequence] = true
	}
	return nil
}
