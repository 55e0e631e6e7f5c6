package pipeline

import "strings"

// Unassigned is the sentinel an edit form uses for "no assignee". The
// persisted model stores an empty assigned_user_id; NormalizeAssignee maps
// both spellings onto one value so change detection compares like with like.
const Unassigned = "unassigned"

// ForwardNote is the advisory text surfaced when earlier stages were
// excluded from the offerable set.
const ForwardNote = "Only forward-moving statuses are available"

// NormalizeAssignee collapses the absent/empty assignee spellings onto the
// Unassigned sentinel.
func NormalizeAssignee(id string) string {
	if id == "" || id == Unassigned {
		return Unassigned
	}
	return id
}

// OfferableStages returns the stages legally selectable as the next status
// for an application currently at currentStatusID, preserving registry
// order. When the current stage is not found in the registry (stale data),
// it fails open and offers every stage. The boolean reports whether earlier
// stages were excluded, so callers can surface ForwardNote.
func OfferableStages(stages []Stage, currentStatusID string) ([]Stage, bool) {
	currentOrder := -1
	for _, s := range stages {
		if s.ID == currentStatusID {
			currentOrder = s.OrderSequence
			break
		}
	}
	if currentOrder == -1 {
		return stages, false
	}

	offerable := make([]Stage, 0, len(stages))
	for _, s := range stages {
		if s.OrderSequence >= currentOrder {
			offerable = append(offerable, s)
		}
	}
	return offerable, len(offerable) < len(stages)
}

// ForwardAllowed reports whether moving from currentStatusID to newStatusID
// satisfies the forward-transition rule against the given registry ordering.
// An unknown current stage fails open (any target is allowed); an unknown
// target is never allowed.
func ForwardAllowed(stages []Stage, currentStatusID, newStatusID string) bool {
	offerable, _ := OfferableStages(stages, currentStatusID)
	for _, s := range offerable {
		if s.ID == newStatusID {
			return true
		}
	}
	return false
}

// ProposedUpdate is a pending edit from the status-update form. A nil
// StatusID or AssignedUserID means the field was left untouched; an
// AssignedUserID pointing at "" or the Unassigned sentinel means explicit
// unassignment.
type ProposedUpdate struct {
	StatusID       *string
	AssignedUserID *string
	Notes          string
}

// HasChanges reports whether the proposed edit differs from the
// application's present state. A proposal with an unchanged stage, an
// unchanged (normalized) assignee and blank notes is a no-op and must not
// reach the engine.
func HasChanges(app Application, p ProposedUpdate) bool {
	if p.StatusID != nil && *p.StatusID != "" && *p.StatusID != app.CurrentStatusID {
		return true
	}
	if p.AssignedUserID != nil && NormalizeAssignee(*p.AssignedUserID) != NormalizeAssignee(app.AssignedUserID) {
		return true
	}
	return strings.TrimSpace(p.Notes) != ""
}

// BuildUpdate reduces a proposal to only the fields that actually changed,
// matching the engine's contract: an unchanged stage is passed as "no
// change" rather than re-sent as identical, and the Unassigned sentinel is
// translated to the persisted empty id.
func BuildUpdate(app Application, p ProposedUpdate) ProposedUpdate {
	out := ProposedUpdate{Notes: strings.TrimSpace(p.Notes)}
	if p.StatusID != nil && *p.StatusID != "" && *p.StatusID != app.CurrentStatusID {
		id := *p.StatusID
		out.StatusID = &id
	}
	if p.AssignedUserID != nil && NormalizeAssignee(*p.AssignedUserID) != NormalizeAssignee(app.AssignedUserID) {
		id := *p.AssignedUserID
		if id == Unassigned {
			id = ""
		}
		out.AssignedUserID = &id
	}
	return out
}

// AutofillFromHistory looks up the earliest history event for the selected
// stage. When the application has visited that stage before, the form
// pre-fills notes and assignee from that event; otherwise both fields reset
// (empty notes, Unassigned).
//
// history must be in insertion order, earliest first.
func AutofillFromHistory(history []StatusEvent, statusID string) (notes, assigneeID string) {
	for _, ev := range history {
		if ev.StatusID == statusID {
			return ev.Notes, NormalizeAssignee(ev.AssignedUserID)
		}
	}
	return "", Unassigned
}
