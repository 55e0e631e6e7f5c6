package pipeline

import "time"

// StatusEvent is one immutable record of a stage/assignment/note change.
// status_name and assigned_user_name are snapshots taken at event time, so
// a later stage rename never rewrites history.
type StatusEvent struct {
	ID               string    `json:"id"`
	StatusID         string    `json:"status_id"`
	StatusName       string    `json:"status_name"`
	AssignedUserID   string    `json:"assigned_user_id"`
	AssignedUserName string    `json:"assigned_user_name"`
	Notes            string    `json:"notes"`
	CreatedAt        time.Time `json:"created_at"`
}

// Application is one candidate's submission tracked through the pipeline.
// StatusHistory is append-only, ordered by insertion; CurrentStatusID always
// equals the stage of the most recent event.
type Application struct {
	ID                   string        `json:"id"`
	CandidateName        string        `json:"candidate_name"`
	CandidateEmail       string        `json:"candidate_email"`
	JobTitle             string        `json:"job_title"`
	CurrentStatusID      string        `json:"current_status"`
	CurrentStatusDetails *Stage        `json:"current_status_details,omitempty"`
	AssignedUserID       string        `json:"assigned_user_id"`
	StatusHistory        []StatusEvent `json:"status_history,omitempty"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

// User is an organization member selectable as an assignee.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	RoleName string `json:"role_name"`
	Email    string `json:"email"`
}

// Roles forwarded by the gateway in the x-user-role header.
const (
	RoleAdministrator      = "Administrator"
	RoleRecruiter          = "Recruiter"
	RoleTechnicalEvaluator = "Technical Evaluator"
)

// Actor identifies the user performing an operation. Passed explicitly into
// role-gated operations instead of being read from ambient state.
type Actor struct {
	ID   string
	Role string
}
