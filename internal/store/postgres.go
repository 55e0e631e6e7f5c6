// Package store implements pipeline.Store on PostgreSQL via pgx.
//
// Mutations that touch more than one row (delete re-compaction, full
// reordering, status update + event append) run inside a transaction so the
// backing data never exposes a partially applied change.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hireline/pipeline-service/internal/pipeline"
)

// PostgresStore implements pipeline.Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore returns a PostgresStore over the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// ─── Stage operations ─────────────────────────────────────────────────────────

const stageColumns = "id, name, description, order_sequence, created_at, updated_at"

func (s *PostgresStore) ListStages(ctx context.Context) ([]pipeline.Stage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+stageColumns+` FROM stages ORDER BY order_sequence`)
	if err != nil {
		return nil, fmt.Errorf("listStages query: %w", err)
	}
	defer rows.Close()

	stages := make([]pipeline.Stage, 0)
	for rows.Next() {
		var st pipeline.Stage
		if err := rows.Scan(&st.ID, &st.Name, &st.Description, &st.OrderSequence, &st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("listStages scan: %w", err)
		}
		stages = append(stages, st)
	}
	return stages, rows.Err()
}

func (s *PostgresStore) GetStage(ctx context.Context, id string) (pipeline.Stage, error) {
	var st pipeline.Stage
	err := s.pool.QueryRow(ctx,
		`SELECT `+stageColumns+` FROM stages WHERE id = $1`, id,
	).Scan(&st.ID, &st.Name, &st.Description, &st.OrderSequence, &st.CreatedAt, &st.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return pipeline.Stage{}, pipeline.ErrNotFound
	}
	if err != nil {
		return pipeline.Stage{}, fmt.Errorf("getStage: %w", err)
	}
	return st, nil
}

// CreateStage appends the stage at order_sequence = count. The subselect
// runs in the same statement, so concurrent creates cannot produce a gap.
func (s *PostgresStore) CreateStage(ctx context.Context, st pipeline.Stage) (pipeline.Stage, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO stages (id, name, description, order_sequence, created_at, updated_at)
		 VALUES ($1, $2, $3, (SELECT COALESCE(MAX(order_sequence) + 1, 0) FROM stages), $4, $5)
		 RETURNING `+stageColumns,
		st.ID, st.Name, st.Description, st.CreatedAt, st.UpdatedAt,
	).Scan(&st.ID, &st.Name, &st.Description, &st.OrderSequence, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return pipeline.Stage{}, fmt.Errorf("createStage: %w", err)
	}
	return st, nil
}

func (s *PostgresStore) UpdateStage(ctx context.Context, id, name, description string) (pipeline.Stage, error) {
	var st pipeline.Stage
	err := s.pool.QueryRow(ctx,
		`UPDATE stages SET name = $1, description = $2, updated_at = NOW()
		 WHERE id = $3
		 RETURNING `+stageColumns,
		name, description, id,
	).Scan(&st.ID, &st.Name, &st.Description, &st.OrderSequence, &st.CreatedAt, &st.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return pipeline.Stage{}, pipeline.ErrNotFound
	}
	if err != nil {
		return pipeline.Stage{}, fmt.Errorf("updateStage: %w", err)
	}
	return st, nil
}

// DeleteStage removes the stage and closes the ordering gap. A stage still
// referenced as any application's current status cannot be deleted.
func (s *PostgresStore) DeleteStage(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		var inUse int
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM applications WHERE current_status = $1`, id,
		).Scan(&inUse); err != nil {
			return fmt.Errorf("deleteStage usage check: %w", err)
		}
		if inUse > 0 {
			return fmt.Errorf("stage is referenced by %d application(s): %w", inUse, pipeline.ErrConflict)
		}

		var removedOrder int
		err := tx.QueryRow(ctx,
			`DELETE FROM stages WHERE id = $1 RETURNING order_sequence`, id,
		).Scan(&removedOrder)
		if errors.Is(err, pgx.ErrNoRows) {
			return pipeline.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("deleteStage: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE stages SET order_sequence = order_sequence - 1, updated_at = NOW()
			 WHERE order_sequence > $1`, removedOrder,
		); err != nil {
			return fmt.Errorf("deleteStage re-compact: %w", err)
		}
		return nil
	})
}

// ReorderStages applies a full reordering atomically: every item must match
// an existing stage or the whole submission rolls back. The unique
// constraint on order_sequence is deferred, so intermediate swap states
// inside the transaction are fine.
func (s *PostgresStore) ReorderStages(ctx context.Context, items []pipeline.StageOrder) ([]pipeline.Stage, error) {
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		for _, it := range items {
			tag, err := tx.Exec(ctx,
				`UPDATE stages SET order_sequence = $1, updated_at = NOW() WHERE id = $2`,
				it.OrderSequence, it.ID)
			if err != nil {
				return fmt.Errorf("reorderStages update: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("stage %q: %w", it.ID, pipeline.ErrNotFound)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.ListStages(ctx)
}

// ─── Application operations ───────────────────────────────────────────────────

func (s *PostgresStore) ListApplications(ctx context.Context) ([]pipeline.Application, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT a.id, a.candidate_name, a.candidate_email, a.job_title,
		        a.current_status, a.assigned_user_id, a.created_at, a.updated_at,
		        s.id, s.name, s.description, s.order_sequence, s.created_at, s.updated_at
		 FROM applications a
		 LEFT JOIN stages s ON s.id = a.current_status
		 ORDER BY a.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listApplications query: %w", err)
	}
	defer rows.Close()

	apps := make([]pipeline.Application, 0)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("listApplications scan: %w", err)
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

func (s *PostgresStore) GetApplication(ctx context.Context, id string) (pipeline.Application, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT a.id, a.candidate_name, a.candidate_email, a.job_title,
		        a.current_status, a.assigned_user_id, a.created_at, a.updated_at,
		        s.id, s.name, s.description, s.order_sequence, s.created_at, s.updated_at
		 FROM applications a
		 LEFT JOIN stages s ON s.id = a.current_status
		 WHERE a.id = $1`, id)
	if err != nil {
		return pipeline.Application{}, fmt.Errorf("getApplication query: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return pipeline.Application{}, pipeline.ErrNotFound
	}
	app, err := scanApplication(rows)
	if err != nil {
		return pipeline.Application{}, fmt.Errorf("getApplication scan: %w", err)
	}
	rows.Close()

	history, err := s.listEvents(ctx, id)
	if err != nil {
		return pipeline.Application{}, err
	}
	app.StatusHistory = history
	return app, nil
}

// CreateApplication inserts the application row and its initial status
// event in one transaction, so the history invariant holds from creation.
func (s *PostgresStore) CreateApplication(ctx context.Context, app pipeline.Application, initial pipeline.StatusEvent) (pipeline.Application, error) {
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO applications (id, candidate_name, candidate_email, job_title,
			                           current_status, assigned_user_id, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			app.ID, app.CandidateName, app.CandidateEmail, app.JobTitle,
			app.CurrentStatusID, nullable(app.AssignedUserID), app.CreatedAt, app.UpdatedAt,
		); err != nil {
			return fmt.Errorf("createApplication insert: %w", err)
		}
		return insertEvent(ctx, tx, app.ID, initial)
	})
	if err != nil {
		return pipeline.Application{}, err
	}
	return s.GetApplication(ctx, app.ID)
}

// ApplyStatusUpdate appends one status event and moves the application row
// to the resulting stage and assignee as a single commit.
func (s *PostgresStore) ApplyStatusUpdate(ctx context.Context, appID, statusID, assignedUserID string, ev pipeline.StatusEvent) (pipeline.Application, error) {
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE applications
			 SET current_status = $1, assigned_user_id = $2, updated_at = NOW()
			 WHERE id = $3`,
			statusID, nullable(assignedUserID), appID)
		if err != nil {
			return fmt.Errorf("applyStatusUpdate update: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return pipeline.ErrNotFound
		}
		return insertEvent(ctx, tx, appID, ev)
	})
	if err != nil {
		return pipeline.Application{}, err
	}
	return s.GetApplication(ctx, appID)
}

// ─── User operations ──────────────────────────────────────────────────────────

func (s *PostgresStore) ListUsers(ctx context.Context) ([]pipeline.User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, role_name, email FROM users ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listUsers query: %w", err)
	}
	defer rows.Close()

	users := make([]pipeline.User, 0)
	for rows.Next() {
		var u pipeline.User
		if err := rows.Scan(&u.ID, &u.Name, &u.RoleName, &u.Email); err != nil {
			return nil, fmt.Errorf("listUsers scan: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (pipeline.User, error) {
	var u pipeline.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, role_name, email FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.RoleName, &u.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return pipeline.User{}, pipeline.ErrNotFound
	}
	if err != nil {
		return pipeline.User{}, fmt.Errorf("getUser: %w", err)
	}
	return u, nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func (s *PostgresStore) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// insertEvent writes one immutable history record. There is no UPDATE or
// DELETE path for status_events anywhere in this package.
func insertEvent(ctx context.Context, tx pgx.Tx, appID string, ev pipeline.StatusEvent) error {
	if _, err := tx.Exec(ctx,
		`INSERT INTO status_events (id, application_id, status_id, status_name,
		                            assigned_user_id, assigned_user_name, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ev.ID, appID, ev.StatusID, ev.StatusName,
		nullable(ev.AssignedUserID), ev.AssignedUserName, ev.Notes, ev.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert status event: %w", err)
	}
	return nil
}

func (s *PostgresStore) listEvents(ctx context.Context, appID string) ([]pipeline.StatusEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, status_id, status_name, COALESCE(assigned_user_id::text, ''),
		        assigned_user_name, notes, created_at
		 FROM status_events
		 WHERE application_id = $1
		 ORDER BY created_at, id`, appID)
	if err != nil {
		return nil, fmt.Errorf("listEvents query: %w", err)
	}
	defer rows.Close()

	events := make([]pipeline.StatusEvent, 0)
	for rows.Next() {
		var ev pipeline.StatusEvent
		if err := rows.Scan(&ev.ID, &ev.StatusID, &ev.StatusName,
			&ev.AssignedUserID, &ev.AssignedUserName, &ev.Notes, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("listEvents scan: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// nullable maps the empty assignee id onto SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func scanApplication(rows pgx.Rows) (pipeline.Application, error) {
	var (
		app       pipeline.Application
		assignee  *string
		stID      *string
		stName    *string
		stDesc    *string
		stOrder   *int
		stCreated *time.Time
		stUpdated *time.Time
	)

	if err := rows.Scan(
		&app.ID, &app.CandidateName, &app.CandidateEmail, &app.JobTitle,
		&app.CurrentStatusID, &assignee, &app.CreatedAt, &app.UpdatedAt,
		&stID, &stName, &stDesc, &stOrder, &stCreated, &stUpdated,
	); err != nil {
		return pipeline.Application{}, err
	}

	if assignee != nil {
		app.AssignedUserID = *assignee
	}
	if stID != nil {
		app.CurrentStatusDetails = &pipeline.Stage{
			ID:            *stID,
			Name:          *stName,
			Description:   *stDesc,
			OrderSequence: *stOrder,
			CreatedAt:     *stCreated,
			UpdatedAt:     *stUpdated,
		}
	}
	return app, nil
}
