package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hylla/campusflow/internal/app"
	"github.com/hylla/campusflow/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// Repository persists workflow entities in a single sqlite database. It
// implements both app.Repository and app.AuditSink.
type Repository struct {
	db *sql.DB
}

// Open opens (creating if needed) the database file at path.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// OpenInMemory opens in memory.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, "file::memory:?cache=shared")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the underlying database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate applies the schema. Statements are idempotent so every Open runs
// the full list.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			title TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'todo',
			priority TEXT NOT NULL DEFAULT 'medium',
			estimated_effort REAL NOT NULL DEFAULT 0,
			logged_effort REAL NOT NULL DEFAULT 0,
			effort_locked INTEGER NOT NULL DEFAULT 0,
			due_at TEXT,
			completed_at TEXT,
			assignees_json TEXT NOT NULL DEFAULT '[]',
			subtasks_json TEXT NOT NULL DEFAULT '[]',
			version INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS memberships (
			project_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			PRIMARY KEY(project_id, user_id)
		);`,
		`CREATE TABLE IF NOT EXISTS project_approvals (
			project_id TEXT PRIMARY KEY,
			status TEXT NOT NULL DEFAULT 'pending',
			rejection_reason TEXT NOT NULL DEFAULT '',
			review_comments TEXT NOT NULL DEFAULT '',
			approved_at TEXT,
			published INTEGER NOT NULL DEFAULT 0,
			version INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS leave_requests (
			id TEXT PRIMARY KEY,
			requester_id TEXT NOT NULL,
			project_id TEXT NOT NULL,
			type TEXT NOT NULL,
			start_date TEXT NOT NULL,
			end_date TEXT NOT NULL,
			reason TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			rejection_reason TEXT NOT NULL DEFAULT '',
			reviewed_by TEXT NOT NULL DEFAULT '',
			reviewed_at TEXT,
			version INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS task_deps (
			task_id TEXT NOT NULL,
			depends_on TEXT NOT NULL,
			PRIMARY KEY(task_id, depends_on),
			FOREIGN KEY(task_id) REFERENCES tasks(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS timer_events (
			id TEXT PRIMARY KEY,
			task_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			started_at TEXT NOT NULL,
			stopped_at TEXT,
			FOREIGN KEY(task_id) REFERENCES tasks(id) ON DELETE CASCADE
		);`,
		// One running timer per (task, user).
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_timer_events_open
			ON timer_events(task_id, user_id) WHERE stopped_at IS NULL;`,
		`CREATE TABLE IF NOT EXISTS audit_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			actor_id TEXT NOT NULL,
			entity_kind TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			action TEXT NOT NULL,
			from_status TEXT NOT NULL DEFAULT '',
			to_status TEXT NOT NULL DEFAULT '',
			note TEXT NOT NULL DEFAULT '',
			occurred_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_events(entity_kind, entity_id);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);`,
		`CREATE INDEX IF NOT EXISTS idx_task_deps_reverse ON task_deps(depends_on);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// CreateTask creates task.
func (r *Repository) CreateTask(ctx context.Context, t domain.Task) error {
	assigneesJSON, err := json.Marshal(t.Assignees)
	if err != nil {
		return fmt.Errorf("encode task assignees: %w", err)
	}
	subtasksJSON, err := json.Marshal(t.Subtasks)
	if err != nil {
		return fmt.Errorf("encode task subtasks: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO tasks(id, project_id, title, status, priority, estimated_effort, logged_effort, effort_locked,
			due_at, completed_at, assignees_json, subtasks_json, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.ProjectID, t.Title, string(t.Status), string(t.Priority), t.EstimatedEffort, t.LoggedEffort, boolInt(t.EffortLocked),
		nullableTS(t.DueAt), nullableTS(t.CompletedAt), string(assigneesJSON), string(subtasksJSON), t.Version, ts(t.CreatedAt), ts(t.UpdatedAt))
	return err
}

// GetTask returns task.
func (r *Repository) GetTask(ctx context.Context, id string) (domain.Task, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, project_id, title, status, priority, estimated_effort, logged_effort, effort_locked,
			due_at, completed_at, assignees_json, subtasks_json, version, created_at, updated_at
		FROM tasks
		WHERE id = ?
	`, id)
	return scanTask(row)
}

// UpdateTask writes the task only if the stored row still carries the version
// the caller read.
func (r *Repository) UpdateTask(ctx context.Context, t domain.Task, expectedVersion int64) error {
	assigneesJSON, err := json.Marshal(t.Assignees)
	if err != nil {
		return fmt.Errorf("encode task assignees: %w", err)
	}
	subtasksJSON, err := json.Marshal(t.Subtasks)
	if err != nil {
		return fmt.Errorf("encode task subtasks: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, status = ?, priority = ?, estimated_effort = ?, logged_effort = ?, effort_locked = ?,
			due_at = ?, completed_at = ?, assignees_json = ?, subtasks_json = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`, t.Title, string(t.Status), string(t.Priority), t.EstimatedEffort, t.LoggedEffort, boolInt(t.EffortLocked),
		nullableTS(t.DueAt), nullableTS(t.CompletedAt), string(assigneesJSON), string(subtasksJSON), ts(t.UpdatedAt), t.ID, expectedVersion)
	if err != nil {
		return err
	}
	return r.translateStaleWrite(ctx, res, `SELECT 1 FROM tasks WHERE id = ?`, t.ID)
}

// DeleteTask deletes task.
func (r *Repository) DeleteTask(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// ListTasks lists tasks in a project.
func (r *Repository) ListTasks(ctx context.Context, projectID string) ([]domain.Task, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, title, status, priority, estimated_effort, logged_effort, effort_locked,
			due_at, completed_at, assignees_json, subtasks_json, version, created_at, updated_at
		FROM tasks
		WHERE project_id = ?
		ORDER BY created_at ASC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreateProjectApproval creates the review record for a project.
func (r *Repository) CreateProjectApproval(ctx context.Context, a domain.ProjectApproval) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO project_approvals(project_id, status, rejection_reason, review_comments, approved_at, published, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ProjectID, string(a.Status), a.RejectionReason, a.ReviewComments, nullableTS(a.ApprovedAt), boolInt(a.Published), a.Version, ts(a.CreatedAt), ts(a.UpdatedAt))
	return err
}

// GetProjectApproval returns the review record for a project.
func (r *Repository) GetProjectApproval(ctx context.Context, projectID string) (domain.ProjectApproval, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT project_id, status, rejection_reason, review_comments, approved_at, published, version, created_at, updated_at
		FROM project_approvals
		WHERE project_id = ?
	`, projectID)
	return scanApproval(row)
}

// UpdateProjectApproval writes the record only at the expected version.
func (r *Repository) UpdateProjectApproval(ctx context.Context, a domain.ProjectApproval, expectedVersion int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE project_approvals
		SET status = ?, rejection_reason = ?, review_comments = ?, approved_at = ?, published = ?, version = version + 1, updated_at = ?
		WHERE project_id = ? AND version = ?
	`, string(a.Status), a.RejectionReason, a.ReviewComments, nullableTS(a.ApprovedAt), boolInt(a.Published), ts(a.UpdatedAt), a.ProjectID, expectedVersion)
	if err != nil {
		return err
	}
	return r.translateStaleWrite(ctx, res, `SELECT 1 FROM project_approvals WHERE project_id = ?`, a.ProjectID)
}

// CreateLeaveRequest creates leave request.
func (r *Repository) CreateLeaveRequest(ctx context.Context, l domain.LeaveRequest) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO leave_requests(id, requester_id, project_id, type, start_date, end_date, reason, status,
			rejection_reason, reviewed_by, reviewed_at, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, l.ID, l.RequesterID, l.ProjectID, string(l.Type), ts(l.StartDate), ts(l.EndDate), l.Reason, string(l.Status),
		l.RejectionReason, l.ReviewedBy, nullableTS(l.ReviewedAt), l.Version, ts(l.CreatedAt), ts(l.UpdatedAt))
	return err
}

// GetLeaveRequest returns leave request.
func (r *Repository) GetLeaveRequest(ctx context.Context, id string) (domain.LeaveRequest, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, requester_id, project_id, type, start_date, end_date, reason, status,
			rejection_reason, reviewed_by, reviewed_at, version, created_at, updated_at
		FROM leave_requests
		WHERE id = ?
	`, id)
	return scanLeave(row)
}

// UpdateLeaveRequest writes the request only at the expected version.
func (r *Repository) UpdateLeaveRequest(ctx context.Context, l domain.LeaveRequest, expectedVersion int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE leave_requests
		SET status = ?, rejection_reason = ?, reviewed_by = ?, reviewed_at = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`, string(l.Status), l.RejectionReason, l.ReviewedBy, nullableTS(l.ReviewedAt), ts(l.UpdatedAt), l.ID, expectedVersion)
	if err != nil {
		return err
	}
	return r.translateStaleWrite(ctx, res, `SELECT 1 FROM leave_requests WHERE id = ?`, l.ID)
}

// GetMembershipRole returns the actor's role in a project, with a found flag.
func (r *Repository) GetMembershipRole(ctx context.Context, actorID, projectID string) (domain.MembershipRole, bool, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `
		SELECT role FROM memberships WHERE project_id = ? AND user_id = ?
	`, projectID, actorID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	role := domain.NormalizeMembershipRole(domain.MembershipRole(raw))
	if !domain.IsValidMembershipRole(role) {
		return "", false, fmt.Errorf("decode membership role %q: %w", raw, domain.ErrInvalidID)
	}
	return role, true, nil
}

// UpsertMembership sets or replaces a member's role in a project.
func (r *Repository) UpsertMembership(ctx context.Context, projectID, userID string, role domain.MembershipRole) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO memberships(project_id, user_id, role) VALUES (?, ?, ?)
		ON CONFLICT(project_id, user_id) DO UPDATE SET role = excluded.role
	`, projectID, userID, string(role))
	return err
}

// LoadDependencySnapshot returns the current status of every prerequisite of
// a task. A dangling edge reads as todo so it still blocks completion.
func (r *Repository) LoadDependencySnapshot(ctx context.Context, taskID string) (domain.DependencySnapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT d.depends_on, COALESCE(t.status, 'todo')
		FROM task_deps d
		LEFT JOIN tasks t ON t.id = d.depends_on
		WHERE d.task_id = ?
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshot := domain.DependencySnapshot{}
	for rows.Next() {
		var depID, status string
		if err := rows.Scan(&depID, &status); err != nil {
			return nil, err
		}
		snapshot[depID] = domain.TaskStatus(status)
	}
	return snapshot, rows.Err()
}

// LoadDependencyGraph returns every depends-on edge within a project.
func (r *Repository) LoadDependencyGraph(ctx context.Context, projectID string) (*domain.Graph, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT d.task_id, d.depends_on
		FROM task_deps d
		JOIN tasks t ON t.id = d.task_id
		WHERE t.project_id = ?
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	edges := map[string][]string{}
	for rows.Next() {
		var taskID, dependsOn string
		if err := rows.Scan(&taskID, &dependsOn); err != nil {
			return nil, err
		}
		edges[taskID] = append(edges[taskID], dependsOn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return domain.GraphFromEdges(edges), nil
}

// AddDependencyEdge records a depends-on edge. Duplicate edges are no-ops.
func (r *Repository) AddDependencyEdge(ctx context.Context, taskID, dependsOnID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO task_deps(task_id, depends_on) VALUES (?, ?)
	`, taskID, dependsOnID)
	return err
}

// RemoveDependencyEdge severs a depends-on edge.
func (r *Repository) RemoveDependencyEdge(ctx context.Context, taskID, dependsOnID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM task_deps WHERE task_id = ? AND depends_on = ?
	`, taskID, dependsOnID)
	return err
}

// ListDependents returns the ids of tasks that depend on the given task.
func (r *Repository) ListDependents(ctx context.Context, taskID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT task_id FROM task_deps WHERE depends_on = ? ORDER BY task_id ASC
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// OpenTimer inserts an open timer interval. The partial unique index turns a
// second open timer for the same (task, user) into
// domain.ErrTimerAlreadyRunning.
func (r *Repository) OpenTimer(ctx context.Context, event domain.TimerEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO timer_events(id, task_id, user_id, started_at, stopped_at)
		VALUES (?, ?, ?, ?, NULL)
	`, event.ID, event.TaskID, event.UserID, ts(event.StartedAt))
	if err != nil && isUniqueConstraintErr(err) {
		return domain.ErrTimerAlreadyRunning
	}
	return err
}

// GetOpenTimer returns the open timer for a (task, user) pair, with a found
// flag.
func (r *Repository) GetOpenTimer(ctx context.Context, taskID, userID string) (domain.TimerEvent, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, task_id, user_id, started_at, stopped_at
		FROM timer_events
		WHERE task_id = ? AND user_id = ? AND stopped_at IS NULL
	`, taskID, userID)
	event, err := scanTimer(row)
	if errors.Is(err, app.ErrNotFound) {
		return domain.TimerEvent{}, false, nil
	}
	if err != nil {
		return domain.TimerEvent{}, false, err
	}
	return event, true, nil
}

// ListOpenTimers returns every open timer on a task.
func (r *Repository) ListOpenTimers(ctx context.Context, taskID string) ([]domain.TimerEvent, error) {
	return r.listTimers(ctx, `
		SELECT id, task_id, user_id, started_at, stopped_at
		FROM timer_events
		WHERE task_id = ? AND stopped_at IS NULL
		ORDER BY started_at ASC
	`, taskID)
}

// CloseTimer stamps the stop instant on an open interval.
func (r *Repository) CloseTimer(ctx context.Context, eventID string, stoppedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE timer_events SET stopped_at = ? WHERE id = ? AND stopped_at IS NULL
	`, ts(stoppedAt), eventID)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// ListTimerEvents returns every timer interval for a task, open or closed.
func (r *Repository) ListTimerEvents(ctx context.Context, taskID string) ([]domain.TimerEvent, error) {
	return r.listTimers(ctx, `
		SELECT id, task_id, user_id, started_at, stopped_at
		FROM timer_events
		WHERE task_id = ?
		ORDER BY started_at ASC
	`, taskID)
}

// listTimers runs a timer query and scans the rows.
func (r *Repository) listTimers(ctx context.Context, query string, args ...any) ([]domain.TimerEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.TimerEvent{}
	for rows.Next() {
		event, err := scanTimer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

// Record appends one audit entry.
func (r *Repository) Record(ctx context.Context, event domain.AuditEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_events(actor_id, entity_kind, entity_id, action, from_status, to_status, note, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, event.ActorID, string(event.EntityKind), event.EntityID, event.Action, event.FromStatus, event.ToStatus, event.Note, ts(event.OccurredAt))
	return err
}

// ListByEntity returns the most recent audit entries for an entity, oldest
// first.
func (r *Repository) ListByEntity(ctx context.Context, kind domain.EntityKind, entityID string, limit int) ([]domain.AuditEvent, error) {
	query := `
		SELECT id, actor_id, entity_kind, entity_id, action, from_status, to_status, note, occurred_at
		FROM (
			SELECT id, actor_id, entity_kind, entity_id, action, from_status, to_status, note, occurred_at
			FROM audit_events
			WHERE entity_kind = ? AND entity_id = ?
			ORDER BY id DESC
	`
	args := []any{string(kind), entityID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	query += `
		)
		ORDER BY id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.AuditEvent{}
	for rows.Next() {
		var (
			event       domain.AuditEvent
			kindRaw     string
			occurredRaw string
		)
		if err := rows.Scan(&event.ID, &event.ActorID, &kindRaw, &event.EntityID, &event.Action,
			&event.FromStatus, &event.ToStatus, &event.Note, &occurredRaw); err != nil {
			return nil, err
		}
		event.EntityKind = domain.EntityKind(kindRaw)
		event.OccurredAt = parseTS(occurredRaw)
		out = append(out, event)
	}
	return out, rows.Err()
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanTask handles scan task.
func scanTask(s scanner) (domain.Task, error) {
	var (
		t            domain.Task
		statusRaw    string
		priorityRaw  string
		lockedRaw    int
		dueRaw       sql.NullString
		completedRaw sql.NullString
		assigneesRaw string
		subtasksRaw  string
		createdRaw   string
		updatedRaw   string
	)
	if err := s.Scan(&t.ID, &t.ProjectID, &t.Title, &statusRaw, &priorityRaw, &t.EstimatedEffort, &t.LoggedEffort, &lockedRaw,
		&dueRaw, &completedRaw, &assigneesRaw, &subtasksRaw, &t.Version, &createdRaw, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Task{}, app.ErrNotFound
		}
		return domain.Task{}, err
	}
	t.Status = domain.TaskStatus(statusRaw)
	t.Priority = domain.Priority(priorityRaw)
	t.EffortLocked = lockedRaw != 0
	t.DueAt = parseNullTS(dueRaw)
	t.CompletedAt = parseNullTS(completedRaw)
	if err := json.Unmarshal([]byte(orDefault(assigneesRaw, "[]")), &t.Assignees); err != nil {
		return domain.Task{}, fmt.Errorf("decode task assignees_json: %w", err)
	}
	if err := json.Unmarshal([]byte(orDefault(subtasksRaw, "[]")), &t.Subtasks); err != nil {
		return domain.Task{}, fmt.Errorf("decode task subtasks_json: %w", err)
	}
	t.CreatedAt = parseTS(createdRaw)
	t.UpdatedAt = parseTS(updatedRaw)
	return t, nil
}

// scanApproval handles scan approval.
func scanApproval(s scanner) (domain.ProjectApproval, error) {
	var (
		a            domain.ProjectApproval
		statusRaw    string
		approvedRaw  sql.NullString
		publishedRaw int
		createdRaw   string
		updatedRaw   string
	)
	if err := s.Scan(&a.ProjectID, &statusRaw, &a.RejectionReason, &a.ReviewComments, &approvedRaw, &publishedRaw,
		&a.Version, &createdRaw, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ProjectApproval{}, app.ErrNotFound
		}
		return domain.ProjectApproval{}, err
	}
	a.Status = domain.ApprovalStatus(statusRaw)
	a.ApprovedAt = parseNullTS(approvedRaw)
	a.Published = publishedRaw != 0
	a.CreatedAt = parseTS(createdRaw)
	a.UpdatedAt = parseTS(updatedRaw)
	return a, nil
}

// scanLeave handles scan leave request.
func scanLeave(s scanner) (domain.LeaveRequest, error) {
	var (
		l           domain.LeaveRequest
		typeRaw     string
		startRaw    string
		endRaw      string
		statusRaw   string
		reviewedRaw sql.NullString
		createdRaw  string
		updatedRaw  string
	)
	if err := s.Scan(&l.ID, &l.RequesterID, &l.ProjectID, &typeRaw, &startRaw, &endRaw, &l.Reason, &statusRaw,
		&l.RejectionReason, &l.ReviewedBy, &reviewedRaw, &l.Version, &createdRaw, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.LeaveRequest{}, app.ErrNotFound
		}
		return domain.LeaveRequest{}, err
	}
	l.Type = domain.LeaveType(typeRaw)
	l.StartDate = parseTS(startRaw)
	l.EndDate = parseTS(endRaw)
	l.Status = domain.LeaveStatus(statusRaw)
	l.ReviewedAt = parseNullTS(reviewedRaw)
	l.CreatedAt = parseTS(createdRaw)
	l.UpdatedAt = parseTS(updatedRaw)
	return l, nil
}

// scanTimer handles scan timer event.
func scanTimer(s scanner) (domain.TimerEvent, error) {
	var (
		event      domain.TimerEvent
		startedRaw string
		stoppedRaw sql.NullString
	)
	if err := s.Scan(&event.ID, &event.TaskID, &event.UserID, &startedRaw, &stoppedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.TimerEvent{}, app.ErrNotFound
		}
		return domain.TimerEvent{}, err
	}
	event.StartedAt = parseTS(startedRaw)
	event.StoppedAt = parseNullTS(stoppedRaw)
	return event, nil
}

// translateStaleWrite distinguishes a missing row from a version mismatch
// when a guarded UPDATE touched nothing.
func (r *Repository) translateStaleWrite(ctx context.Context, res sql.Result, existsQuery string, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	var one int
	err = r.db.QueryRowContext(ctx, existsQuery, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return app.ErrNotFound
	}
	if err != nil {
		return err
	}
	return domain.ErrConcurrentModification
}

// translateNoRows handles translate no rows.
func translateNoRows(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return app.ErrNotFound
	}
	return nil
}

// ts handles ts.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// nullableTS handles nullable ts.
func nullableTS(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return parsed.UTC()
}

// parseNullTS parses input into a normalized form.
func parseNullTS(v sql.NullString) *time.Time {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return nil
	}
	parsed := parseTS(v.String)
	return &parsed
}

// boolInt maps a bool onto sqlite's 0/1 convention.
func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// orDefault substitutes a fallback for blank column values.
func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

// isUniqueConstraintErr reports whether the expected condition is satisfied.
func isUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToUpper(err.Error()), "UNIQUE")
}
