// Package journal keeps a local SQLite record of rtool invocations and the artifacts
// they published, so a release manager can see what was uploaded where and when.
//
// A nil *Journal is valid and records nothing.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"rtool/pkg/logx"
)

// ErrDisabled is returned by commands that need the journal when it is turned off.
var ErrDisabled = errors.New("journal is disabled")

// Status is the outcome of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusAborted   Status = "aborted"
)

// Run is one recorded invocation.
//
//nolint:govet // Field order mirrors the table.
type Run struct {
	ID         string
	Command    string
	Projects   []string
	Version    string
	Status     Status
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Artifact is one file published by a run.
type Artifact struct {
	CreatedAt   time.Time
	RunID       string
	Project     string
	Kind        string
	Name        string
	Destination string
	Size        int64
}

// Journal is a handle on the journal database.
type Journal struct {
	db     *sql.DB
	logger *logx.Logger
	now    func() time.Time
}

// Open opens (creating if needed) the journal database at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		path,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping journal: %w", err)
	}
	if err := initializeSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}

	j := &Journal{
		db:     db,
		logger: logx.NewLogger("journal"),
		now:    func() time.Time { return time.Now().UTC() },
	}
	j.logger.Debug("Journal opened: %s", path)
	return j, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	if err := j.db.Close(); err != nil {
		return fmt.Errorf("failed to close journal: %w", err)
	}
	return nil
}

// StartRun records the start of a command and returns its run id.
func (j *Journal) StartRun(ctx context.Context, command string, projects []string, version string) (string, error) {
	if j == nil {
		return "", nil
	}

	id := uuid.NewString()
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs (id, command, projects, version, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, command, strings.Join(projects, ","), version, string(StatusRunning), formatTime(j.now()))
	if err != nil {
		return "", fmt.Errorf("failed to record run start: %w", err)
	}
	return id, nil
}

// FinishRun stores the outcome of a run.
func (j *Journal) FinishRun(ctx context.Context, id string, status Status, runErr error) error {
	if j == nil || id == "" {
		return nil
	}

	message := ""
	if runErr != nil {
		message = runErr.Error()
	}
	res, err := j.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?
	`, string(status), message, formatTime(j.now()), id)
	if err != nil {
		return fmt.Errorf("failed to record run result: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found in journal", id)
	}
	return nil
}

// RecordArtifact stores an artifact published by a run.
func (j *Journal) RecordArtifact(ctx context.Context, a Artifact) error {
	if j == nil || a.RunID == "" {
		return nil
	}

	if a.CreatedAt.IsZero() {
		a.CreatedAt = j.now()
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO artifacts (run_id, project, kind, name, destination, size, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.RunID, a.Project, a.Kind, a.Name, a.Destination, a.Size, formatTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to record artifact %s: %w", a.Name, err)
	}
	return nil
}

// RecentRuns returns the most recent runs, newest first.
func (j *Journal) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if j == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, command, projects, version, status, error, started_at, COALESCE(finished_at, '')
		FROM runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                     Run
			projects, status      string
			startedAt, finishedAt string
		)
		if err := rows.Scan(&r.ID, &r.Command, &projects, &r.Version, &status, &r.Error, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if projects != "" {
			r.Projects = strings.Split(projects, ",")
		}
		r.Status = Status(status)
		r.StartedAt = parseTime(startedAt)
		r.FinishedAt = parseTime(finishedAt)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}
	return runs, nil
}

// Artifacts returns the artifacts recorded for a run in upload order.
func (j *Journal) Artifacts(ctx context.Context, runID string) ([]Artifact, error) {
	if j == nil {
		return nil, nil
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, project, kind, name, destination, size, created_at
		FROM artifacts
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []Artifact
	for rows.Next() {
		var (
			a         Artifact
			createdAt string
		)
		if err := rows.Scan(&a.RunID, &a.Project, &a.Kind, &a.Name, &a.Destination, &a.Size, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		a.CreatedAt = parseTime(createdAt)
		artifacts = append(artifacts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read artifacts: %w", err)
	}
	return artifacts, nil
}

// StatusFor maps a run error to a status; aborted reports a user abort.
func StatusFor(err error, aborted bool) Status {
	switch {
	case err == nil:
		return StatusSucceeded
	case aborted:
		return StatusAborted
	default:
		return StatusFailed
	}
}

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
