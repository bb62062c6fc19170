// Copyright 2026 Bindu Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/getbindu/bindu-go/pkg/a2a"
	"github.com/getbindu/bindu-go/pkg/logger"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// SQLStorage implements Storage on database/sql. Tasks are stored as JSON
// columns; postgres additionally isolates each agent in its own schema
// derived from the agent DID.
type SQLStorage struct {
	db      *sql.DB
	dialect string
	prefix  string // "schema". for postgres, "" otherwise
	log     *slog.Logger
}

const createTasksTableSQL = `
CREATE TABLE IF NOT EXISTS %stasks (
    id VARCHAR(36) PRIMARY KEY,
    context_id VARCHAR(36) NOT NULL,
    status_json TEXT NOT NULL,
    history_json TEXT,
    artifacts_json TEXT,
    metadata_json TEXT,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
)`

const createTasksContextIndexSQL = `
CREATE INDEX IF NOT EXISTS idx_tasks_context_id ON %stasks(context_id)`

const createTasksUpdatedAtIndexSQL = `
CREATE INDEX IF NOT EXISTS idx_tasks_updated_at ON %stasks(updated_at)`

const createPushConfigsTableSQL = `
CREATE TABLE IF NOT EXISTS %spush_configs (
    id VARCHAR(36) NOT NULL,
    task_id VARCHAR(36) NOT NULL,
    config_json TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (task_id, id)
)`

const createFeedbackTableSQL = `
CREATE TABLE IF NOT EXISTS %sfeedback (
    task_id VARCHAR(36) NOT NULL,
    rating DOUBLE PRECISION NOT NULL,
    feedback TEXT,
    metadata_json TEXT,
    created_at TIMESTAMP NOT NULL
)`

// NewSQLStorage opens a SQL-backed store. dialect is one of postgres, sqlite,
// mysql. agentDID selects the postgres schema; it is ignored by sqlite and
// mysql, which scope by database instead.
func NewSQLStorage(db *sql.DB, dialect, agentDID string) (*SQLStorage, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if dialect == "sqlite3" {
		dialect = "sqlite"
	}
	switch dialect {
	case "postgres", "mysql", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported dialect: %s (supported: postgres, mysql, sqlite)", dialect)
	}

	s := &SQLStorage{
		db:      db,
		dialect: dialect,
		log:     logger.Component("storage.sql"),
	}
	if dialect == "postgres" {
		s.prefix = SchemaName(agentDID) + "."
	}

	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// initSchema creates the agent schema (postgres) and tables. Index and table
// creation are separate statements for sqlite compatibility.
func (s *SQLStorage) initSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.dialect == "postgres" {
		schema := strings.TrimSuffix(s.prefix, ".")
		if _, err := s.db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+schema); err != nil {
			return fmt.Errorf("failed to create schema %s: %w", schema, err)
		}
	}

	statements := []string{
		fmt.Sprintf(createTasksTableSQL, s.prefix),
		fmt.Sprintf(createTasksContextIndexSQL, s.prefix),
		fmt.Sprintf(createTasksUpdatedAtIndexSQL, s.prefix),
		fmt.Sprintf(createPushConfigsTableSQL, s.prefix),
		fmt.Sprintf(createFeedbackTableSQL, s.prefix),
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run schema statement: %w", err)
		}
	}

	s.log.Info("storage schema ready", "dialect", s.dialect, "prefix", s.prefix)
	return nil
}

// rebind rewrites ? placeholders to $1..$n for postgres.
func (s *SQLStorage) rebind(query string) string {
	if s.dialect != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (s *SQLStorage) SubmitTask(ctx context.Context, task a2a.Task) error {
	statusJSON, historyJSON, artifactsJSON, metadataJSON, err := marshalTask(&task)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	query := s.rebind(fmt.Sprintf(`
INSERT INTO %stasks (id, context_id, status_json, history_json, artifacts_json, metadata_json, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, s.prefix))

	_, err = s.db.ExecContext(ctx, query,
		task.ID.String(), task.ContextID.String(),
		statusJSON, historyJSON, artifactsJSON, metadataJSON, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

func (s *SQLStorage) LoadTask(ctx context.Context, id uuid.UUID) (*a2a.Task, error) {
	query := s.rebind(fmt.Sprintf(`
SELECT id, context_id, status_json, history_json, artifacts_json, metadata_json
FROM %stasks WHERE id = ?`, s.prefix))

	return s.scanTask(s.db.QueryRowContext(ctx, query, id.String()))
}

func (s *SQLStorage) ListTasks(ctx context.Context, filter TaskFilter) ([]a2a.Task, error) {
	query := fmt.Sprintf(`
SELECT id, context_id, status_json, history_json, artifacts_json, metadata_json
FROM %stasks`, s.prefix)

	var conds []string
	var args []any
	if filter.ContextID != nil {
		conds = append(conds, "context_id = ?")
		args = append(args, filter.ContextID.String())
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY updated_at DESC"

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var out []a2a.Task
	for rows.Next() {
		task, err := s.scanTaskRows(rows)
		if err != nil {
			return nil, err
		}
		// State lives inside status_json, so it is filtered here rather
		// than in SQL.
		if filter.State != nil && task.Status.State != *filter.State {
			continue
		}
		out = append(out, *task)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, rows.Err()
}

func (s *SQLStorage) UpdateTaskStatus(ctx context.Context, id uuid.UUID, status a2a.TaskStatus) error {
	return s.mutateTask(ctx, id, func(task *a2a.Task) error {
		if !task.Status.State.CanTransitionTo(status.State) {
			return a2a.Errorf(a2a.KindFailedPrecondition,
				"task %s cannot move from %s to %s", id, task.Status.State, status.State)
		}
		task.Status = status
		if status.Message != nil {
			if len(task.History) >= MaxHistoryMessages {
				return a2a.Errorf(a2a.KindFailedPrecondition,
					"task %s history exceeds %d messages", id, MaxHistoryMessages)
			}
			task.History = append(task.History, *status.Message)
		}
		return nil
	})
}

func (s *SQLStorage) AppendHistory(ctx context.Context, id uuid.UUID, msg a2a.Message) error {
	return s.mutateTask(ctx, id, func(task *a2a.Task) error {
		if len(task.History) >= MaxHistoryMessages {
			return a2a.Errorf(a2a.KindFailedPrecondition,
				"task %s history exceeds %d messages", id, MaxHistoryMessages)
		}
		task.History = append(task.History, msg)
		return nil
	})
}

func (s *SQLStorage) ApplyArtifact(ctx context.Context, id uuid.UUID, artifact a2a.Artifact, append_ bool) error {
	return s.mutateTask(ctx, id, func(task *a2a.Task) error {
		merged := mergeArtifact(task.Artifacts, artifact, append_)
		if err := checkArtifactSize(merged, artifact.ArtifactID); err != nil {
			return err
		}
		task.Artifacts = merged
		return nil
	})
}

// mutateTask runs a read-modify-write cycle in one transaction. Postgres and
// mysql take a row lock via FOR UPDATE; sqlite serializes writers itself.
func (s *SQLStorage) mutateTask(ctx context.Context, id uuid.UUID, mutate func(*a2a.Task) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
SELECT id, context_id, status_json, history_json, artifacts_json, metadata_json
FROM %stasks WHERE id = ?`, s.prefix)
	if s.dialect != "sqlite" {
		query += " FOR UPDATE"
	}

	task, err := s.scanTask(tx.QueryRowContext(ctx, s.rebind(query), id.String()))
	if err != nil {
		return err
	}

	if err := mutate(task); err != nil {
		return err
	}

	statusJSON, historyJSON, artifactsJSON, metadataJSON, err := marshalTask(task)
	if err != nil {
		return err
	}

	update := s.rebind(fmt.Sprintf(`
UPDATE %stasks
SET status_json = ?, history_json = ?, artifacts_json = ?, metadata_json = ?, updated_at = ?
WHERE id = ?`, s.prefix))

	if _, err := tx.ExecContext(ctx, update,
		statusJSON, historyJSON, artifactsJSON, metadataJSON,
		time.Now().UTC(), id.String()); err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return tx.Commit()
}

func (s *SQLStorage) ListContexts(ctx context.Context) ([]a2a.ContextSummary, error) {
	query := fmt.Sprintf(`
SELECT context_id, id FROM %stasks ORDER BY context_id, updated_at`, s.prefix)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query contexts: %w", err)
	}
	defer rows.Close()

	var out []a2a.ContextSummary
	for rows.Next() {
		var ctxStr, idStr string
		if err := rows.Scan(&ctxStr, &idStr); err != nil {
			return nil, fmt.Errorf("failed to scan context row: %w", err)
		}
		ctxID, err := uuid.Parse(ctxStr)
		if err != nil {
			return nil, fmt.Errorf("invalid context id %q: %w", ctxStr, err)
		}
		taskID, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("invalid task id %q: %w", idStr, err)
		}

		if n := len(out); n > 0 && out[n-1].ContextID == ctxID {
			out[n-1].TaskIDs = append(out[n-1].TaskIDs, taskID)
			out[n-1].TaskCount++
		} else {
			out = append(out, a2a.ContextSummary{
				ContextID: ctxID,
				TaskCount: 1,
				TaskIDs:   []uuid.UUID{taskID},
			})
		}
	}
	return out, rows.Err()
}

func (s *SQLStorage) ClearContext(ctx context.Context, contextID uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	del := s.rebind(fmt.Sprintf(`
DELETE FROM %spush_configs WHERE task_id IN (SELECT id FROM %stasks WHERE context_id = ?)`,
		s.prefix, s.prefix))
	if _, err := tx.ExecContext(ctx, del, contextID.String()); err != nil {
		return fmt.Errorf("failed to delete push configs: %w", err)
	}

	del = s.rebind(fmt.Sprintf(`
DELETE FROM %sfeedback WHERE task_id IN (SELECT id FROM %stasks WHERE context_id = ?)`,
		s.prefix, s.prefix))
	if _, err := tx.ExecContext(ctx, del, contextID.String()); err != nil {
		return fmt.Errorf("failed to delete feedback: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		s.rebind(fmt.Sprintf(`DELETE FROM %stasks WHERE context_id = ?`, s.prefix)),
		contextID.String())
	if err != nil {
		return fmt.Errorf("failed to delete tasks: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return a2a.ErrContextNotFound
	}
	return tx.Commit()
}

func (s *SQLStorage) SaveFeedback(ctx context.Context, fb Feedback) error {
	if _, err := s.LoadTask(ctx, fb.TaskID); err != nil {
		return err
	}

	metadataJSON := "{}"
	if len(fb.Metadata) > 0 {
		data, err := json.Marshal(fb.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal feedback metadata: %w", err)
		}
		metadataJSON = string(data)
	}

	query := s.rebind(fmt.Sprintf(`
INSERT INTO %sfeedback (task_id, rating, feedback, metadata_json, created_at)
VALUES (?, ?, ?, ?, ?)`, s.prefix))

	_, err := s.db.ExecContext(ctx, query,
		fb.TaskID.String(), fb.Rating, fb.Feedback, metadataJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}
	return nil
}

func (s *SQLStorage) SetPushConfig(ctx context.Context, taskID uuid.UUID, cfg a2a.PushNotificationConfig) error {
	if _, err := s.LoadTask(ctx, taskID); err != nil {
		return err
	}

	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal push config: %w", err)
	}

	query := fmt.Sprintf(`
INSERT INTO %spush_configs (id, task_id, config_json, created_at)
VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE config_json = VALUES(config_json)`, s.prefix)
	if s.dialect == "postgres" {
		query = fmt.Sprintf(`
INSERT INTO %spush_configs (id, task_id, config_json, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (task_id, id) DO UPDATE SET config_json = EXCLUDED.config_json`, s.prefix)
	} else if s.dialect == "sqlite" {
		query = fmt.Sprintf(`
INSERT INTO %spush_configs (id, task_id, config_json, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (task_id, id) DO UPDATE SET config_json = excluded.config_json`, s.prefix)
	}

	_, err = s.db.ExecContext(ctx, s.rebind(query),
		cfg.ID.String(), taskID.String(), string(configJSON), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save push config: %w", err)
	}
	return nil
}

func (s *SQLStorage) GetPushConfig(ctx context.Context, taskID, configID uuid.UUID) (*a2a.PushNotificationConfig, error) {
	query := fmt.Sprintf(`SELECT config_json FROM %spush_configs WHERE task_id = ?`, s.prefix)
	args := []any{taskID.String()}
	if configID != uuid.Nil {
		query += " AND id = ?"
		args = append(args, configID.String())
	}
	query += " ORDER BY created_at LIMIT 1"

	var configJSON string
	err := s.db.QueryRowContext(ctx, s.rebind(query), args...).Scan(&configJSON)
	if err == sql.ErrNoRows {
		return nil, a2a.ErrConfigNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query push config: %w", err)
	}

	var cfg a2a.PushNotificationConfig
	if err := json.Unmarshal([]byte(configJSON), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal push config: %w", err)
	}
	return &cfg, nil
}

func (s *SQLStorage) ListPushConfigs(ctx context.Context, taskID uuid.UUID) ([]a2a.PushNotificationConfig, error) {
	query := s.rebind(fmt.Sprintf(`
SELECT config_json FROM %spush_configs WHERE task_id = ? ORDER BY created_at`, s.prefix))

	rows, err := s.db.QueryContext(ctx, query, taskID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query push configs: %w", err)
	}
	defer rows.Close()

	var out []a2a.PushNotificationConfig
	for rows.Next() {
		var configJSON string
		if err := rows.Scan(&configJSON); err != nil {
			return nil, fmt.Errorf("failed to scan push config: %w", err)
		}
		var cfg a2a.PushNotificationConfig
		if err := json.Unmarshal([]byte(configJSON), &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal push config: %w", err)
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}

func (s *SQLStorage) DeletePushConfig(ctx context.Context, taskID, configID uuid.UUID) error {
	query := s.rebind(fmt.Sprintf(`
DELETE FROM %spush_configs WHERE task_id = ? AND id = ?`, s.prefix))

	res, err := s.db.ExecContext(ctx, query, taskID.String(), configID.String())
	if err != nil {
		return fmt.Errorf("failed to delete push config: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return a2a.ErrConfigNotFound
	}
	return nil
}

func (s *SQLStorage) Close() error { return s.db.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLStorage) scanTask(row rowScanner) (*a2a.Task, error) {
	var idStr, ctxStr, statusJSON string
	var historyJSON, artifactsJSON, metadataJSON sql.NullString

	err := row.Scan(&idStr, &ctxStr, &statusJSON, &historyJSON, &artifactsJSON, &metadataJSON)
	if err == sql.ErrNoRows {
		return nil, a2a.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}
	return unmarshalTask(idStr, ctxStr, statusJSON,
		historyJSON.String, artifactsJSON.String, metadataJSON.String)
}

func (s *SQLStorage) scanTaskRows(rows *sql.Rows) (*a2a.Task, error) {
	return s.scanTask(rows)
}

func marshalTask(task *a2a.Task) (status, history, artifacts, metadata string, err error) {
	statusJSON, err := json.Marshal(task.Status)
	if err != nil {
		return "", "", "", "", fmt.Errorf("failed to marshal status: %w", err)
	}

	historyJSON := []byte("[]")
	if len(task.History) > 0 {
		if historyJSON, err = json.Marshal(task.History); err != nil {
			return "", "", "", "", fmt.Errorf("failed to marshal history: %w", err)
		}
	}

	artifactsJSON := []byte("[]")
	if len(task.Artifacts) > 0 {
		if artifactsJSON, err = json.Marshal(task.Artifacts); err != nil {
			return "", "", "", "", fmt.Errorf("failed to marshal artifacts: %w", err)
		}
	}

	metadataJSON := []byte("{}")
	if len(task.Metadata) > 0 {
		if metadataJSON, err = json.Marshal(task.Metadata); err != nil {
			return "", "", "", "", fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	return string(statusJSON), string(historyJSON), string(artifactsJSON), string(metadataJSON), nil
}

func unmarshalTask(idStr, ctxStr, statusJSON, historyJSON, artifactsJSON, metadataJSON string) (*a2a.Task, error) {
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid task id %q: %w", idStr, err)
	}
	ctxID, err := uuid.Parse(ctxStr)
	if err != nil {
		return nil, fmt.Errorf("invalid context id %q: %w", ctxStr, err)
	}

	task := &a2a.Task{ID: id, ContextID: ctxID, Kind: a2a.KindTask}
	if err := json.Unmarshal([]byte(statusJSON), &task.Status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status: %w", err)
	}
	if historyJSON != "" && historyJSON != "[]" {
		if err := json.Unmarshal([]byte(historyJSON), &task.History); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history: %w", err)
		}
	}
	if artifactsJSON != "" && artifactsJSON != "[]" {
		if err := json.Unmarshal([]byte(artifactsJSON), &task.Artifacts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal artifacts: %w", err)
		}
	}
	if metadataJSON != "" && metadataJSON != "{}" {
		if err := json.Unmarshal([]byte(metadataJSON), &task.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return task, nil
}

var _ Storage = (*SQLStorage)(nil)
