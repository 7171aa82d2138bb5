package taskserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"todosync/internal/service"
)

// SQLiteRepository stores tasks in a SQLite database file.
type SQLiteRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenSQLite opens (creating if needed) the database at dbPath and runs migrations.
func OpenSQLite(dbPath string, logger *zap.Logger) (*SQLiteRepository, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("empty database path")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := ensureDir(dbPath); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000", dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	r := &SQLiteRepository{db: conn, logger: logger}
	if err := r.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	logger.Info("sqlite repository ready", zap.String("path", dbPath))
	return r, nil
}

// Close releases the database resources.
func (r *SQLiteRepository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (r *SQLiteRepository) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
            seq INTEGER PRIMARY KEY AUTOINCREMENT,
            id TEXT NOT NULL UNIQUE,
            title TEXT NOT NULL,
            done INTEGER NOT NULL DEFAULT 0,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// List returns tasks in creation order.
func (r *SQLiteRepository) List(ctx context.Context) ([]service.Task, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, title, done FROM tasks ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []service.Task{}
	for rows.Next() {
		var t service.Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Done); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Get retrieves a task by id.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (service.Task, error) {
	var t service.Task
	err := r.db.QueryRowContext(ctx, `SELECT id, title, done FROM tasks WHERE id = ?`, id).
		Scan(&t.ID, &t.Title, &t.Done)
	if errors.Is(err, sql.ErrNoRows) {
		return service.Task{}, ErrNotFound
	}
	if err != nil {
		return service.Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// Create inserts a task with a fresh id.
func (r *SQLiteRepository) Create(ctx context.Context, draft service.Draft) (service.Task, error) {
	id := uuid.NewString()
	if _, err := r.db.ExecContext(ctx, `INSERT INTO tasks(id, title, done) VALUES(?, ?, ?)`, id, draft.Title, draft.Done); err != nil {
		return service.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return r.Get(ctx, id)
}

// Update merges patch into the stored row with a single statement.
func (r *SQLiteRepository) Update(ctx context.Context, id string, patch Patch) (service.Task, error) {
	var t service.Task
	err := r.db.QueryRowContext(ctx, `UPDATE tasks
        SET title = COALESCE(?, title), done = COALESCE(?, done), updated_at = CURRENT_TIMESTAMP
        WHERE id = ?
        RETURNING id, title, done`, patch.Title, patch.Done, id).
		Scan(&t.ID, &t.Title, &t.Done)
	if errors.Is(err, sql.ErrNoRows) {
		return service.Task{}, ErrNotFound
	}
	if err != nil {
		return service.Task{}, fmt.Errorf("update task: %w", err)
	}
	return t, nil
}

// Delete removes a task by id.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
