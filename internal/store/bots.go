package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/botdock/botdock/internal"
)

const botColumns = `id,name,description,runtime,entry_point,start_command,auto_restart,memory_mb,cpu_cores,code_dir,container_name,container_id,status,last_started_at,last_stopped_at,created_at,updated_at`

// CreateBot inserts a new bot record.
func (s *Store) CreateBot(ctx context.Context, b internal.Bot) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO bots (`+botColumns+`)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
`, b.ID, b.Name, b.Description, string(b.Runtime), b.EntryPoint, b.StartCommand, boolToInt(b.AutoRestart),
		b.MemoryMB, b.CPUCores, b.CodeDir, b.ContainerName, b.ContainerID, string(b.Status),
		formatNullableTime(b.LastStartedAt), formatNullableTime(b.LastStoppedAt),
		formatTime(b.CreatedAt), formatTime(b.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert bot: %w", err)
	}
	return nil
}

// GetBot loads a bot by id. A missing record is reported as
// internal.NotFoundError.
func (s *Store) GetBot(ctx context.Context, id string) (internal.Bot, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+botColumns+` FROM bots WHERE id=?`, id)
	b, err := scanBot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return internal.Bot{}, internal.NotFoundError{ID: id}
	}
	if err != nil {
		return internal.Bot{}, fmt.Errorf("get bot: %w", err)
	}
	return b, nil
}

// ListBots returns all bot records, newest first.
func (s *Store) ListBots(ctx context.Context) ([]internal.Bot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+botColumns+` FROM bots ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list bots: %w", err)
	}
	defer rows.Close()

	var out []internal.Bot
	for rows.Next() {
		b, err := scanBot(rows)
		if err != nil {
			return nil, fmt.Errorf("list bots: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateBot saves the mutable fields of an existing bot record. The status
// column is owned by SetBotStatus and is intentionally updated here as
// well, so callers persisting containerId together with a stable status do
// it in one write.
func (s *Store) UpdateBot(ctx context.Context, b internal.Bot) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE bots
SET name=?, description=?, runtime=?, entry_point=?, start_command=?, auto_restart=?,
    memory_mb=?, cpu_cores=?, code_dir=?, container_id=?, status=?,
    last_started_at=?, last_stopped_at=?, updated_at=?
WHERE id=?
`, b.Name, b.Description, string(b.Runtime), b.EntryPoint, b.StartCommand, boolToInt(b.AutoRestart),
		b.MemoryMB, b.CPUCores, b.CodeDir, b.ContainerID, string(b.Status),
		formatNullableTime(b.LastStartedAt), formatNullableTime(b.LastStoppedAt),
		formatTime(time.Now()), b.ID)
	if err != nil {
		return fmt.Errorf("update bot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return internal.NotFoundError{ID: b.ID}
	}
	return nil
}

// SetBotStatus atomically updates the status column so concurrent readers
// observe lifecycle transitions as they happen.
func (s *Store) SetBotStatus(ctx context.Context, id string, status internal.BotStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE bots SET status=?, updated_at=? WHERE id=?`,
		string(status), formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("set bot status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return internal.NotFoundError{ID: id}
	}
	return nil
}

// DeleteBot removes the bot record. Env vars and status history cascade.
func (s *Store) DeleteBot(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM bots WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete bot: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBot(row rowScanner) (internal.Bot, error) {
	var (
		b          internal.Bot
		runtime    string
		status     string
		auto       int
		started    sql.NullString
		stopped    sql.NullString
		createdAt  string
		updatedAt  string
	)
	err := row.Scan(&b.ID, &b.Name, &b.Description, &runtime, &b.EntryPoint, &b.StartCommand, &auto,
		&b.MemoryMB, &b.CPUCores, &b.CodeDir, &b.ContainerName, &b.ContainerID, &status,
		&started, &stopped, &createdAt, &updatedAt)
	if err != nil {
		return internal.Bot{}, err
	}
	b.Runtime = internal.RuntimeKind(runtime)
	b.Status = internal.BotStatus(status)
	b.AutoRestart = auto != 0
	b.LastStartedAt = parseNullableTime(started)
	b.LastStoppedAt = parseNullableTime(stopped)
	b.CreatedAt = parseTime(createdAt)
	b.UpdatedAt = parseTime(updatedAt)
	return b, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
