package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/botdock/botdock/internal"
)

// AppendStatusHistory records one immutable status sample for a bot. cpu
// and mem may be nil when no stats were available. Rows are never mutated
// or deleted by this layer; retention pruning is an external concern.
func (s *Store) AppendStatusHistory(ctx context.Context, botID string, status internal.BotStatus, cpu, mem *float64) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO status_history (bot_id, status, cpu_percent, memory_mb, recorded_at)
VALUES (?,?,?,?,?)
`, botID, string(status), nullableFloat(cpu), nullableFloat(mem), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("append status history: %w", err)
	}
	return nil
}

// ListStatusHistory returns the bot's status samples recorded at or after
// since, oldest first.
func (s *Store) ListStatusHistory(ctx context.Context, botID string, since time.Time) ([]internal.StatusSample, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, bot_id, status, cpu_percent, memory_mb, recorded_at
FROM status_history
WHERE bot_id=? AND recorded_at>=?
ORDER BY recorded_at ASC
`, botID, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	defer rows.Close()

	var out []internal.StatusSample
	for rows.Next() {
		var (
			sample     internal.StatusSample
			status     string
			cpu        sql.NullFloat64
			mem        sql.NullFloat64
			recordedAt string
		)
		if err := rows.Scan(&sample.ID, &sample.BotID, &status, &cpu, &mem, &recordedAt); err != nil {
			return nil, fmt.Errorf("list status history: %w", err)
		}
		sample.Status = internal.BotStatus(status)
		if cpu.Valid {
			v := cpu.Float64
			sample.CPUPercent = &v
		}
		if mem.Valid {
			v := mem.Float64
			sample.MemoryMB = &v
		}
		sample.RecordedAt = parseTime(recordedAt)
		out = append(out, sample)
	}
	return out, rows.Err()
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
