package store

import (
	"context"
	"fmt"

	"github.com/botdock/botdock/internal"
)

// GetEnvVars returns the bot's environment variables with values still
// encrypted.
func (s *Store) GetEnvVars(ctx context.Context, botID string) ([]internal.EnvVar, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT bot_id, key, value_enc FROM env_vars WHERE bot_id=? ORDER BY key`, botID)
	if err != nil {
		return nil, fmt.Errorf("get env vars: %w", err)
	}
	defer rows.Close()

	var out []internal.EnvVar
	for rows.Next() {
		var v internal.EnvVar
		if err := rows.Scan(&v.BotID, &v.Key, &v.Value); err != nil {
			return nil, fmt.Errorf("get env vars: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// UpsertEnvVar inserts or replaces one environment variable. The value must
// already be encrypted by the caller.
func (s *Store) UpsertEnvVar(ctx context.Context, v internal.EnvVar) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO env_vars (bot_id, key, value_enc) VALUES (?,?,?)
ON CONFLICT (bot_id, key) DO UPDATE SET value_enc=excluded.value_enc
`, v.BotID, v.Key, v.Value)
	if err != nil {
		return fmt.Errorf("upsert env var: %w", err)
	}
	return nil
}

// DeleteEnvVar removes one environment variable. Deleting a missing key is
// a no-op.
func (s *Store) DeleteEnvVar(ctx context.Context, botID, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM env_vars WHERE bot_id=? AND key=?`, botID, key)
	if err != nil {
		return fmt.Errorf("delete env var: %w", err)
	}
	return nil
}
