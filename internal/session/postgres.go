package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cms-admin-gateway/internal/model"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Save(ctx context.Context, record *model.SessionRecord) error {
	userJSON, err := json.Marshal(record.User)
	if err != nil {
		return fmt.Errorf("encode session user: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO sessions (id, user_record, access_token, refresh_token, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		   user_record = EXCLUDED.user_record,
		   access_token = EXCLUDED.access_token,
		   refresh_token = EXCLUDED.refresh_token,
		   updated_at = EXCLUDED.updated_at`,
		record.ID, userJSON, record.AccessToken, record.RefreshToken,
		record.CreatedAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, id string) (*model.SessionRecord, error) {
	var (
		record   model.SessionRecord
		userJSON []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_record, access_token, refresh_token, created_at, updated_at
		 FROM sessions WHERE id = $1`, id).
		Scan(&record.ID, &userJSON, &record.AccessToken, &record.RefreshToken,
			&record.CreatedAt, &record.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	if len(userJSON) > 0 {
		var user model.User
		if err := json.Unmarshal(userJSON, &user); err != nil {
			return nil, fmt.Errorf("decode session user: %w", err)
		}
		record.User = &user
	}

	return &record, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CleanStale removes sessions that have not been touched within maxAge.
func (s *PostgresStore) CleanStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM sessions WHERE updated_at < $1`, time.Now().UTC().Add(-maxAge))
	if err != nil {
		return 0, fmt.Errorf("clean stale sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
