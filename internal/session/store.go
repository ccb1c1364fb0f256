package session

import (
	"context"

	"cms-admin-gateway/internal/model"
)

// Store is the durable half of the session's dual persistence; the cookie
// mirror is the other half. Implementations: Postgres for deployment,
// in-memory for tests.
type Store interface {
	// Save upserts the full record. Writes are whole-record on purpose so a
	// token update can never leave the row half-new.
	Save(ctx context.Context, record *model.SessionRecord) error
	// Load returns model.ErrSessionNotFound for unknown IDs.
	Load(ctx context.Context, id string) (*model.SessionRecord, error)
	// Delete is idempotent; deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}
