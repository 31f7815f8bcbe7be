package walrus

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/suilocker/suilocker/internal/common"
	"github.com/suilocker/suilocker/internal/dbx"
)

// State is the saga progress marker persisted between steps.
type State string

const (
	StateEncoded    State = "encoded"
	StateRegistered State = "registered"
	StateWritten    State = "written"
	StateCertified  State = "certified"
)

// Checkpoint is the persisted record of one in-flight upload. Payload
// holds the raw (already encrypted) bytes so Resume can re-run the
// deterministic encoding step without the original caller.
type Checkpoint struct {
	ID            string
	BlobID        string
	State         State
	BlobObjectID  string
	Size          uint64
	Payload       []byte
	Confirmations []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Store persists upload checkpoints.
type Store interface {
	Save(ctx context.Context, cp *Checkpoint) error
	Get(ctx context.Context, id string) (*Checkpoint, error)
	// ListIncomplete returns checkpoints that never reached certification,
	// oldest first. A registered-but-never-certified checkpoint is an
	// on-chain resource leak worth surfacing.
	ListIncomplete(ctx context.Context) ([]*Checkpoint, error)
	Delete(ctx context.Context, id string) error
}

// SQLiteStore implements Store on a local sqlite database.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Init creates the checkpoint table if missing.
func (s *SQLiteStore) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS upload_checkpoints (
			id             TEXT PRIMARY KEY,
			blob_id        TEXT NOT NULL,
			state          TEXT NOT NULL,
			blob_object_id TEXT NOT NULL DEFAULT '',
			size           INTEGER NOT NULL,
			payload        BLOB NOT NULL,
			confirmations  TEXT NOT NULL DEFAULT '[]',
			created_at     TIMESTAMP NOT NULL,
			updated_at     TIMESTAMP NOT NULL
		)`)
	return err
}

func (s *SQLiteStore) Save(ctx context.Context, cp *Checkpoint) error {
	confirmations, err := json.Marshal(cp.Confirmations)
	if err != nil {
		return fmt.Errorf("marshalling confirmations: %w", err)
	}

	now := time.Now().UTC()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO upload_checkpoints
				(id, blob_id, state, blob_object_id, size, payload, confirmations, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				state          = excluded.state,
				blob_object_id = excluded.blob_object_id,
				confirmations  = excluded.confirmations,
				updated_at     = excluded.updated_at`,
			cp.ID, cp.BlobID, string(cp.State), cp.BlobObjectID, cp.Size,
			cp.Payload, string(confirmations), cp.CreatedAt, cp.UpdatedAt)
		return err
	})
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Checkpoint, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, blob_id, state, blob_object_id, size, payload, confirmations, created_at, updated_at
		FROM upload_checkpoints WHERE id = ?`, id)

	cp, err := scanCheckpoint(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("checkpoint %s: %w", id, common.ErrNotFound)
	}
	return cp, err
}

func (s *SQLiteStore) ListIncomplete(ctx context.Context) ([]*Checkpoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, blob_id, state, blob_object_id, size, payload, confirmations, created_at, updated_at
		FROM upload_checkpoints WHERE state != ? ORDER BY created_at`, string(StateCertified))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Checkpoint
	for rows.Next() {
		cp, err := scanCheckpoint(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM upload_checkpoints WHERE id = ?`, id)
	return err
}

func scanCheckpoint(scan func(dest ...any) error) (*Checkpoint, error) {
	var cp Checkpoint
	var state, confirmations string
	if err := scan(&cp.ID, &cp.BlobID, &state, &cp.BlobObjectID, &cp.Size,
		&cp.Payload, &confirmations, &cp.CreatedAt, &cp.UpdatedAt); err != nil {
		return nil, err
	}
	cp.State = State(state)
	if err := json.Unmarshal([]byte(confirmations), &cp.Confirmations); err != nil {
		return nil, fmt.Errorf("unmarshalling confirmations: %w", err)
	}
	return &cp, nil
}
