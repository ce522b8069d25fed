package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SaveBlindSession stores the encoded state of a blind test, replacing any
// earlier state with the same id.
func (s *Store) SaveBlindSession(ctx context.Context, userID int64, id string, payload []byte) error {
	if id == "" {
		return fmt.Errorf("store: blind session needs an id")
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO blind_sessions (id, user_id, payload) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			payload = excluded.payload,
			updated_at = CURRENT_TIMESTAMP
		WHERE blind_sessions.user_id = excluded.user_id
	`, id, userID, string(payload))
	if err != nil {
		return fmt.Errorf("saving blind session: %w", err)
	}
	// A conflicting row owned by someone else is left untouched.
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// LoadBlindSession returns the encoded state of a blind test.
func (s *Store) LoadBlindSession(ctx context.Context, userID int64, id string) ([]byte, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		"SELECT payload FROM blind_sessions WHERE id = ? AND user_id = ?", id, userID).Scan(&payload)
	if err != nil {
		return nil, notFound(err)
	}
	return []byte(payload), nil
}

// UpdateBlindSession passes the stored payload to fn and writes back what fn
// returns, in one transaction. The write only lands while the row still holds
// the payload fn was given; otherwise ErrConflict is returned. An error from
// fn leaves the row untouched.
func (s *Store) UpdateBlindSession(ctx context.Context, userID int64, id string, fn func([]byte) ([]byte, error)) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var old string
		err := tx.QueryRowContext(ctx,
			"SELECT payload FROM blind_sessions WHERE id = ? AND user_id = ?", id, userID).Scan(&old)
		if err != nil {
			return notFound(err)
		}

		next, err := fn([]byte(old))
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE blind_sessions SET payload = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND user_id = ? AND payload = ?
		`, string(next), id, userID, old)
		if err != nil {
			return fmt.Errorf("updating blind session: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrConflict
		}
		return nil
	})
}

// DeleteBlindSession removes a blind test.
func (s *Store) DeleteBlindSession(ctx context.Context, userID int64, id string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM blind_sessions WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
