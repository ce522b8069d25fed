package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SetJudgeModel stores the user's judge model. A zero modelID clears it.
func (s *Store) SetJudgeModel(ctx context.Context, userID, modelID int64) error {
	var judge sql.NullInt64
	if modelID != 0 {
		if _, err := s.GetModel(ctx, userID, modelID); err != nil {
			return fmt.Errorf("judge model %d: %w", modelID, err)
		}
		judge = sql.NullInt64{Int64: modelID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_settings (user_id, judge_model_id) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET judge_model_id = excluded.judge_model_id
	`, userID, judge)
	return err
}

// JudgeModel returns the user's judge model id, or 0 when none is set.
func (s *Store) JudgeModel(ctx context.Context, userID int64) (int64, error) {
	var judge sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		"SELECT judge_model_id FROM user_settings WHERE user_id = ?", userID).Scan(&judge)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return judge.Int64, nil
}
