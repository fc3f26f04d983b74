package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"eamauth.org/internal/auth"
	"eamauth.org/internal/ids"
)

type purposeTokenStore struct{ db *sql.DB }

func (s *purposeTokenStore) Create(ctx context.Context, tok *auth.PurposeToken) error {
	if tok.ID == "" {
		tok.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into verification_tokens(id, user_id, purpose, token_hash, expires_at, used)
		 values($1,$2,$3,$4,$5,false)`,
		tok.ID, tok.UserID, string(tok.Purpose), tok.TokenHash, tok.ExpiresAt,
	)
	return err
}

func (s *purposeTokenStore) FindByHash(ctx context.Context, tokenHash string) (*auth.PurposeToken, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, user_id, purpose, token_hash, expires_at, used, created_at
		 from verification_tokens where token_hash=$1`, tokenHash)
	var tok auth.PurposeToken
	err := row.Scan(&tok.ID, &tok.UserID, &tok.Purpose, &tok.TokenHash,
		&tok.ExpiresAt, &tok.Used, &tok.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	return &tok, nil
}

// MarkUsed is the single-use gate: the predicate on used=false makes the flip
// exclusive, so a concurrent second consumer affects zero rows and loses.
func (s *purposeTokenStore) MarkUsed(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`update verification_tokens set used=true where id=$1 and used=false`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return auth.ErrTokenInvalid
	}
	return nil
}

func (s *purposeTokenStore) MarkAllUsed(ctx context.Context, userID string, purpose auth.Purpose) error {
	_, err := s.db.ExecContext(ctx,
		`update verification_tokens set used=true where user_id=$1 and purpose=$2 and used=false`,
		userID, string(purpose))
	return err
}

func (s *purposeTokenStore) HasValid(ctx context.Context, userID string, purpose auth.Purpose, now time.Time) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`select exists(
			select 1 from verification_tokens
			where user_id=$1 and purpose=$2 and used=false and expires_at > $3
		)`, userID, string(purpose), now).Scan(&exists)
	return exists, err
}

func (s *purposeTokenStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`delete from verification_tokens where expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
