package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"time"

	"eamauth.org/internal/ids"
	"eamauth.org/internal/obs"
)

const (
	// Raw token entropy; 32 bytes encodes to a 43-char base64url value.
	purposeTokenBytes = 32

	verificationTTL = 24 * time.Hour
	resetTTL        = time.Hour
)

// PurposeTokens issues and consumes the persistent single-use tokens behind
// e-mail verification and password reset. Raw values never hit storage; rows
// keep the sha256 only.
type PurposeTokens struct {
	store Store
	now   func() time.Time
}

// NewPurposeTokens builds the component on top of a Store.
func NewPurposeTokens(store Store) *PurposeTokens {
	return &PurposeTokens{store: store, now: time.Now}
}

// WithPurposeClock overrides the time source (tests).
func (p *PurposeTokens) WithPurposeClock(fn func() time.Time) *PurposeTokens {
	if fn != nil {
		p.now = fn
	}
	return p
}

func ttlFor(purpose Purpose) (time.Duration, error) {
	switch purpose {
	case PurposeEmailVerification:
		return verificationTTL, nil
	case PurposePasswordReset:
		return resetTTL, nil
	default:
		return 0, ErrInvalidInput
	}
}

// generateOpaqueToken returns a random base64url value without padding.
func generateOpaqueToken() (string, error) {
	b := make([]byte, purposeTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// hashToken is the at-rest form of a raw token value.
func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Issue supersedes every outstanding unused token of (user, purpose), then
// creates a fresh one. The returned string is the raw value destined for the
// e-mail link; the persisted record holds only its hash.
func (p *PurposeTokens) Issue(ctx context.Context, userID string, purpose Purpose) (string, *PurposeToken, error) {
	ttl, err := ttlFor(purpose)
	if err != nil {
		return "", nil, err
	}
	if userID == "" {
		return "", nil, ErrInvalidInput
	}

	store := p.store.PurposeTokens(ctx)
	if err := store.MarkAllUsed(ctx, userID, purpose); err != nil {
		return "", nil, err
	}

	raw, err := generateOpaqueToken()
	if err != nil {
		return "", nil, err
	}
	now := p.now().UTC()
	tok := &PurposeToken{
		ID:        ids.New(),
		UserID:    userID,
		Purpose:   purpose,
		TokenHash: hashToken(raw),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := store.Create(ctx, tok); err != nil {
		return "", nil, err
	}
	return raw, tok, nil
}

// lookup validates a raw value against purpose, expiry and the used flag.
// Every rejection is ErrTokenInvalid; callers learn nothing more.
func (p *PurposeTokens) lookup(ctx context.Context, raw string, purpose Purpose) (*PurposeToken, error) {
	if raw == "" {
		return nil, ErrTokenInvalid
	}
	tok, err := p.store.PurposeTokens(ctx).FindByHash(ctx, hashToken(raw))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	if tok.Purpose != purpose {
		return nil, ErrTokenInvalid
	}
	if !tok.Usable(p.now()) {
		return nil, ErrTokenInvalid
	}
	return tok, nil
}

// Consume validates the raw value and atomically marks it used, returning the
// owning user id. Of two concurrent consumers of the same token exactly one
// succeeds; the loser sees ErrTokenInvalid.
func (p *PurposeTokens) Consume(ctx context.Context, raw string, purpose Purpose) (string, error) {
	tok, err := p.lookup(ctx, raw, purpose)
	if err != nil {
		return "", err
	}
	if err := p.store.PurposeTokens(ctx).MarkUsed(ctx, tok.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrTokenInvalid
		}
		return "", err
	}
	obs.PurposeTokenConsumed(string(purpose))
	return tok.UserID, nil
}

// Peek runs the same validation as Consume without flipping the used flag.
// Used by the reset-link redirect; the token stays consumable until the
// confirmation call consumes it.
func (p *PurposeTokens) Peek(ctx context.Context, raw string, purpose Purpose) (string, error) {
	tok, err := p.lookup(ctx, raw, purpose)
	if err != nil {
		return "", err
	}
	return tok.UserID, nil
}

// HasOutstandingValid reports whether the user already holds an unused,
// unexpired token of the purpose. Used to rate-limit re-issuance.
func (p *PurposeTokens) HasOutstandingValid(ctx context.Context, userID string, purpose Purpose) (bool, error) {
	return p.store.PurposeTokens(ctx).HasValid(ctx, userID, purpose, p.now())
}

// Sweep deletes rows past expiry. Purely a storage-growth bound: expired
// tokens are already rejected at consume time.
func (p *PurposeTokens) Sweep(ctx context.Context) (int64, error) {
	n, err := p.store.PurposeTokens(ctx).DeleteExpired(ctx, p.now())
	if err == nil && n > 0 {
		obs.PurposeTokensSwept(n)
	}
	return n, err
}

// RunSweeper runs Sweep on the interval until the context is cancelled. Safe
// to run alongside issue/consume traffic.
func (p *PurposeTokens) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.Sweep(ctx); err != nil {
				obs.LogRequest(map[string]any{
					"level": "error",
					"msg":   "purpose token sweep failed",
					"error": err.Error(),
				})
			}
		}
	}
}
