package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestIssueSupersedesOutstandingTokens(t *testing.T) {
	ctx := context.Background()
	p := NewPurposeTokens(newMemStore())

	first, _, err := p.Issue(ctx, "user-1", PurposeEmailVerification)
	if err != nil {
		t.Fatalf("Issue first: %v", err)
	}
	second, _, err := p.Issue(ctx, "user-1", PurposeEmailVerification)
	if err != nil {
		t.Fatalf("Issue second: %v", err)
	}

	if _, err := p.Consume(ctx, first, PurposeEmailVerification); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("superseded token consumed: %v", err)
	}
	userID, err := p.Consume(ctx, second, PurposeEmailVerification)
	if err != nil {
		t.Fatalf("Consume second: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("userID = %q", userID)
	}
}

func TestIssueDoesNotSupersedeOtherPurpose(t *testing.T) {
	ctx := context.Background()
	p := NewPurposeTokens(newMemStore())

	verify, _, err := p.Issue(ctx, "user-1", PurposeEmailVerification)
	if err != nil {
		t.Fatalf("Issue verification: %v", err)
	}
	if _, _, err := p.Issue(ctx, "user-1", PurposePasswordReset); err != nil {
		t.Fatalf("Issue reset: %v", err)
	}

	if _, err := p.Consume(ctx, verify, PurposeEmailVerification); err != nil {
		t.Fatalf("verification token superseded by reset issue: %v", err)
	}
}

func TestConsumeIsSingleUse(t *testing.T) {
	ctx := context.Background()
	p := NewPurposeTokens(newMemStore())

	raw, _, err := p.Issue(ctx, "user-1", PurposePasswordReset)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := p.Consume(ctx, raw, PurposePasswordReset); err != nil {
		t.Fatalf("first Consume: %v", err)
	}
	if _, err := p.Consume(ctx, raw, PurposePasswordReset); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("second Consume = %v, want ErrTokenInvalid", err)
	}
}

func TestConsumeRejectsWrongPurpose(t *testing.T) {
	ctx := context.Background()
	p := NewPurposeTokens(newMemStore())

	raw, _, err := p.Issue(ctx, "user-1", PurposeEmailVerification)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := p.Consume(ctx, raw, PurposePasswordReset); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("cross-purpose Consume = %v, want ErrTokenInvalid", err)
	}
	// Still consumable for its real purpose.
	if _, err := p.Consume(ctx, raw, PurposeEmailVerification); err != nil {
		t.Fatalf("Consume after cross-purpose attempt: %v", err)
	}
}

func TestConsumeRejectsUnknownAndEmpty(t *testing.T) {
	ctx := context.Background()
	p := NewPurposeTokens(newMemStore())

	if _, err := p.Consume(ctx, "", PurposePasswordReset); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("empty token = %v", err)
	}
	if _, err := p.Consume(ctx, "never-issued", PurposePasswordReset); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("unknown token = %v", err)
	}
}

func TestConsumeRejectsExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewPurposeTokens(newMemStore()).WithPurposeClock(func() time.Time { return now })

	raw, tok, err := p.Issue(ctx, "user-1", PurposePasswordReset)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if got := tok.ExpiresAt; !got.Equal(now.Add(time.Hour)) {
		t.Fatalf("reset expiry = %v, want %v", got, now.Add(time.Hour))
	}

	now = now.Add(time.Hour + time.Minute)
	if _, err := p.Consume(ctx, raw, PurposePasswordReset); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expired token consumed: %v", err)
	}
}

func TestVerificationTokenTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewPurposeTokens(newMemStore()).WithPurposeClock(func() time.Time { return now })

	_, tok, err := p.Issue(ctx, "user-1", PurposeEmailVerification)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if got := tok.ExpiresAt; !got.Equal(now.Add(24 * time.Hour)) {
		t.Fatalf("verification expiry = %v, want %v", got, now.Add(24*time.Hour))
	}
}

func TestPeekDoesNotConsume(t *testing.T) {
	ctx := context.Background()
	p := NewPurposeTokens(newMemStore())

	raw, _, err := p.Issue(ctx, "user-1", PurposePasswordReset)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	for i := 0; i < 3; i++ {
		userID, err := p.Peek(ctx, raw, PurposePasswordReset)
		if err != nil {
			t.Fatalf("Peek %d: %v", i, err)
		}
		if userID != "user-1" {
			t.Fatalf("Peek userID = %q", userID)
		}
	}
	if _, err := p.Consume(ctx, raw, PurposePasswordReset); err != nil {
		t.Fatalf("Consume after peeks: %v", err)
	}
	if _, err := p.Peek(ctx, raw, PurposePasswordReset); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("Peek after consume = %v, want ErrTokenInvalid", err)
	}
}

func TestConcurrentConsumeExactlyOneWins(t *testing.T) {
	ctx := context.Background()
	p := NewPurposeTokens(newMemStore())

	raw, _, err := p.Issue(ctx, "user-1", PurposeEmailVerification)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	const workers = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if _, err := p.Consume(ctx, raw, PurposeEmailVerification); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("wins = %d, want exactly 1", wins)
	}
}

func TestHasOutstandingValid(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewPurposeTokens(newMemStore()).WithPurposeClock(func() time.Time { return now })

	ok, err := p.HasOutstandingValid(ctx, "user-1", PurposeEmailVerification)
	if err != nil || ok {
		t.Fatalf("before issue: %v, %v", ok, err)
	}

	raw, _, err := p.Issue(ctx, "user-1", PurposeEmailVerification)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if ok, _ := p.HasOutstandingValid(ctx, "user-1", PurposeEmailVerification); !ok {
		t.Fatal("outstanding token not reported")
	}

	if _, err := p.Consume(ctx, raw, PurposeEmailVerification); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if ok, _ := p.HasOutstandingValid(ctx, "user-1", PurposeEmailVerification); ok {
		t.Fatal("consumed token still reported outstanding")
	}
}

func TestSweepDeletesExpiredOnly(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewPurposeTokens(newMemStore()).WithPurposeClock(func() time.Time { return now })

	_, _, err := p.Issue(ctx, "user-1", PurposePasswordReset) // expires in 1h
	if err != nil {
		t.Fatalf("Issue reset: %v", err)
	}
	live, _, err := p.Issue(ctx, "user-2", PurposeEmailVerification) // expires in 24h
	if err != nil {
		t.Fatalf("Issue verification: %v", err)
	}

	now = now.Add(2 * time.Hour)
	n, err := p.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("swept %d rows, want 1", n)
	}
	if _, err := p.Consume(ctx, live, PurposeEmailVerification); err != nil {
		t.Fatalf("live token swept: %v", err)
	}
}

func TestIssueValidatesInput(t *testing.T) {
	ctx := context.Background()
	p := NewPurposeTokens(newMemStore())

	if _, _, err := p.Issue(ctx, "", PurposeEmailVerification); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty user accepted: %v", err)
	}
	if _, _, err := p.Issue(ctx, "user-1", Purpose("NOPE")); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unknown purpose accepted: %v", err)
	}
}
