package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/fd1az/crossarb/internal/apperror"
)

func TestNew_Unlimited(t *testing.T) {
	l := New(0)
	if l != nil {
		t.Fatal("expected nil limiter for zero rate")
	}
	if err := l.Wait(context.Background()); err != nil {
		t.Errorf("nil limiter Wait: %v", err)
	}
	if !l.Allow() {
		t.Error("nil limiter should always allow")
	}
}

func TestWait_ContextExpires(t *testing.T) {
	l := NewWithBurst(0.001, 1)
	if !l.Allow() {
		t.Fatal("first token should be available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	if apperror.GetCode(err) != apperror.CodeRateLimitExceeded {
		t.Errorf("code = %s, want %s", apperror.GetCode(err), apperror.CodeRateLimitExceeded)
	}
}
