package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/fd1az/crossarb/internal/apperror"
)

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cfg := DefaultConfig("venue-x")
	cfg.ConsecutiveFailures = 2
	cfg.Timeout = time.Hour
	cb := New[float64](cfg)

	boom := errors.New("boom")
	for i := 0; i < 2; i++ {
		if _, err := cb.Execute(func() (float64, error) { return 0, boom }); !errors.Is(err, boom) {
			t.Fatalf("call %d: err = %v, want boom", i, err)
		}
	}

	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("state = %s, want open", cb.State())
	}

	_, err := cb.Execute(func() (float64, error) { return 1, nil })
	if apperror.GetCode(err) != apperror.CodeCircuitOpen {
		t.Errorf("code = %s, want %s", apperror.GetCode(err), apperror.CodeCircuitOpen)
	}
}

func TestCircuitBreaker_IgnoredErrorsDoNotTrip(t *testing.T) {
	cfg := DefaultConfig("venue-y")
	cfg.ConsecutiveFailures = 1
	cfg.IsSuccessful = func(err error) bool {
		return err == nil || apperror.HasCode(err, apperror.CodeUnsupported)
	}
	cb := New[float64](cfg)

	for i := 0; i < 3; i++ {
		cb.Execute(func() (float64, error) { return 0, apperror.Unsupported("venue-y", "Fee") })
	}

	if cb.State() != gobreaker.StateClosed {
		t.Errorf("state = %s, want closed", cb.State())
	}
}
