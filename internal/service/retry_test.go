package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/ticket-allocation/internal/repository"
)

func TestRetry(t *testing.T) {
	transient := fmt.Errorf("lock wait: %w", repository.ErrTransient)

	tests := []struct {
		name      string
		failures  int
		failWith  error
		attempts  int
		wantCalls int
		wantErr   error
	}{
		{"first try", 0, nil, 3, 1, nil},
		{"recovers", 2, transient, 3, 3, nil},
		{"gives up", 5, transient, 3, 3, repository.ErrTransient},
		{"domain error is final", 5, ErrInvalidState, 3, 1, ErrInvalidState},
		{"zero attempts runs once", 5, transient, 0, 1, repository.ErrTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			got, err := Retry(context.Background(), tt.attempts, time.Microsecond, func(context.Context) (int, error) {
				calls++
				if calls <= tt.failures {
					return 0, tt.failWith
				}
				return 42, nil
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil || got != 42 {
				t.Errorf("got %d, %v; want 42, nil", got, err)
			}
		})
	}
}

func TestRetry_StopsOnDoneContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Retry(ctx, 5, time.Hour, func(context.Context) (struct{}, error) {
		calls++
		cancel()
		return struct{}{}, repository.ErrTransient
	})
	if !errors.Is(err, repository.ErrTransient) {
		t.Errorf("err = %v, want ErrTransient", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
