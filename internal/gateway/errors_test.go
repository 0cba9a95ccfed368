package gateway

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassifyConnectErrorTimeout(t *testing.T) {
	err := classifyConnectError(context.DeadlineExceeded)
	if !errors.Is(err, ErrServerTimeout) {
		t.Fatalf("deadline exceeded should classify as server timeout, got %v", err)
	}
	if errors.Is(err, ErrConnectionUnavailable) {
		t.Fatalf("timeout must not also classify as connection unavailable")
	}
}

func TestClassifyConnectErrorWrappedTimeout(t *testing.T) {
	wrapped := fmt.Errorf("server selection error: %w", context.DeadlineExceeded)
	if !errors.Is(classifyConnectError(wrapped), ErrServerTimeout) {
		t.Fatalf("wrapped deadline should still classify as server timeout")
	}
}

func TestClassifyConnectErrorNetwork(t *testing.T) {
	err := classifyConnectError(errors.New("connection refused"))
	if !errors.Is(err, ErrConnectionUnavailable) {
		t.Fatalf("network error should classify as connection unavailable, got %v", err)
	}
}
