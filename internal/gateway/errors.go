package gateway

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// ErrConnectionUnavailable covers refused connections, DNS failures and
// similar network-level problems: the address itself is worth checking.
var ErrConnectionUnavailable = errors.New("connection unavailable")

// ErrServerTimeout means the server did not become selectable within the
// server-selection window; the host resolved but never answered in time.
var ErrServerTimeout = errors.New("server selection timed out")

func classifyConnectError(err error) error {
	if mongo.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrServerTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrConnectionUnavailable, err)
}
