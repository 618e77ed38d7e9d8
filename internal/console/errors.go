package console

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/leapstack-labs/leapconsole/pkg/client"
)

// ErrNotAuthenticated is returned by gateway operations attempted before
// the access code has been verified.
var ErrNotAuthenticated = errors.New("console is locked: verify an access code first")

// ErrNoTable is returned by row operations when no table is open.
var ErrNoTable = errors.New("no table is open")

// ErrorMessage reduces err to the single human-readable string shown to
// the user.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "The backend did not answer in time."
	}
	if errors.Is(err, context.Canceled) {
		return "The request was cancelled."
	}
	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return fmt.Sprintf("Cannot reach the backend (%s).", netErr.Op)
	}
	return err.Error()
}

// failure prefixes the user-facing message with what was being attempted.
func failure(what string, err error) string {
	return what + ": " + ErrorMessage(err)
}
