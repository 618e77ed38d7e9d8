package console

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/leapstack-labs/leapconsole/pkg/core"
)

// DefaultAutoLoginDelay lets a front end render once before auto-login runs.
const DefaultAutoLoginDelay = 300 * time.Millisecond

// LaunchCodeParam is the URL query parameter carrying an access code.
const LaunchCodeParam = "code"

// CodeSource is persisted storage holding an access code until it is used.
type CodeSource interface {
	// Load returns the stored code, or "" when there is none.
	Load(ctx context.Context) (string, error)
	// Clear removes the stored code.
	Clear(ctx context.Context) error
}

// AutoLogin describes where a launch-time access code may come from.
type AutoLogin struct {
	// Source is consulted first. May be nil.
	Source CodeSource
	// URLCode is the code from the launch URL, if any.
	URLCode string
	// Delay before the attempt. Zero means DefaultAutoLoginDelay; negative
	// means none.
	Delay time.Duration
}

// ErrAutoLoginSpent is returned when auto-login already ran since the
// console was last armed.
var ErrAutoLoginSpent = errors.New("auto-login already ran")

// RunAutoLogin registers a launch-time code with the backend and verifies
// it. A console starts armed and each run disarms it; later calls return
// ErrAutoLoginSpent until RearmAutoLogin. It reports whether a code was
// found and tried.
//
// On success the persisted code is cleared and the launch code reset. On
// failure the console is left on the login view with the code error set.
func (c *Console) RunAutoLogin(ctx context.Context, al AutoLogin) (bool, error) {
	c.autoLoginMu.Lock()
	spent := c.autoLoginSpent
	c.autoLoginSpent = true
	c.autoLoginMu.Unlock()

	if spent {
		return false, ErrAutoLoginSpent
	}
	return c.runAutoLogin(ctx, al)
}

// RearmAutoLogin allows one more RunAutoLogin. Front ends call it when a
// new launch arrives: a page load with a code, or a code dropped into the
// code store.
func (c *Console) RearmAutoLogin() {
	c.autoLoginMu.Lock()
	c.autoLoginSpent = false
	c.autoLoginMu.Unlock()
}

func (c *Console) runAutoLogin(ctx context.Context, al AutoLogin) (bool, error) {
	if al.URLCode != "" {
		c.store.Dispatch(LaunchCodeSet{Code: al.URLCode})
	}

	delay := al.Delay
	if delay == 0 {
		delay = DefaultAutoLoginDelay
	}
	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.store.Dispatch(AutoLoginFinished{})
			return false, ctx.Err()
		case <-timer.C:
		}
	}

	code := ""
	if al.Source != nil {
		stored, err := al.Source.Load(ctx)
		if err != nil {
			c.logger.Warn("failed to read persisted access code", slog.String("error", err.Error()))
		}
		code = stored
	}
	if code == "" {
		code = al.URLCode
	}
	if code == "" {
		c.store.Dispatch(AutoLoginFinished{})
		return false, nil
	}

	c.logger.Debug("attempting auto-login")
	c.store.Dispatch(ShowLogin{})
	c.store.Dispatch(CodeEdited{Code: code})

	normalized, err := core.ValidateCode(code)
	if err != nil {
		c.store.Dispatch(LoginFailed{Message: ErrorMessage(err)})
		c.store.Dispatch(AutoLoginFinished{})
		return true, err
	}

	c.store.Dispatch(LoginStarted{})
	if err := c.gw.StoreCode(ctx, normalized); err != nil {
		c.store.Dispatch(LoginFailed{Message: failure("Could not register code", err)})
		c.store.Dispatch(AutoLoginFinished{})
		return true, err
	}

	if err := c.verify(ctx, normalized); err != nil && !c.store.State().Authenticated {
		c.store.Dispatch(AutoLoginFinished{})
		return true, err
	}

	if al.Source != nil {
		if err := al.Source.Clear(ctx); err != nil {
			c.logger.Warn("failed to clear persisted access code", slog.String("error", err.Error()))
		}
	}
	c.store.Dispatch(AutoLoginFinished{ResetURL: true})
	return true, nil
}

// LaunchCode extracts the access code from a launch URL query.
func LaunchCode(query url.Values) string {
	return query.Get(LaunchCodeParam)
}

// ResetLaunchURL returns u without the access code parameter.
func ResetLaunchURL(u *url.URL) *url.URL {
	out := *u
	q := out.Query()
	q.Del(LaunchCodeParam)
	out.RawQuery = q.Encode()
	return &out
}
