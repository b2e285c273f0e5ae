// Package flow runs the authorization-code callback: exchange the code, fetch
// the profile, persist it and hand back the session identifier.
package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/brizzai/mobsq/internal/auth/models"
	"github.com/brizzai/mobsq/internal/auth/providers"
	"github.com/brizzai/mobsq/internal/logger"
	"github.com/brizzai/mobsq/internal/metrics"
	"github.com/brizzai/mobsq/internal/store"
	"go.uber.org/zap"
)

// Error is a failed flow. State is where the flow was when it failed.
type Error struct {
	State State
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("login flow failed while %s: %v", e.State, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Result is a completed flow.
type Result struct {
	SessionID string
	Profile   models.Profile
}

// Controller starts one Flow per callback request. It holds no per-flow state.
type Controller struct {
	provider providers.Provider
	store    store.Store
	metrics  *metrics.Metrics
}

func NewController(p providers.Provider, s store.Store, m *metrics.Metrics) *Controller {
	return &Controller{provider: p, store: s, metrics: m}
}

// Run drives a new flow to a terminal state. On success the profile has been
// stored exactly once; on failure nothing has been stored.
func (c *Controller) Run(ctx context.Context, code string) (*Result, error) {
	f := c.Start()
	return f.Run(ctx, code)
}

// Start returns a flow in AwaitingCode.
func (c *Controller) Start() *Flow {
	return &Flow{controller: c, state: AwaitingCode, history: []State{AwaitingCode}}
}

// Flow is a single callback's state machine. It is not safe for concurrent use.
type Flow struct {
	controller *Controller
	state      State
	history    []State
	failedIn   State
}

// State returns the current state.
func (f *Flow) State() State { return f.state }

// History returns every state the flow has been in, in order.
func (f *Flow) History() []State {
	out := make([]State, len(f.history))
	copy(out, f.history)
	return out
}

func (f *Flow) advance(ctx context.Context) {
	f.state = next[f.state]
	f.history = append(f.history, f.state)
	logger.FromContext(ctx).Debug("Login flow transition", zap.Stringer("state", f.state))
}

func (f *Flow) fail(ctx context.Context, err error) error {
	f.failedIn = f.state
	f.state = Failed
	f.history = append(f.history, Failed)
	f.controller.metrics.ObserveFlow("failed", f.failedIn.String())
	logger.FromContext(ctx).Error("Login flow failed",
		zap.Stringer("state", f.failedIn),
		zap.Error(err),
	)
	return &Error{State: f.failedIn, Err: err}
}

// Run executes the flow. The token exchange always completes before the
// profile fetch starts, and the store is touched only after both succeed.
func (f *Flow) Run(ctx context.Context, code string) (*Result, error) {
	if f.state != AwaitingCode {
		return nil, fmt.Errorf("flow already ran (state %s)", f.state)
	}
	c := f.controller
	log := logger.FromContext(ctx)

	if strings.TrimSpace(code) == "" {
		f.state = Failed
		f.history = append(f.history, Failed)
		c.metrics.ObserveFlow("failed", AwaitingCode.String())
		log.Warn("Login callback without authorization code")
		return nil, &Error{State: AwaitingCode, Err: fmt.Errorf("%w: code", models.ErrMissingParameter)}
	}

	f.advance(ctx) // ExchangingToken
	token, err := c.provider.ExchangeCode(ctx, code)
	if err != nil {
		return nil, f.fail(ctx, err)
	}
	log.Debug("Access token received", logger.Token("access_token", token.Value))

	f.advance(ctx) // FetchingProfile
	profile, err := c.provider.FetchProfile(ctx, token.Value)
	if err != nil {
		return nil, f.fail(ctx, err)
	}

	f.advance(ctx) // PersistingSession
	record := profile.WithAccessToken(token.Value)
	id, err := c.store.Insert(ctx, record)
	if err != nil {
		return nil, f.fail(ctx, fmt.Errorf("%w: %w", models.ErrPersistence, err))
	}

	f.advance(ctx) // Complete
	c.metrics.ObserveFlow("complete", Complete.String())
	log.Info("Profile stored", zap.String("session_id", id), zap.String("profile_id", record.ID()))
	return &Result{SessionID: id, Profile: record}, nil
}

// FailedIn returns the state a failed flow was in when it failed.
func (f *Flow) FailedIn() (State, bool) {
	return f.failedIn, f.state == Failed
}

// StateOf extracts the failing state from an error returned by Run.
func StateOf(err error) (State, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.State, true
	}
	return 0, false
}
