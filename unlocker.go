package unlocker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/unlocker/auth"
	"github.com/xraph/unlocker/event"
	"github.com/xraph/unlocker/plugin"
	"github.com/xraph/unlocker/store"
	"github.com/xraph/unlocker/types"
)

// Engine is the vault accounting and unlock-schedule engine.
//
// All mutations on one vault serialize on a per-vault lock, and every
// operation's full effect travels to the store as a single atomic Batch, so
// readers never observe a half-applied operation.
type Engine struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	recoverer auth.Recoverer
	access    AccessController
	pauser    Pauser
	payouts   PayoutGate
	mover     TokenMover
	voting    VotingPowerSink
	clock     func() time.Time

	// Per-vault locks, created lazily.
	mu       sync.Mutex
	vaultMus map[uint64]*sync.Mutex

	// createMu serializes sequential id assignment for new vaults and
	// schedules (count-then-commit).
	createMu sync.Mutex
}

// New creates a new Engine instance.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:     s,
		plugins:   plugin.NewRegistry(),
		logger:    slog.Default(),
		recoverer: auth.ECRecoverer{},
		access:    allowAllAccess{},
		pauser:    neverPaused{},
		payouts:   alwaysPayable{},
		mover:     nopMover{},
		voting:    nopVotingSink{},
		clock:     time.Now,
		vaultMus:  make(map[uint64]*sync.Mutex),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithRecoverer replaces the signature recoverer.
func WithRecoverer(r auth.Recoverer) Option {
	return func(e *Engine) {
		e.recoverer = r
	}
}

// WithAccessController sets the admin capability check.
func WithAccessController(a AccessController) Option {
	return func(e *Engine) {
		e.access = a
	}
}

// WithPauser sets the pause gate.
func WithPauser(p Pauser) Option {
	return func(e *Engine) {
		e.pauser = p
	}
}

// WithPayoutGate sets the payout kill switch.
func WithPayoutGate(g PayoutGate) Option {
	return func(e *Engine) {
		e.payouts = g
	}
}

// WithTokenMover sets the custody bridge.
func WithTokenMover(m TokenMover) Option {
	return func(e *Engine) {
		e.mover = m
	}
}

// WithVotingPowerSink sets the governance bridge that receives voting power
// from finalized allocations.
func WithVotingPowerSink(s VotingPowerSink) Option {
	return func(e *Engine) {
		e.voting = s
	}
}

// WithClock overrides the engine clock. Vesting math, refund windows, and
// event timestamps all read this clock.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// Start migrates the store and initializes plugins.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("unlocker engine started",
		"plugins", e.plugins.Count(),
	)

	return nil
}

// Stop shuts down the Engine.
func (e *Engine) Stop() error {
	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// Plugins exposes the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// now is the engine clock as unix seconds.
func (e *Engine) now() int64 { return e.clock().Unix() }

// lockVault serializes mutations of one vault. The returned func unlocks.
func (e *Engine) lockVault(vaultID uint64) func() {
	e.mu.Lock()
	m, ok := e.vaultMus[vaultID]
	if !ok {
		m = &sync.Mutex{}
		e.vaultMus[vaultID] = m
	}
	e.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// guardMutate rejects mutations while paused.
func (e *Engine) guardMutate(ctx context.Context) error {
	if e.pauser.Paused(ctx) {
		return ErrEnforcedPause
	}
	return nil
}

// guardPayout additionally rejects the payout surface while disabled.
func (e *Engine) guardPayout(ctx context.Context) error {
	if err := e.guardMutate(ctx); err != nil {
		return err
	}
	if !e.payouts.PayoutEnabled(ctx) {
		return ErrPayoutTemporarilyDisabled
	}
	return nil
}

// requireAdmin checks the admin capability.
func (e *Engine) requireAdmin(ctx context.Context, caller types.Address) error {
	if !e.access.IsAdmin(ctx, caller.Addr()) {
		return ErrCallerIsNotAuthorized
	}
	return nil
}

// requireSigner validates sig over p and checks the recovered address.
// A valid signature from the wrong key fails the same way as a broken one.
func (e *Engine) requireSigner(p auth.Payload, sig auth.Signature, expected types.Address) error {
	recovered, err := e.recoverer.Recover(p, sig)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrVerifySignatureFailed, err)
	}
	if recovered.Addr() != expected.Addr() {
		return ErrVerifySignatureFailed
	}
	return nil
}

// checkNonce fails fast on an already-consumed nonce. Commit re-checks
// atomically; this keeps the error ordering deterministic.
func (e *Engine) checkNonce(ctx context.Context, signer types.Address, nonce uint64) error {
	used, err := e.store.NonceUsed(ctx, signer, nonce)
	if err != nil {
		return err
	}
	if used {
		return ErrNonceHasBeenUsed
	}
	return nil
}

// commit applies the batch and emits events on success. undo, when non-nil,
// reverses a token transfer already performed for this operation.
func (e *Engine) commit(ctx context.Context, b *store.Batch, undo func(), events ...event.Event) error {
	if err := e.store.Commit(ctx, b); err != nil {
		if undo != nil {
			undo()
		}
		return err
	}

	for _, ev := range events {
		e.plugins.Emit(ctx, ev)
	}
	return nil
}

// meta stamps a fresh event identity on the engine clock.
func (e *Engine) meta() event.Meta { return event.NewMeta(e.now()) }

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
