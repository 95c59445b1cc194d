package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/unlocker/event"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit                  []OnInit
	onShutdown              []OnShutdown
	onVaultCreated          []OnVaultCreated
	onVaultOperatorUpdated  []OnVaultOperatorUpdated
	onTokenDeposited        []OnTokenDeposited
	onTokenAllocated        []OnTokenAllocated
	onTokenInvested         []OnTokenInvested
	onTokenClaimed          []OnTokenClaimed
	onTokenRefunded         []OnTokenRefunded
	onTokenPaid             []OnTokenPaid
	onPaymentTokenWithdrawn []OnPaymentTokenWithdrawn
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnVaultCreated); ok {
		r.onVaultCreated = append(r.onVaultCreated, v)
	}
	if v, ok := p.(OnVaultOperatorUpdated); ok {
		r.onVaultOperatorUpdated = append(r.onVaultOperatorUpdated, v)
	}
	if v, ok := p.(OnTokenDeposited); ok {
		r.onTokenDeposited = append(r.onTokenDeposited, v)
	}
	if v, ok := p.(OnTokenAllocated); ok {
		r.onTokenAllocated = append(r.onTokenAllocated, v)
	}
	if v, ok := p.(OnTokenInvested); ok {
		r.onTokenInvested = append(r.onTokenInvested, v)
	}
	if v, ok := p.(OnTokenClaimed); ok {
		r.onTokenClaimed = append(r.onTokenClaimed, v)
	}
	if v, ok := p.(OnTokenRefunded); ok {
		r.onTokenRefunded = append(r.onTokenRefunded, v)
	}
	if v, ok := p.(OnTokenPaid); ok {
		r.onTokenPaid = append(r.onTokenPaid, v)
	}
	if v, ok := p.(OnPaymentTokenWithdrawn); ok {
		r.onPaymentTokenWithdrawn = append(r.onPaymentTokenWithdrawn, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	// Check each interface
	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	// List all interfaces to check
	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnVaultCreated)(nil)).Elem(), "OnVaultCreated")
	checkInterface(reflect.TypeOf((*OnVaultOperatorUpdated)(nil)).Elem(), "OnVaultOperatorUpdated")
	checkInterface(reflect.TypeOf((*OnTokenDeposited)(nil)).Elem(), "OnTokenDeposited")
	checkInterface(reflect.TypeOf((*OnTokenAllocated)(nil)).Elem(), "OnTokenAllocated")
	checkInterface(reflect.TypeOf((*OnTokenInvested)(nil)).Elem(), "OnTokenInvested")
	checkInterface(reflect.TypeOf((*OnTokenClaimed)(nil)).Elem(), "OnTokenClaimed")
	checkInterface(reflect.TypeOf((*OnTokenRefunded)(nil)).Elem(), "OnTokenRefunded")
	checkInterface(reflect.TypeOf((*OnTokenPaid)(nil)).Elem(), "OnTokenPaid")
	checkInterface(reflect.TypeOf((*OnPaymentTokenWithdrawn)(nil)).Elem(), "OnPaymentTokenWithdrawn")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitVaultCreated emits a vault created event.
func (r *Registry) EmitVaultCreated(ctx context.Context, ev *event.VaultCreated) {
	r.mu.RLock()
	plugins := r.onVaultCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnVaultCreated(ctx, ev)
		}); err != nil {
			r.logger.Warn("plugin OnVaultCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitVaultOperatorUpdated emits an operator updated event.
func (r *Registry) EmitVaultOperatorUpdated(ctx context.Context, ev *event.VaultOperatorUpdated) {
	r.mu.RLock()
	plugins := r.onVaultOperatorUpdated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnVaultOperatorUpdated(ctx, ev)
		}); err != nil {
			r.logger.Warn("plugin OnVaultOperatorUpdated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitTokenDeposited emits a token deposited event.
func (r *Registry) EmitTokenDeposited(ctx context.Context, ev *event.TokenDeposited) {
	r.mu.RLock()
	plugins := r.onTokenDeposited
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTokenDeposited(ctx, ev)
		}); err != nil {
			r.logger.Warn("plugin OnTokenDeposited failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitTokenAllocated emits a token allocated event.
func (r *Registry) EmitTokenAllocated(ctx context.Context, ev *event.TokenAllocated) {
	r.mu.RLock()
	plugins := r.onTokenAllocated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTokenAllocated(ctx, ev)
		}); err != nil {
			r.logger.Warn("plugin OnTokenAllocated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitTokenInvested emits a token invested event.
func (r *Registry) EmitTokenInvested(ctx context.Context, ev *event.TokenInvested) {
	r.mu.RLock()
	plugins := r.onTokenInvested
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTokenInvested(ctx, ev)
		}); err != nil {
			r.logger.Warn("plugin OnTokenInvested failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitTokenClaimed emits a token claimed event.
func (r *Registry) EmitTokenClaimed(ctx context.Context, ev *event.TokenClaimed) {
	r.mu.RLock()
	plugins := r.onTokenClaimed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTokenClaimed(ctx, ev)
		}); err != nil {
			r.logger.Warn("plugin OnTokenClaimed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitTokenRefunded emits a token refunded event.
func (r *Registry) EmitTokenRefunded(ctx context.Context, ev *event.TokenRefunded) {
	r.mu.RLock()
	plugins := r.onTokenRefunded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTokenRefunded(ctx, ev)
		}); err != nil {
			r.logger.Warn("plugin OnTokenRefunded failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitTokenPaid emits a token paid event.
func (r *Registry) EmitTokenPaid(ctx context.Context, ev *event.TokenPaid) {
	r.mu.RLock()
	plugins := r.onTokenPaid
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTokenPaid(ctx, ev)
		}); err != nil {
			r.logger.Warn("plugin OnTokenPaid failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPaymentTokenWithdrawn emits a payment token withdrawn event.
func (r *Registry) EmitPaymentTokenWithdrawn(ctx context.Context, ev *event.PaymentTokenWithdrawn) {
	r.mu.RLock()
	plugins := r.onPaymentTokenWithdrawn
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPaymentTokenWithdrawn(ctx, ev)
		}); err != nil {
			r.logger.Warn("plugin OnPaymentTokenWithdrawn failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// Emit dispatches an event to the matching typed hook. The engine calls this
// once per event after each commit.
func (r *Registry) Emit(ctx context.Context, ev event.Event) {
	switch e := ev.(type) {
	case *event.VaultCreated:
		r.EmitVaultCreated(ctx, e)
	case *event.VaultOperatorUpdated:
		r.EmitVaultOperatorUpdated(ctx, e)
	case *event.TokenDeposited:
		r.EmitTokenDeposited(ctx, e)
	case *event.TokenAllocated:
		r.EmitTokenAllocated(ctx, e)
	case *event.TokenInvested:
		r.EmitTokenInvested(ctx, e)
	case *event.TokenClaimed:
		r.EmitTokenClaimed(ctx, e)
	case *event.TokenRefunded:
		r.EmitTokenRefunded(ctx, e)
	case *event.TokenPaid:
		r.EmitTokenPaid(ctx, e)
	case *event.PaymentTokenWithdrawn:
		r.EmitPaymentTokenWithdrawn(ctx, e)
	default:
		r.logger.Warn("unknown event kind", "kind", ev.Kind())
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the accounting pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
