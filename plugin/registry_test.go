package plugin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/unlocker/event"
)

// capturePlugin records which hooks fired.
type capturePlugin struct {
	name      string
	failWith  error
	created   []*event.VaultCreated
	claimed   []*event.TokenClaimed
	initCalls int
	shutdowns int
}

func (p *capturePlugin) Name() string { return p.name }

func (p *capturePlugin) OnInit(_ context.Context, _ interface{}) error {
	p.initCalls++
	return p.failWith
}

func (p *capturePlugin) OnShutdown(_ context.Context) error {
	p.shutdowns++
	return nil
}

func (p *capturePlugin) OnVaultCreated(_ context.Context, ev *event.VaultCreated) error {
	p.created = append(p.created, ev)
	return p.failWith
}

func (p *capturePlugin) OnTokenClaimed(_ context.Context, ev *event.TokenClaimed) error {
	p.claimed = append(p.claimed, ev)
	return nil
}

// bare implements only the base interface.
type bare struct{ name string }

func (b bare) Name() string { return b.name }

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	p := &capturePlugin{name: "capture"}

	require.NoError(t, r.Register(p))
	require.NoError(t, r.Register(bare{name: "bare"}))

	assert.Equal(t, 2, r.Count())
	assert.Same(t, p, r.Get("capture").(*capturePlugin))
	assert.Nil(t, r.Get("missing"))
	assert.Len(t, r.List(), 2)
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(bare{name: "dup"}))
	err := r.Register(bare{name: "dup"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestEmitDispatchesByType(t *testing.T) {
	r := NewRegistry()
	p := &capturePlugin{name: "capture"}
	require.NoError(t, r.Register(p))

	ctx := context.Background()
	created := &event.VaultCreated{Meta: event.NewMeta(100), VaultID: 1}
	claimed := &event.TokenClaimed{Meta: event.NewMeta(101), ScheduleID: 2}

	r.Emit(ctx, created)
	r.Emit(ctx, claimed)
	// No hook registered for this one; must be a no-op.
	r.Emit(ctx, &event.TokenPaid{Meta: event.NewMeta(102)})

	require.Len(t, p.created, 1)
	assert.Equal(t, uint64(1), p.created[0].VaultID)
	require.Len(t, p.claimed, 1)
	assert.Equal(t, uint64(2), p.claimed[0].ScheduleID)
}

func TestEmitSurvivesFailingPlugin(t *testing.T) {
	r := NewRegistry()
	failing := &capturePlugin{name: "failing", failWith: errors.New("boom")}
	healthy := &capturePlugin{name: "healthy"}
	require.NoError(t, r.Register(failing))
	require.NoError(t, r.Register(healthy))

	// A failing hook is logged, not propagated, and later plugins still run.
	r.Emit(context.Background(), &event.VaultCreated{Meta: event.NewMeta(100), VaultID: 9})

	assert.Len(t, failing.created, 1)
	assert.Len(t, healthy.created, 1)
}

func TestLifecycleEmission(t *testing.T) {
	r := NewRegistry()
	p := &capturePlugin{name: "capture"}
	require.NoError(t, r.Register(p))

	ctx := context.Background()
	r.EmitInit(ctx, nil)
	r.EmitShutdown(ctx)

	assert.Equal(t, 1, p.initCalls)
	assert.Equal(t, 1, p.shutdowns)
}
