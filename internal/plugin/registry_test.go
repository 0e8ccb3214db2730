package plugin

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type probe struct {
	Base
	calls    []string
	failLoad bool
	panicOn  string
}

func (p *probe) OnLoad() error {
	p.calls = append(p.calls, "load")
	if p.failLoad {
		return errors.New("no database")
	}
	return nil
}

func (p *probe) OnUnload() error {
	p.calls = append(p.calls, "unload")
	if p.panicOn == "unload" {
		panic("boom")
	}
	return nil
}

func (p *probe) OnReload() error {
	p.calls = append(p.calls, "reload")
	return nil
}

func (p *probe) Info() Info {
	return Info{Summary: "probe", Version: "1.0"}
}

func newTestRegistry(instances map[string]*probe) *Registry {
	catalog := Catalog{}
	for name, p := range instances {
		p := p
		catalog[name] = func(map[string]string, *slog.Logger) (Plugin, error) { return p, nil }
	}
	catalog["broken"] = func(map[string]string, *slog.Logger) (Plugin, error) {
		return nil, errors.New("missing option")
	}
	return NewRegistry(catalog, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRegistry_LoadOrder(t *testing.T) {
	a, b := &probe{}, &probe{}
	r := newTestRegistry(map[string]*probe{"a": a, "b": b})

	require.NoError(t, r.Load("b", nil))
	require.NoError(t, r.Load("a", map[string]string{"k": "v"}))

	assert.Equal(t, []string{"b", "a"}, r.List())
	assert.Equal(t, []string{"a", "b", "broken"}, r.Available())
	assert.Equal(t, []string{"load"}, a.calls)

	got, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "v", got.Options["k"])
	assert.Equal(t, Info{Summary: "probe", Version: "1.0"}, got.Plugin.(Describer).Info())
}

func TestRegistry_LoadErrors(t *testing.T) {
	r := newTestRegistry(map[string]*probe{"a": {}, "bad": {failLoad: true}})

	require.NoError(t, r.Load("a", nil))
	assert.ErrorIs(t, r.Load("a", nil), ErrAlreadyLoaded)
	assert.ErrorIs(t, r.Load("nope", nil), ErrNotFound)
	assert.ErrorContains(t, r.Load("broken", nil), "missing option")
	assert.ErrorContains(t, r.Load("bad", nil), "no database")

	assert.Equal(t, []string{"a"}, r.List())
}

func TestRegistry_UnloadReload(t *testing.T) {
	a := &probe{panicOn: "unload"}
	r := newTestRegistry(map[string]*probe{"a": a})

	require.NoError(t, r.Load("a", nil))
	require.NoError(t, r.Reload("a"))

	err := r.Unload("a")
	assert.ErrorContains(t, err, "panic: boom")
	assert.Empty(t, r.List())
	assert.Equal(t, []string{"load", "reload", "unload"}, a.calls)

	assert.ErrorIs(t, r.Unload("a"), ErrNotFound)
	assert.ErrorIs(t, r.Reload("a"), ErrNotFound)
}

func TestRegistry_Close(t *testing.T) {
	a, b := &probe{}, &probe{}
	r := newTestRegistry(map[string]*probe{"a": a, "b": b})
	require.NoError(t, r.Load("a", nil))
	require.NoError(t, r.Load("b", nil))

	r.Close()

	assert.Empty(t, r.List())
	assert.Equal(t, []string{"load", "unload"}, a.calls)
	assert.Equal(t, []string{"load", "unload"}, b.calls)
}

func TestSafe(t *testing.T) {
	assert.NoError(t, Safe(func() error { return nil }))
	assert.EqualError(t, Safe(func() error { panic("oops") }), "panic: oops")
}
