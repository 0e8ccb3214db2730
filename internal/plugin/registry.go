package plugin

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

var (
	ErrNotFound      = errors.New("plugin not found")
	ErrAlreadyLoaded = errors.New("plugin already loaded")
)

// Factory creates a plugin from its configured options.
type Factory func(opts map[string]string, logger *slog.Logger) (Plugin, error)

// Catalog maps plugin names to their factories.
type Catalog map[string]Factory

// Loaded is a plugin instance and the options it was created with.
type Loaded struct {
	Name    string
	Options map[string]string
	Plugin  Plugin
}

// Registry keeps loaded plugins in load order. Like the rule router it is
// only used from the daemon loop.
type Registry struct {
	catalog Catalog
	log     *slog.Logger
	loaded  []*Loaded
}

func NewRegistry(catalog Catalog, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{catalog: catalog, log: logger}
}

// Available returns the names of every plugin that can be loaded.
func (r *Registry) Available() []string {
	names := make([]string, 0, len(r.catalog))
	for name := range r.catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns the loaded plugin names in load order.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.loaded))
	for _, l := range r.loaded {
		names = append(names, l.Name)
	}
	return names
}

// Loaded returns the loaded plugins in load order.
func (r *Registry) Loaded() []Loaded {
	out := make([]Loaded, 0, len(r.loaded))
	for _, l := range r.loaded {
		out = append(out, *l)
	}
	return out
}

func (r *Registry) Get(name string) (Loaded, error) {
	i := r.index(name)
	if i < 0 {
		return Loaded{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return *r.loaded[i], nil
}

// Load creates the plugin and calls its OnLoad. A plugin failing to load is
// not registered.
func (r *Registry) Load(name string, opts map[string]string) error {
	if r.index(name) >= 0 {
		return fmt.Errorf("%w: %s", ErrAlreadyLoaded, name)
	}
	factory, ok := r.catalog[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	log := r.log.With("plugin", name)

	var p Plugin
	err := Safe(func() (err error) {
		p, err = factory(opts, log)
		return err
	})
	if err == nil {
		err = Safe(p.OnLoad)
	}
	if err != nil {
		return fmt.Errorf("failed to load plugin %s: %w", name, err)
	}

	r.loaded = append(r.loaded, &Loaded{Name: name, Options: opts, Plugin: p})
	log.Info("plugin loaded")
	return nil
}

// Unload calls OnUnload and removes the plugin even if that fails.
func (r *Registry) Unload(name string) error {
	i := r.index(name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	l := r.loaded[i]
	r.loaded = append(r.loaded[:i], r.loaded[i+1:]...)

	if err := Safe(l.Plugin.OnUnload); err != nil {
		r.log.Warn("plugin failed to unload", "plugin", name, "error", err)
		return fmt.Errorf("failed to unload plugin %s: %w", name, err)
	}
	r.log.Info("plugin unloaded", "plugin", name)
	return nil
}

func (r *Registry) Reload(name string) error {
	i := r.index(name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err := Safe(r.loaded[i].Plugin.OnReload); err != nil {
		return fmt.Errorf("failed to reload plugin %s: %w", name, err)
	}
	r.log.Info("plugin reloaded", "plugin", name)
	return nil
}

// Close unloads every plugin, last loaded first.
func (r *Registry) Close() {
	for len(r.loaded) > 0 {
		r.Unload(r.loaded[len(r.loaded)-1].Name)
	}
}

func (r *Registry) index(name string) int {
	for i, l := range r.loaded {
		if l.Name == name {
			return i
		}
	}
	return -1
}
