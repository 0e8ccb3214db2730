// Package bot ties the servers, the rule router and the plugins together.
package bot

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/markand/irccd-sub002/internal/irc"
	"github.com/markand/irccd-sub002/internal/plugin"
	"github.com/markand/irccd-sub002/internal/rule"
)

var (
	ErrServerExists   = errors.New("server already exists")
	ErrServerNotFound = errors.New("server not found")
)

// Broadcaster relays event descriptions to external observers.
type Broadcaster interface {
	Publish(ev map[string]any)
}

// Reconnect is the per-server reconnection policy.
type Reconnect struct {
	Enabled bool
	// Tries bounds consecutive attempts, 0 means forever.
	Tries int
	Delay time.Duration
}

type entry struct {
	server *irc.Server
	policy Reconnect
	tries  int
	timer  *time.Timer
}

// Bot owns every server. All methods run on the loop goroutine.
type Bot struct {
	loop      irc.Poster
	router    *rule.Router
	plugins   *plugin.Registry
	broadcast Broadcaster
	log       *slog.Logger

	servers map[string]*entry
}

func New(loop irc.Poster, router *rule.Router, plugins *plugin.Registry, broadcast Broadcaster, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		loop:      loop,
		router:    router,
		plugins:   plugins,
		broadcast: broadcast,
		log:       logger,
		servers:   make(map[string]*entry),
	}
}

func (b *Bot) Router() *rule.Router { return b.router }
func (b *Bot) Plugins() *plugin.Registry { return b.plugins }

// AddServer creates a disconnected server delivering its events to b.
func (b *Bot) AddServer(opts irc.Options, policy Reconnect) (*irc.Server, error) {
	if opts.ID == "" {
		return nil, errors.New("server id is empty")
	}
	if _, ok := b.servers[opts.ID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrServerExists, opts.ID)
	}

	s := irc.NewServer(opts, b.loop, b, b.log)
	b.servers[opts.ID] = &entry{server: s, policy: policy}
	return s, nil
}

func (b *Bot) Server(id string) (*irc.Server, error) {
	e, ok := b.servers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrServerNotFound, id)
	}
	return e.server, nil
}

// Servers returns every server sorted by id.
func (b *Bot) Servers() []*irc.Server {
	out := make([]*irc.Server, 0, len(b.servers))
	for _, e := range b.servers {
		out = append(out, e.server)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// RemoveServer disconnects and forgets a server.
func (b *Bot) RemoveServer(id string) error {
	e, ok := b.servers[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrServerNotFound, id)
	}
	delete(b.servers, id)
	e.stop()
	e.server.Disconnect()
	b.log.Info("server removed", "server", id)
	return nil
}

// Connect starts a connection and resets the reconnection counter.
func (b *Bot) Connect(id string) error {
	e, ok := b.servers[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrServerNotFound, id)
	}
	e.stop()
	e.tries = 0
	return e.server.Connect()
}

// Disconnect closes a connection and cancels a pending reconnection.
func (b *Bot) Disconnect(id string) error {
	e, ok := b.servers[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrServerNotFound, id)
	}
	e.stop()
	e.server.Disconnect()
	return nil
}

func (b *Bot) Reconnect(id string) error {
	if err := b.Disconnect(id); err != nil {
		return err
	}
	return b.Connect(id)
}

// Start connects every server.
func (b *Bot) Start() {
	for _, s := range b.Servers() {
		if err := b.Connect(s.ID()); err != nil {
			b.log.Error("failed to connect", "server", s.ID(), "error", err)
		}
	}
}

// Close disconnects every server.
func (b *Bot) Close() {
	for id := range b.servers {
		b.Disconnect(id)
	}
}

// schedule applies the reconnection policy after a disconnect event.
func (b *Bot) schedule(s *irc.Server) {
	e, ok := b.servers[s.ID()]
	if !ok || e.server != s || !e.policy.Enabled {
		return
	}
	if e.policy.Tries > 0 && e.tries >= e.policy.Tries {
		b.log.Warn("giving up reconnecting", "server", s.ID(), "tries", e.tries)
		return
	}

	e.tries++
	e.stop()
	b.log.Info("reconnecting", "server", s.ID(), "try", e.tries, "delay", e.policy.Delay)

	var t *time.Timer
	t = time.AfterFunc(e.policy.Delay, func() {
		b.loop.Post(func() {
			if b.servers[s.ID()] != e || e.timer != t {
				return
			}
			e.timer = nil
			if s.State() != irc.StateDisconnected {
				return
			}
			if err := s.Connect(); err != nil {
				b.log.Error("failed to reconnect", "server", s.ID(), "error", err)
			}
		})
	})
	e.timer = t
}

func (e *entry) stop() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}
