// Package plugin defines the handler interface fed by the daemon and the
// registry of loaded plugins.
package plugin

import (
	"fmt"

	"github.com/markand/irccd-sub002/internal/irc"
)

// Plugin receives the events the rules allow. Callbacks run on the daemon
// loop and may use the event's server directly; returned errors are logged.
type Plugin interface {
	OnLoad() error
	OnUnload() error
	OnReload() error

	OnCommand(ev irc.MessageEvent) error
	OnConnect(ev irc.ConnectEvent) error
	OnDisconnect(ev irc.DisconnectEvent) error
	OnInvite(ev irc.InviteEvent) error
	OnJoin(ev irc.JoinEvent) error
	OnKick(ev irc.KickEvent) error
	OnMe(ev irc.MeEvent) error
	OnMessage(ev irc.MessageEvent) error
	OnMode(ev irc.ModeEvent) error
	OnNames(ev irc.NamesEvent) error
	OnNick(ev irc.NickEvent) error
	OnNotice(ev irc.NoticeEvent) error
	OnPart(ev irc.PartEvent) error
	OnTopic(ev irc.TopicEvent) error
	OnWhois(ev irc.WhoisEvent) error
}

// Base implements every callback as a no-op. Plugins embed it and override
// what they need.
type Base struct{}

func (Base) OnLoad() error { return nil }
func (Base) OnUnload() error { return nil }
func (Base) OnReload() error { return nil }
func (Base) OnCommand(irc.MessageEvent) error { return nil }
func (Base) OnConnect(irc.ConnectEvent) error { return nil }
func (Base) OnDisconnect(irc.DisconnectEvent) error { return nil }
func (Base) OnInvite(irc.InviteEvent) error { return nil }
func (Base) OnJoin(irc.JoinEvent) error { return nil }
func (Base) OnKick(irc.KickEvent) error { return nil }
func (Base) OnMe(irc.MeEvent) error { return nil }
func (Base) OnMessage(irc.MessageEvent) error { return nil }
func (Base) OnMode(irc.ModeEvent) error { return nil }
func (Base) OnNames(irc.NamesEvent) error { return nil }
func (Base) OnNick(irc.NickEvent) error { return nil }
func (Base) OnNotice(irc.NoticeEvent) error { return nil }
func (Base) OnPart(irc.PartEvent) error { return nil }
func (Base) OnTopic(irc.TopicEvent) error { return nil }
func (Base) OnWhois(irc.WhoisEvent) error { return nil }

// Info describes a plugin for plugin-info.
type Info struct {
	Summary string `json:"summary"`
	Version string `json:"version"`
	Author  string `json:"author"`
	License string `json:"license"`
}

// Describer is implemented by plugins that publish an Info.
type Describer interface {
	Info() Info
}

// Safe calls fn and turns a panic into an error.
func Safe(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
