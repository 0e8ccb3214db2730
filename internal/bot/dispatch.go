package bot

import (
	"strings"

	"github.com/markand/irccd-sub002/internal/irc"
	"github.com/markand/irccd-sub002/internal/plugin"
)

// call is one event as a given plugin sees it.
type call struct {
	event   string
	channel string
	origin  string
	invoke  func(p plugin.Plugin) error
}

// HandleEvent publishes ev and delivers it to every plugin the rules allow.
func (b *Bot) HandleEvent(ev irc.Event) {
	if b.broadcast != nil {
		b.broadcast.Publish(Describe(ev))
	}

	switch ev := ev.(type) {
	case irc.ConnectEvent:
		if e, ok := b.servers[ev.Server.ID()]; ok && e.server == ev.Server {
			e.tries = 0
		}
	case irc.DisconnectEvent:
		b.schedule(ev.Server)
	}

	if b.plugins == nil {
		return
	}

	s := ev.Network()
	for _, l := range b.plugins.Loaded() {
		c := route(ev, l.Name)

		if b.router != nil && !b.router.Solve(s.ID(), c.channel, c.origin, l.Name, c.event) {
			b.log.Debug("event dropped by rules",
				"server", s.ID(), "plugin", l.Name, "event", c.event, "channel", c.channel)
			continue
		}

		p := l.Plugin
		if err := plugin.Safe(func() error { return c.invoke(p) }); err != nil {
			b.log.Warn("plugin failed", "plugin", l.Name, "event", c.event, "error", err)
		}
	}
}

// ParseCommand tells whether message is a command addressed to the plugin
// name, that is cc+name alone or followed by a blank and a payload.
func ParseCommand(cc, name, message string) (payload string, ok bool) {
	if cc == "" {
		return "", false
	}

	full := cc + name
	pos := strings.IndexAny(message, " \t")
	if pos < 0 {
		return "", message == full
	}
	if message[:pos] != full {
		return "", false
	}
	return message[pos+1:], true
}

func nick(origin string) string {
	return irc.ParseUser(origin).Nick
}

func route(ev irc.Event, name string) call {
	switch ev := ev.(type) {
	case irc.ConnectEvent:
		return call{"onConnect", "", "", func(p plugin.Plugin) error { return p.OnConnect(ev) }}
	case irc.DisconnectEvent:
		return call{"onDisconnect", "", "", func(p plugin.Plugin) error { return p.OnDisconnect(ev) }}
	case irc.InviteEvent:
		return call{"onInvite", ev.Channel, nick(ev.Origin), func(p plugin.Plugin) error { return p.OnInvite(ev) }}
	case irc.JoinEvent:
		return call{"onJoin", ev.Channel, nick(ev.Origin), func(p plugin.Plugin) error { return p.OnJoin(ev) }}
	case irc.KickEvent:
		return call{"onKick", ev.Channel, nick(ev.Origin), func(p plugin.Plugin) error { return p.OnKick(ev) }}
	case irc.MeEvent:
		return call{"onMe", ev.Channel, nick(ev.Origin), func(p plugin.Plugin) error { return p.OnMe(ev) }}
	case irc.MessageEvent:
		if payload, ok := ParseCommand(ev.Server.CommandChar(), name, ev.Message); ok {
			cmd := ev
			cmd.Message = payload
			return call{"onCommand", ev.Channel, nick(ev.Origin), func(p plugin.Plugin) error { return p.OnCommand(cmd) }}
		}
		return call{"onMessage", ev.Channel, nick(ev.Origin), func(p plugin.Plugin) error { return p.OnMessage(ev) }}
	case irc.ModeEvent:
		return call{"onMode", ev.Channel, nick(ev.Origin), func(p plugin.Plugin) error { return p.OnMode(ev) }}
	case irc.NamesEvent:
		return call{"onNames", ev.Channel, "", func(p plugin.Plugin) error { return p.OnNames(ev) }}
	case irc.NickEvent:
		return call{"onNick", "", nick(ev.Origin), func(p plugin.Plugin) error { return p.OnNick(ev) }}
	case irc.NoticeEvent:
		return call{"onNotice", ev.Channel, nick(ev.Origin), func(p plugin.Plugin) error { return p.OnNotice(ev) }}
	case irc.PartEvent:
		return call{"onPart", ev.Channel, nick(ev.Origin), func(p plugin.Plugin) error { return p.OnPart(ev) }}
	case irc.TopicEvent:
		return call{"onTopic", ev.Channel, nick(ev.Origin), func(p plugin.Plugin) error { return p.OnTopic(ev) }}
	case irc.WhoisEvent:
		return call{"onWhois", "", ev.Whois.Nick, func(p plugin.Plugin) error { return p.OnWhois(ev) }}
	}
	panic("bot: unknown event type")
}

// Describe converts ev to the document sent to transport clients.
func Describe(ev irc.Event) map[string]any {
	d := map[string]any{"server": ev.Network().ID()}

	switch ev := ev.(type) {
	case irc.ConnectEvent:
		d["event"] = "onConnect"
	case irc.DisconnectEvent:
		d["event"] = "onDisconnect"
		if ev.Err != nil {
			d["error"] = ev.Err.Error()
		}
	case irc.InviteEvent:
		d["event"] = "onInvite"
		d["origin"] = ev.Origin
		d["channel"] = ev.Channel
		d["target"] = ev.Nickname
	case irc.JoinEvent:
		d["event"] = "onJoin"
		d["origin"] = ev.Origin
		d["channel"] = ev.Channel
	case irc.KickEvent:
		d["event"] = "onKick"
		d["origin"] = ev.Origin
		d["channel"] = ev.Channel
		d["target"] = ev.Target
		d["reason"] = ev.Reason
	case irc.MeEvent:
		d["event"] = "onMe"
		d["origin"] = ev.Origin
		d["channel"] = ev.Channel
		d["message"] = ev.Message
	case irc.MessageEvent:
		d["event"] = "onMessage"
		d["origin"] = ev.Origin
		d["channel"] = ev.Channel
		d["message"] = ev.Message
	case irc.ModeEvent:
		d["event"] = "onMode"
		d["origin"] = ev.Origin
		d["channel"] = ev.Channel
		d["mode"] = ev.Mode
		d["args"] = nonNil(ev.Args)
	case irc.NamesEvent:
		d["event"] = "onNames"
		d["channel"] = ev.Channel
		d["names"] = nonNil(ev.Names)
	case irc.NickEvent:
		d["event"] = "onNick"
		d["origin"] = ev.Origin
		d["nickname"] = ev.Nickname
	case irc.NoticeEvent:
		d["event"] = "onNotice"
		d["origin"] = ev.Origin
		d["channel"] = ev.Channel
		d["message"] = ev.Message
	case irc.PartEvent:
		d["event"] = "onPart"
		d["origin"] = ev.Origin
		d["channel"] = ev.Channel
		d["reason"] = ev.Reason
	case irc.TopicEvent:
		d["event"] = "onTopic"
		d["origin"] = ev.Origin
		d["channel"] = ev.Channel
		d["topic"] = ev.Topic
	case irc.WhoisEvent:
		d["event"] = "onWhois"
		d["nickname"] = ev.Whois.Nick
		d["username"] = ev.Whois.User
		d["hostname"] = ev.Whois.Host
		d["realname"] = ev.Whois.Realname
		d["channels"] = nonNil(ev.Whois.Channels)
	}
	return d
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
