// Package history remembers when nicknames were last seen and what they last
// said, and answers "!history seen <nick>" and "!history said <nick>".
package history

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/markand/irccd-sub002/internal/irc"
	"github.com/markand/irccd-sub002/internal/plugin"
)

const dateLayout = "2006-01-02 15:04"

// History is the "history" plugin. The "file" option names the database,
// "history.db" by default.
type History struct {
	plugin.Base

	path  string
	log   *slog.Logger
	now   func() time.Time
	store *Store
}

// New is the plugin factory.
func New(opts map[string]string, logger *slog.Logger) (plugin.Plugin, error) {
	path := opts["file"]
	if path == "" {
		path = "history.db"
	}
	return &History{path: path, log: logger, now: time.Now}, nil
}

func (h *History) Info() plugin.Info {
	return plugin.Info{
		Summary: "track when users were last seen",
		Version: "4.0",
		Author:  "irccd",
		License: "ISC",
	}
}

func (h *History) OnLoad() error {
	store, err := Open(h.path)
	if err != nil {
		return err
	}
	h.store = store
	return nil
}

func (h *History) OnUnload() error {
	if h.store == nil {
		return nil
	}
	err := h.store.Close()
	h.store = nil
	return err
}

func (h *History) OnJoin(ev irc.JoinEvent) error {
	return h.store.Seen(ev.Server.ID(), ev.Channel, irc.ParseUser(ev.Origin).Nick, h.now())
}

func (h *History) OnPart(ev irc.PartEvent) error {
	return h.store.Seen(ev.Server.ID(), ev.Channel, irc.ParseUser(ev.Origin).Nick, h.now())
}

func (h *History) OnTopic(ev irc.TopicEvent) error {
	return h.store.Seen(ev.Server.ID(), ev.Channel, irc.ParseUser(ev.Origin).Nick, h.now())
}

func (h *History) OnNames(ev irc.NamesEvent) error {
	for _, name := range ev.Names {
		if err := h.store.Seen(ev.Server.ID(), ev.Channel, name, h.now()); err != nil {
			return err
		}
	}
	return nil
}

func (h *History) OnMessage(ev irc.MessageEvent) error {
	if !irc.IsChannel(ev.Channel) {
		return nil
	}
	return h.store.Said(ev.Server.ID(), ev.Channel, irc.ParseUser(ev.Origin).Nick, ev.Message, h.now())
}

func (h *History) OnMe(ev irc.MeEvent) error {
	if !irc.IsChannel(ev.Channel) {
		return nil
	}
	return h.store.Said(ev.Server.ID(), ev.Channel, irc.ParseUser(ev.Origin).Nick, ev.Message, h.now())
}

// OnCommand answers in the channel the command came from.
func (h *History) OnCommand(ev irc.MessageEvent) error {
	origin := irc.ParseUser(ev.Origin).Nick

	target := ev.Channel
	if !irc.IsChannel(target) {
		target = origin
	}

	reply, err := h.answer(ev.Server, ev.Channel, origin, ev.Message)
	if err != nil {
		return err
	}
	return ev.Server.Message(target, reply)
}

func (h *History) answer(s *irc.Server, channel, origin, payload string) (string, error) {
	fields := strings.Fields(payload)
	if len(fields) != 2 || (fields[0] != "seen" && fields[0] != "said") {
		return fmt.Sprintf("%s: usage: %shistory seen|said <nickname>", origin, s.CommandChar()), nil
	}

	what, nickname := fields[0], fields[1]
	if strings.EqualFold(nickname, s.Nickname()) {
		return fmt.Sprintf("%s: I'm right here", origin), nil
	}

	e, err := h.store.Get(s.ID(), channel, nickname)
	if errors.Is(err, ErrUnknown) {
		return fmt.Sprintf("%s: I have never seen %s", origin, nickname), nil
	}
	if err != nil {
		return "", err
	}

	if what == "seen" {
		return fmt.Sprintf("%s: the last time I saw %s was on %s", origin, nickname, e.Seen.Format(dateLayout)), nil
	}
	if e.Said.IsZero() {
		return fmt.Sprintf("%s: %s never said anything", origin, nickname), nil
	}
	return fmt.Sprintf("%s: the last message %s said was: %s (on %s)", origin, nickname, e.Message, e.Said.Format(dateLayout)), nil
}
