// Package logger writes channel activity to capped journal files.
package logger

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/markand/irccd-sub002/internal/irc"
	"github.com/markand/irccd-sub002/internal/plugin"
	"github.com/markand/irccd-sub002/internal/storage"
)

const dateLayout = "2006-01-02 15:04:05"

var defaultFormats = map[string]string{
	"join":    "[#{date}] >> #{nickname} joined #{channel}",
	"kick":    "[#{date}] << #{target} was kicked by #{nickname} (#{reason})",
	"me":      "[#{date}] * #{nickname} #{message}",
	"message": "[#{date}] <#{nickname}> #{message}",
	"mode":    "[#{date}] -- #{nickname} sets mode #{mode} #{args}",
	"notice":  "[#{date}] -#{nickname}- #{message}",
	"part":    "[#{date}] << #{nickname} left #{channel} (#{reason})",
	"topic":   "[#{date}] -- #{nickname} changed the topic to: #{topic}",
}

// Logger is the "logger" plugin. Options:
//
//	directory      root of the journals, "logs" by default
//	max-entries    lines kept per journal
//	format-<event> template for join, kick, me, message, mode, notice, part, topic
type Logger struct {
	plugin.Base

	opts    map[string]string
	log     *slog.Logger
	now     func() time.Time
	dir     string
	max     int
	formats map[string]string

	journals map[string]*storage.Journal
}

// New is the plugin factory.
func New(opts map[string]string, logger *slog.Logger) (plugin.Plugin, error) {
	l := &Logger{opts: opts, log: logger, now: time.Now}
	if err := l.configure(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Logger) Info() plugin.Info {
	return plugin.Info{
		Summary: "write channel activity to files",
		Version: "4.0",
		Author:  "irccd",
		License: "ISC",
	}
}

func (l *Logger) configure() error {
	l.dir = l.opts["directory"]
	if l.dir == "" {
		l.dir = "logs"
	}

	l.max = storage.DefaultMaxEntries
	if v, ok := l.opts["max-entries"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid max-entries %q", v)
		}
		l.max = n
	}

	l.formats = make(map[string]string, len(defaultFormats))
	for event, format := range defaultFormats {
		if v, ok := l.opts["format-"+event]; ok {
			format = v
		}
		l.formats[event] = format
	}

	l.journals = make(map[string]*storage.Journal)
	return nil
}

// OnReload drops the open journals and reads the options again.
func (l *Logger) OnReload() error {
	return l.configure()
}

func (l *Logger) OnUnload() error {
	l.journals = nil
	return nil
}

func (l *Logger) OnJoin(ev irc.JoinEvent) error {
	return l.write(ev.Server, ev.Channel, ev.Origin, "join", map[string]string{})
}

func (l *Logger) OnKick(ev irc.KickEvent) error {
	return l.write(ev.Server, ev.Channel, ev.Origin, "kick", map[string]string{
		"target": ev.Target,
		"reason": ev.Reason,
	})
}

func (l *Logger) OnMe(ev irc.MeEvent) error {
	return l.write(ev.Server, ev.Channel, ev.Origin, "me", map[string]string{"message": ev.Message})
}

func (l *Logger) OnMessage(ev irc.MessageEvent) error {
	return l.write(ev.Server, ev.Channel, ev.Origin, "message", map[string]string{"message": ev.Message})
}

func (l *Logger) OnMode(ev irc.ModeEvent) error {
	return l.write(ev.Server, ev.Channel, ev.Origin, "mode", map[string]string{
		"mode": ev.Mode,
		"args": strings.Join(ev.Args, " "),
	})
}

func (l *Logger) OnNotice(ev irc.NoticeEvent) error {
	return l.write(ev.Server, ev.Channel, ev.Origin, "notice", map[string]string{"message": ev.Message})
}

func (l *Logger) OnPart(ev irc.PartEvent) error {
	return l.write(ev.Server, ev.Channel, ev.Origin, "part", map[string]string{"reason": ev.Reason})
}

func (l *Logger) OnTopic(ev irc.TopicEvent) error {
	return l.write(ev.Server, ev.Channel, ev.Origin, "topic", map[string]string{"topic": ev.Topic})
}

func (l *Logger) write(s *irc.Server, channel, origin, event string, keys map[string]string) error {
	nickname := irc.ParseUser(origin).Nick

	// Private traffic goes to a journal named after the peer.
	target := channel
	if !irc.IsChannel(target) {
		target = nickname
	}

	keys["date"] = l.now().Format(dateLayout)
	keys["server"] = s.ID()
	keys["channel"] = channel
	keys["origin"] = origin
	keys["nickname"] = nickname

	j, err := l.journal(s.ID(), target)
	if err != nil {
		return err
	}
	if err := j.Append(Expand(l.formats[event], keys)); err != nil {
		return fmt.Errorf("journal %s: %w", j.Path(), err)
	}
	return nil
}

func (l *Logger) journal(server, channel string) (*storage.Journal, error) {
	path := storage.JournalPath(l.dir, server, channel)
	if j, ok := l.journals[path]; ok {
		return j, nil
	}

	j, err := storage.OpenJournal(path, l.max)
	if err != nil {
		return nil, err
	}
	l.log.Debug("journal opened", "path", j.Path(), "entries", j.Len())
	l.journals[path] = j
	return j, nil
}

// Expand replaces every #{key} in format. Unknown keys are left as is and
// trailing blanks are trimmed.
func Expand(format string, keys map[string]string) string {
	var b strings.Builder
	for {
		start := strings.Index(format, "#{")
		if start < 0 {
			break
		}
		end := strings.IndexByte(format[start:], '}')
		if end < 0 {
			break
		}
		end += start

		b.WriteString(format[:start])
		if v, ok := keys[format[start+2:end]]; ok {
			b.WriteString(v)
		} else {
			b.WriteString(format[start : end+1])
		}
		format = format[end+1:]
	}
	b.WriteString(format)
	return strings.TrimRight(b.String(), " ")
}
