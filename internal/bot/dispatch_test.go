package bot

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markand/irccd-sub002/internal/irc"
	"github.com/markand/irccd-sub002/internal/plugin"
	"github.com/markand/irccd-sub002/internal/rule"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// recorder logs the callbacks it receives into a shared journal.
type recorder struct {
	plugin.Base
	name  string
	calls *[]string
	err   error
	panic bool
}

func (r *recorder) record(event, detail string) error {
	*r.calls = append(*r.calls, r.name+":"+event+":"+detail)
	if r.panic {
		panic("plugin bug")
	}
	return r.err
}

func (r *recorder) OnMessage(ev irc.MessageEvent) error { return r.record("onMessage", ev.Message) }
func (r *recorder) OnCommand(ev irc.MessageEvent) error { return r.record("onCommand", ev.Message) }
func (r *recorder) OnJoin(ev irc.JoinEvent) error       { return r.record("onJoin", ev.Channel) }
func (r *recorder) OnConnect(irc.ConnectEvent) error    { return r.record("onConnect", "") }

type published struct {
	events []map[string]any
}

func (p *published) Publish(ev map[string]any) {
	p.events = append(p.events, ev)
}

func newTestBot(t *testing.T, router *rule.Router, plugins ...*recorder) (*Bot, *published, *irc.Server) {
	t.Helper()

	catalog := plugin.Catalog{}
	for _, r := range plugins {
		r := r
		catalog[r.name] = func(map[string]string, *slog.Logger) (plugin.Plugin, error) { return r, nil }
	}
	registry := plugin.NewRegistry(catalog, discard)
	for _, r := range plugins {
		require.NoError(t, registry.Load(r.name, nil))
	}

	pub := &published{}
	b := New(nil, router, registry, pub, discard)
	s, err := b.AddServer(irc.Options{ID: "freenode", Nickname: "irccd"}, Reconnect{})
	require.NoError(t, err)

	return b, pub, s
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		cc, message string
		payload     string
		ok          bool
	}{
		{"!", "!history seen jean", "seen jean", true},
		{"!", "!history", "", true},
		{"!", "!history\tsaid jean", "said jean", true},
		{"!", "!history ", "", true},
		{"!", "!historyx seen", "", false},
		{"!", "!historyx", "", false},
		{"!", "history seen", "", false},
		{"!", "hello !history", "", false},
		{"", "!history", "", false},
		{"irccd: ", "irccd: history x", "", false},
		{"?", "?history a b", "a b", true},
	}

	for _, tt := range tests {
		payload, ok := ParseCommand(tt.cc, "history", tt.message)
		assert.Equal(t, tt.ok, ok, "message %q", tt.message)
		assert.Equal(t, tt.payload, payload, "message %q", tt.message)
	}
}

func TestHandleEvent_FailingPluginDoesNotStopOthers(t *testing.T) {
	var calls []string
	b, _, s := newTestBot(t, rule.NewRouter(),
		&recorder{name: "broken", calls: &calls, err: errors.New("oops")},
		&recorder{name: "crashing", calls: &calls, panic: true},
		&recorder{name: "fine", calls: &calls},
	)

	b.HandleEvent(irc.MessageEvent{Server: s, Origin: "jean!j@h", Channel: "#irccd", Message: "hello"})

	assert.Equal(t, []string{
		"broken:onMessage:hello",
		"crashing:onMessage:hello",
		"fine:onMessage:hello",
	}, calls)
}

func TestHandleEvent_CommandForOnePluginIsMessageForOthers(t *testing.T) {
	var calls []string
	b, _, s := newTestBot(t, rule.NewRouter(),
		&recorder{name: "history", calls: &calls},
		&recorder{name: "logger", calls: &calls},
	)

	b.HandleEvent(irc.MessageEvent{Server: s, Origin: "jean!j@h", Channel: "#irccd", Message: "!history seen bob"})

	assert.Equal(t, []string{
		"history:onCommand:seen bob",
		"logger:onMessage:!history seen bob",
	}, calls)
}

func TestHandleEvent_RulesFilterPlugins(t *testing.T) {
	var calls []string
	router := rule.NewRouter(
		rule.New(rule.Criteria{Plugins: []string{"a"}, Events: []string{"onMessage"}}, rule.Drop),
		rule.New(rule.Criteria{Origins: []string{"jean"}, Channels: []string{"#secret"}}, rule.Drop),
	)
	b, pub, s := newTestBot(t, router,
		&recorder{name: "a", calls: &calls},
		&recorder{name: "b", calls: &calls},
	)

	b.HandleEvent(irc.MessageEvent{Server: s, Origin: "jean!j@h", Channel: "#irccd", Message: "one"})
	b.HandleEvent(irc.JoinEvent{Server: s, Origin: "jean!j@h", Channel: "#irccd"})
	b.HandleEvent(irc.JoinEvent{Server: s, Origin: "JEAN!j@h", Channel: "#Secret"})
	b.HandleEvent(irc.JoinEvent{Server: s, Origin: "john!j@h", Channel: "#secret"})

	assert.Equal(t, []string{
		"b:onMessage:one",
		"a:onJoin:#irccd",
		"b:onJoin:#irccd",
		"a:onJoin:#secret",
		"b:onJoin:#secret",
	}, calls)

	// Broadcasting ignores the rules.
	assert.Len(t, pub.events, 4)
}

func TestHandleEvent_ConnectResetsTries(t *testing.T) {
	var calls []string
	b, pub, s := newTestBot(t, nil, &recorder{name: "a", calls: &calls})
	b.servers["freenode"].tries = 3

	b.HandleEvent(irc.ConnectEvent{Server: s})

	assert.Equal(t, 0, b.servers["freenode"].tries)
	assert.Equal(t, []string{"a:onConnect:"}, calls)
	assert.Equal(t, map[string]any{"event": "onConnect", "server": "freenode"}, pub.events[0])
}

func TestDescribe(t *testing.T) {
	s := irc.NewServer(irc.Options{ID: "freenode", Nickname: "irccd"}, nil, nil, nil)

	tests := []struct {
		name string
		ev   irc.Event
	}{
		{"join", irc.JoinEvent{Server: s, Origin: "jean!j@h", Channel: "#irccd"}},
		{"message", irc.MessageEvent{Server: s, Origin: "jean!j@h", Channel: "#irccd", Message: "hello world"}},
		{"mode", irc.ModeEvent{Server: s, Origin: "op!o@h", Channel: "#irccd", Mode: "+o", Args: []string{"jean"}}},
		{"names", irc.NamesEvent{Server: s, Channel: "#irccd", Names: []string{"alice", "bob"}}},
		{"whois", irc.WhoisEvent{Server: s, Whois: irc.Whois{
			Nick: "jean", User: "~jean", Host: "example.org", Realname: "Jean", Channels: []string{"#irccd"},
		}}},
		{"disconnect", irc.DisconnectEvent{Server: s, Err: irc.ErrPingTimeout}},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.MarshalIndent(Describe(tt.ev), "", "  ")
			require.NoError(t, err)
			g.Assert(t, tt.name, append(data, '\n'))
		})
	}
}
