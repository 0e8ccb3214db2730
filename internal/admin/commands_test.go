package admin

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markand/irccd-sub002/internal/bot"
	"github.com/markand/irccd-sub002/internal/irc"
	"github.com/markand/irccd-sub002/internal/loop"
	"github.com/markand/irccd-sub002/internal/plugin"
	"github.com/markand/irccd-sub002/internal/rule"
)

type sample struct {
	plugin.Base
	opts     map[string]string
	reloaded int
}

func (s *sample) OnReload() error {
	s.reloaded++
	return nil
}

func (s *sample) Info() plugin.Info {
	return plugin.Info{Summary: "sample plugin", Version: "1.2", Author: "jean", License: "ISC"}
}

func newTestCommands(t *testing.T) (*Commands, *bot.Bot, *sample) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	inst := &sample{}
	registry := plugin.NewRegistry(plugin.Catalog{
		"sample": func(opts map[string]string, _ *slog.Logger) (plugin.Plugin, error) {
			inst.opts = opts
			return inst, nil
		},
	}, logger)

	// The loop is never run: completions of real connection attempts are
	// queued and dropped.
	b := bot.New(loop.New(), rule.NewRouter(), registry, nil, logger)
	for _, id := range []string{"freenode", "efnet"} {
		_, err := b.AddServer(irc.Options{ID: id, Hostname: id + ".example.org", Port: 6667, Nickname: "irccd"}, bot.Reconnect{})
		require.NoError(t, err)
	}

	c := New(b, map[string]map[string]string{"sample": {"key": "value"}}, logger)
	return c, b, inst
}

func exec(t *testing.T, c *Commands, doc string) Response {
	t.Helper()
	var req Request
	require.NoError(t, json.Unmarshal([]byte(doc), &req))
	return c.Exec(req)
}

func requireOK(t *testing.T, res Response) {
	t.Helper()
	require.NotContains(t, res, "error", "unexpected failure: %v", res["errorMessage"])
}

func TestExec_InvalidCommand(t *testing.T) {
	c, _, _ := newTestCommands(t)

	res := exec(t, c, `{"command": "server-explode"}`)
	assert.Equal(t, "server-explode", res["command"])
	assert.Equal(t, int(InvalidCommand), res["error"])
	assert.Equal(t, "irccd", res["errorCategory"])

	res = exec(t, c, `{}`)
	assert.Equal(t, int(InvalidCommand), res["error"])
	assert.NotContains(t, res, "command")
}

func TestServerCommands(t *testing.T) {
	c, b, _ := newTestCommands(t)

	res := exec(t, c, `{"command": "server-list"}`)
	requireOK(t, res)
	assert.Equal(t, []string{"efnet", "freenode"}, res["list"])

	res = exec(t, c, `{"command": "server-info", "server": "freenode"}`)
	requireOK(t, res)
	assert.Equal(t, "server-info", res["command"])
	assert.Equal(t, "freenode.example.org", res["hostname"])
	assert.Equal(t, 6667, res["port"])
	assert.Equal(t, "disconnected", res["state"])
	assert.Equal(t, "!", res["commandChar"])

	res = exec(t, c, `{"command": "server-info", "server": "undernet"}`)
	assert.Equal(t, int(ServerNotFound), res["error"])
	assert.Equal(t, "server", res["errorCategory"])

	res = exec(t, c, `{"command": "server-join", "server": "freenode", "channel": "#staff", "password": "key"}`)
	requireOK(t, res)
	s, _ := b.Server("freenode")
	assert.Equal(t, []irc.Channel{{Name: "#staff", Password: "key"}}, s.Requested())

	res = exec(t, c, `{"command": "server-message", "server": "freenode", "target": "#staff", "message": "hello"}`)
	assert.Equal(t, int(ServerNotConnected), res["error"])

	res = exec(t, c, `{"command": "server-message", "server": "freenode", "target": "#staff"}`)
	assert.Equal(t, int(ServerInvalidParameter), res["error"])

	res = exec(t, c, `{"command": "server-mode", "server": "freenode", "channel": "#staff", "mode": "+o", "args": 3}`)
	assert.Equal(t, int(ServerInvalidParameter), res["error"])

	res = exec(t, c, `{"command": "server-nick", "server": "freenode", "nickname": "robot"}`)
	requireOK(t, res)
	assert.Equal(t, "robot", s.Nickname())
}

func TestServerConnectDisconnect(t *testing.T) {
	c, b, _ := newTestCommands(t)

	res := exec(t, c, `{"command": "server-connect", "name": "local", "hostname": "127.0.0.1", "port": 70000}`)
	assert.Equal(t, int(ServerInvalidParameter), res["error"])

	res = exec(t, c, `{"command": "server-connect", "name": "freenode", "hostname": "127.0.0.1"}`)
	assert.Equal(t, int(ServerAlreadyExists), res["error"])

	res = exec(t, c, `{"command": "server-connect", "name": "local", "hostname": "127.0.0.1", "port": 6697, "nickname": "bot"}`)
	requireOK(t, res)

	s, err := b.Server("local")
	require.NoError(t, err)
	assert.Equal(t, irc.StateConnecting, s.State())
	assert.Equal(t, "bot", s.Nickname())

	res = exec(t, c, `{"command": "server-disconnect", "server": "local"}`)
	requireOK(t, res)
	_, err = b.Server("local")
	assert.ErrorIs(t, err, bot.ErrServerNotFound)

	res = exec(t, c, `{"command": "server-disconnect"}`)
	requireOK(t, res)
	assert.Empty(t, b.Servers())
}

func TestRuleCommands(t *testing.T) {
	c, b, _ := newTestCommands(t)

	requireOK(t, exec(t, c, `{"command": "rule-add", "channels": ["#staff"], "action": "drop"}`))
	requireOK(t, exec(t, c, `{"command": "rule-add", "plugins": "sample", "action": "accept", "index": 0}`))
	assert.Equal(t, 2, b.Router().Len())

	res := exec(t, c, `{"command": "rule-info", "index": 1}`)
	requireOK(t, res)
	assert.Equal(t, "drop", res["action"])
	assert.Equal(t, []string{"#staff"}, res["channels"])
	assert.Equal(t, []string{}, res["servers"])

	res = exec(t, c, `{"command": "rule-edit", "index": 1, "add-servers": ["freenode"], "remove-channels": "#staff", "action": "accept"}`)
	requireOK(t, res)
	assert.Equal(t, []string{"freenode"}, res["servers"])
	assert.Equal(t, []string{}, res["channels"])
	assert.Equal(t, "accept", res["action"])

	requireOK(t, exec(t, c, `{"command": "rule-move", "from": 0, "to": 1}`))
	res = exec(t, c, `{"command": "rule-list"}`)
	requireOK(t, res)
	list := res["list"].([]Response)
	require.Len(t, list, 2)
	assert.Equal(t, []string{"sample"}, list[1]["plugins"])

	requireOK(t, exec(t, c, `{"command": "rule-remove", "index": 0}`))
	assert.Equal(t, 1, b.Router().Len())

	res = exec(t, c, `{"command": "rule-remove", "index": 5}`)
	assert.Equal(t, int(RuleInvalidIndex), res["error"])
	assert.Equal(t, "rule", res["errorCategory"])

	res = exec(t, c, `{"command": "rule-info", "index": 0.5}`)
	assert.Equal(t, int(RuleInvalidIndex), res["error"])

	res = exec(t, c, `{"command": "rule-add", "action": "reject"}`)
	assert.Equal(t, int(RuleInvalidAction), res["error"])

	requireOK(t, exec(t, c, `{"command": "rule-add", "channels": "#default"}`))
	res = exec(t, c, `{"command": "rule-info", "index": 1}`)
	requireOK(t, res)
	assert.Equal(t, "accept", res["action"])
	assert.Equal(t, []string{"#default"}, res["channels"])

	res = exec(t, c, `{"command": "rule-add", "events": [1], "action": "drop"}`)
	assert.Equal(t, int(RuleInvalidParameter), res["error"])
}

func TestPluginCommands(t *testing.T) {
	c, _, inst := newTestCommands(t)

	requireOK(t, exec(t, c, `{"command": "plugin-load", "plugin": "sample"}`))
	assert.Equal(t, map[string]string{"key": "value"}, inst.opts)

	res := exec(t, c, `{"command": "plugin-load", "plugin": "sample"}`)
	assert.Equal(t, int(PluginAlreadyExists), res["error"])

	res = exec(t, c, `{"command": "plugin-list"}`)
	assert.Equal(t, []string{"sample"}, res["list"])

	res = exec(t, c, `{"command": "plugin-info", "plugin": "sample"}`)
	requireOK(t, res)
	assert.Equal(t, "sample plugin", res["summary"])
	assert.Equal(t, "1.2", res["version"])

	requireOK(t, exec(t, c, `{"command": "plugin-reload", "plugin": "sample"}`))
	assert.Equal(t, 1, inst.reloaded)

	requireOK(t, exec(t, c, `{"command": "plugin-unload", "plugin": "sample"}`))

	res = exec(t, c, `{"command": "plugin-unload", "plugin": "sample"}`)
	assert.Equal(t, int(PluginNotFound), res["error"])
	assert.Equal(t, "plugin", res["errorCategory"])

	res = exec(t, c, `{"command": "plugin-info"}`)
	assert.Equal(t, int(PluginInvalidParameter), res["error"])
}

func TestNames(t *testing.T) {
	names := Names()

	assert.Len(t, names, 26)
	assert.Contains(t, names, "rule-move")
	assert.IsIncreasing(t, names)
}
