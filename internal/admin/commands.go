// Package admin implements the administrative commands received over the
// transport.
package admin

import (
	"log/slog"
	"sort"

	"github.com/markand/irccd-sub002/internal/bot"
	"github.com/markand/irccd-sub002/internal/irc"
	"github.com/markand/irccd-sub002/internal/rule"
)

type handler func(c *Commands, req Request) (Response, error)

var handlers = map[string]handler{
	"server-list":       serverList,
	"server-info":       serverInfo,
	"server-connect":    serverConnect,
	"server-disconnect": serverDisconnect,
	"server-reconnect":  serverReconnect,
	"server-join":       serverJoin,
	"server-part":       serverPart,
	"server-message":    serverMessage,
	"server-me":         serverMe,
	"server-notice":     serverNotice,
	"server-mode":       serverMode,
	"server-nick":       serverNick,
	"server-invite":     serverInvite,
	"server-kick":       serverKick,
	"server-topic":      serverTopic,
	"rule-list":         ruleList,
	"rule-info":         ruleInfo,
	"rule-add":          ruleAdd,
	"rule-edit":         ruleEdit,
	"rule-remove":       ruleRemove,
	"rule-move":         ruleMove,
	"plugin-list":       pluginList,
	"plugin-info":       pluginInfo,
	"plugin-load":       pluginLoad,
	"plugin-unload":     pluginUnload,
	"plugin-reload":     pluginReload,
}

// Names returns every command name, sorted.
func Names() []string {
	names := make([]string, 0, len(handlers))
	for name := range handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Commands executes requests against the bot. It must be used from the
// daemon loop.
type Commands struct {
	bot *bot.Bot
	log *slog.Logger

	// options holds the configured options of loadable plugins.
	options map[string]map[string]string
}

func New(b *bot.Bot, options map[string]map[string]string, logger *slog.Logger) *Commands {
	if logger == nil {
		logger = slog.Default()
	}
	return &Commands{bot: b, log: logger, options: options}
}

// Exec runs req. The response always echoes the command name.
func (c *Commands) Exec(req Request) Response {
	name := req.Command()
	h, ok := handlers[name]
	if !ok {
		return Failure(name, newError(InvalidCommand, "invalid command %q", name))
	}

	res, err := h(c, req)
	if err != nil {
		e := toError(err, fallback(name))
		c.log.Debug("command failed", "command", name, "code", int(e.Code), "error", e.Message)
		return Failure(name, e)
	}

	if res == nil {
		res = Response{}
	}
	res["command"] = name
	return res
}

func fallback(command string) Code {
	switch {
	case len(command) > 7 && command[:7] == "server-":
		return ServerError
	case len(command) > 5 && command[:5] == "rule-":
		return RuleInvalidParameter
	}
	return PluginExecError
}

func (c *Commands) server(req Request) (*irc.Server, error) {
	id, err := req.String("server", ServerInvalidParameter)
	if err != nil {
		return nil, err
	}
	return c.bot.Server(id)
}

func describeServer(s *irc.Server) Response {
	o := s.Options()
	channels := s.Channels()
	sort.Strings(channels)
	return Response{
		"name":        s.ID(),
		"hostname":    o.Hostname,
		"port":        o.Port,
		"ssl":         o.SSL,
		"sslVerify":   o.SSLVerify,
		"nickname":    s.Nickname(),
		"username":    o.Username,
		"realname":    o.Realname,
		"commandChar": o.CommandChar,
		"state":       s.State().String(),
		"channels":    channels,
	}
}

func describeRule(r rule.Rule) Response {
	c := r.Criteria()
	return Response{
		"servers":  c.Servers,
		"channels": c.Channels,
		"origins":  c.Origins,
		"plugins":  c.Plugins,
		"events":   c.Events,
		"action":   r.Action().String(),
	}
}
