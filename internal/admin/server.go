package admin

import (
	"github.com/markand/irccd-sub002/internal/bot"
	"github.com/markand/irccd-sub002/internal/irc"
)

func serverList(c *Commands, req Request) (Response, error) {
	list := []string{}
	for _, s := range c.bot.Servers() {
		list = append(list, s.ID())
	}
	return Response{"list": list}, nil
}

func serverInfo(c *Commands, req Request) (Response, error) {
	s, err := c.server(req)
	if err != nil {
		return nil, err
	}
	return describeServer(s), nil
}

// serverConnect creates a new server from the request and connects it.
func serverConnect(c *Commands, req Request) (Response, error) {
	const code = ServerInvalidParameter

	var (
		opts irc.Options
		err  error
	)
	if opts.ID, err = req.String("name", code); err != nil {
		return nil, err
	}
	if opts.Hostname, err = req.String("hostname", code); err != nil {
		return nil, err
	}
	if opts.Port, err = req.OptInt("port", 6667, code); err != nil {
		return nil, err
	}
	if opts.Port <= 0 || opts.Port > 65535 {
		return nil, newError(code, "invalid port %d", opts.Port)
	}
	if opts.SSL, err = req.OptBool("ssl", false, code); err != nil {
		return nil, err
	}
	if opts.SSLVerify, err = req.OptBool("sslVerify", true, code); err != nil {
		return nil, err
	}
	if opts.Password, err = req.OptString("password", "", code); err != nil {
		return nil, err
	}
	if opts.Nickname, err = req.OptString("nickname", "irccd", code); err != nil {
		return nil, err
	}
	if opts.Username, err = req.OptString("username", "", code); err != nil {
		return nil, err
	}
	if opts.Realname, err = req.OptString("realname", "", code); err != nil {
		return nil, err
	}
	if opts.CommandChar, err = req.OptString("commandChar", "", code); err != nil {
		return nil, err
	}
	if opts.CTCPVersion, err = req.OptString("ctcpVersion", "", code); err != nil {
		return nil, err
	}

	if _, err := c.bot.AddServer(opts, bot.Reconnect{}); err != nil {
		return nil, err
	}
	if err := c.bot.Connect(opts.ID); err != nil {
		c.bot.RemoveServer(opts.ID)
		return nil, err
	}
	return nil, nil
}

// serverDisconnect removes one server, or all of them without "server".
func serverDisconnect(c *Commands, req Request) (Response, error) {
	id, err := req.OptString("server", "", ServerInvalidParameter)
	if err != nil {
		return nil, err
	}
	if id != "" {
		return nil, c.bot.RemoveServer(id)
	}
	for _, s := range c.bot.Servers() {
		c.bot.RemoveServer(s.ID())
	}
	return nil, nil
}

// serverReconnect reconnects one server, or all of them without "server".
func serverReconnect(c *Commands, req Request) (Response, error) {
	id, err := req.OptString("server", "", ServerInvalidParameter)
	if err != nil {
		return nil, err
	}
	if id != "" {
		return nil, c.bot.Reconnect(id)
	}
	for _, s := range c.bot.Servers() {
		if err := c.bot.Reconnect(s.ID()); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func serverJoin(c *Commands, req Request) (Response, error) {
	s, err := c.server(req)
	if err != nil {
		return nil, err
	}
	channel, err := req.String("channel", ServerInvalidParameter)
	if err != nil {
		return nil, err
	}
	password, err := req.OptString("password", "", ServerInvalidParameter)
	if err != nil {
		return nil, err
	}
	return nil, s.Join(channel, password)
}

func serverPart(c *Commands, req Request) (Response, error) {
	s, err := c.server(req)
	if err != nil {
		return nil, err
	}
	channel, err := req.String("channel", ServerInvalidParameter)
	if err != nil {
		return nil, err
	}
	reason, err := req.OptString("reason", "", ServerInvalidParameter)
	if err != nil {
		return nil, err
	}
	return nil, s.Part(channel, reason)
}

// targetMessage reads the common server, target and message fields.
func targetMessage(c *Commands, req Request) (*irc.Server, string, string, error) {
	s, err := c.server(req)
	if err != nil {
		return nil, "", "", err
	}
	target, err := req.String("target", ServerInvalidParameter)
	if err != nil {
		return nil, "", "", err
	}
	message, err := req.String("message", ServerInvalidParameter)
	if err != nil {
		return nil, "", "", err
	}
	return s, target, message, nil
}

func serverMessage(c *Commands, req Request) (Response, error) {
	s, target, message, err := targetMessage(c, req)
	if err != nil {
		return nil, err
	}
	return nil, s.Message(target, message)
}

func serverMe(c *Commands, req Request) (Response, error) {
	s, target, message, err := targetMessage(c, req)
	if err != nil {
		return nil, err
	}
	return nil, s.Me(target, message)
}

func serverNotice(c *Commands, req Request) (Response, error) {
	s, target, message, err := targetMessage(c, req)
	if err != nil {
		return nil, err
	}
	return nil, s.Notice(target, message)
}

func serverMode(c *Commands, req Request) (Response, error) {
	s, err := c.server(req)
	if err != nil {
		return nil, err
	}
	channel, err := req.String("channel", ServerInvalidParameter)
	if err != nil {
		return nil, err
	}
	mode, err := req.String("mode", ServerInvalidParameter)
	if err != nil {
		return nil, err
	}
	args, err := req.Strings("args", ServerInvalidParameter)
	if err != nil {
		return nil, err
	}
	return nil, s.Mode(channel, mode, args...)
}

func serverNick(c *Commands, req Request) (Response, error) {
	s, err := c.server(req)
	if err != nil {
		return nil, err
	}
	nickname, err := req.String("nickname", ServerInvalidParameter)
	if err != nil {
		return nil, err
	}
	return nil, s.SetNickname(nickname)
}

func serverInvite(c *Commands, req Request) (Response, error) {
	s, err := c.server(req)
	if err != nil {
		return nil, err
	}
	target, err := req.String("target", ServerInvalidParameter)
	if err != nil {
		return nil, err
	}
	channel, err := req.String("channel", ServerInvalidParameter)
	if err != nil {
		return nil, err
	}
	return nil, s.Invite(target, channel)
}

func serverKick(c *Commands, req Request) (Response, error) {
	s, err := c.server(req)
	if err != nil {
		return nil, err
	}
	target, err := req.String("target", ServerInvalidParameter)
	if err != nil {
		return nil, err
	}
	channel, err := req.String("channel", ServerInvalidParameter)
	if err != nil {
		return nil, err
	}
	reason, err := req.OptString("reason", "", ServerInvalidParameter)
	if err != nil {
		return nil, err
	}
	return nil, s.Kick(target, channel, reason)
}

func serverTopic(c *Commands, req Request) (Response, error) {
	s, err := c.server(req)
	if err != nil {
		return nil, err
	}
	channel, err := req.String("channel", ServerInvalidParameter)
	if err != nil {
		return nil, err
	}
	topic, err := req.OptString("topic", "", ServerInvalidParameter)
	if err != nil {
		return nil, err
	}
	return nil, s.Topic(channel, topic)
}
