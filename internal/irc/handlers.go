package irc

import (
	"strings"
)

// dispatch routes a message to exactly one handler by numeric code or
// command name. Unknown messages are ignored.
func (s *Server) dispatch(msg Message) {
	if !msg.Valid() {
		return
	}

	if code, ok := msg.Numeric(); ok {
		switch code {
		case rplISupport:
			s.onISupport(msg)
		case errNoMOTD, rplEndOfMOTD:
			s.onEndOfMOTD(msg)
		case errNicknameInUse:
			s.onNicknameInUse(msg)
		case rplNamReply:
			s.onNamReply(msg)
		case rplEndOfNames:
			s.onEndOfNames(msg)
		case rplWhoisUser:
			s.onWhoisUser(msg)
		case rplWhoisChannels:
			s.onWhoisChannels(msg)
		case rplEndOfWhois:
			s.onEndOfWhois(msg)
		}
		return
	}

	switch strings.ToUpper(msg.Command) {
	case "INVITE":
		s.onInvite(msg)
	case "JOIN":
		s.onJoin(msg)
	case "KICK":
		s.onKick(msg)
	case "MODE":
		s.onMode(msg)
	case "NICK":
		s.onNick(msg)
	case "NOTICE":
		s.onNotice(msg)
	case "TOPIC":
		s.onTopic(msg)
	case "PART":
		s.onPart(msg)
	case "PING":
		s.onPing(msg)
	case "PRIVMSG":
		s.onPrivmsg(msg)
	}
}

// onISupport reads PREFIX=(modes)prefixes, e.g. PREFIX=(qaohv)~&@%+.
func (s *Server) onISupport(msg Message) {
	for _, token := range msg.Args {
		value, ok := strings.CutPrefix(token, "PREFIX=")
		if !ok {
			continue
		}

		end := strings.IndexByte(value, ')')
		if !strings.HasPrefix(value, "(") || end < 0 {
			continue
		}

		modes, chars := value[1:end], value[end+1:]
		if len(modes) != len(chars) {
			s.log.Warn("ignoring malformed PREFIX", "value", value)
			continue
		}

		s.prefixes = make(map[byte]byte, len(modes))
		for i := 0; i < len(modes); i++ {
			s.prefixes[modes[i]] = chars[i]
		}
	}
}

func (s *Server) onEndOfMOTD(msg Message) {
	if s.state != StateIdentifying {
		return
	}

	s.setState(StateConnected)
	s.log.Info("connected", "nickname", s.nickname)
	s.emit(ConnectEvent{Server: s})

	for _, ch := range s.requested {
		if ch.Password != "" {
			s.command("JOIN", ch.Name, ch.Password)
		} else {
			s.command("JOIN", ch.Name)
		}
	}
}

// onNicknameInUse picks another nickname while we are still identifying.
func (s *Server) onNicknameInUse(msg Message) {
	if s.state != StateIdentifying {
		return
	}

	next := s.opts.Alternate
	if next == "" || s.isSelf(next) {
		next = s.nickname + "_"
	}

	s.log.Warn("nickname in use", "nickname", s.nickname, "next", next)
	s.nickname = next
	s.command("NICK", next)
}

func (s *Server) isStatus(c byte) bool {
	for _, p := range s.prefixes {
		if c == p {
			return true
		}
	}
	return false
}

// stripPrefix removes leading channel status prefixes such as @ or +.
func (s *Server) stripPrefix(nickname string) string {
	for len(nickname) > 0 && s.isStatus(nickname[0]) {
		nickname = nickname[1:]
	}
	return nickname
}

// stripChannelPrefix is stripPrefix for channel names. A status symbol may
// also be a channel type (& with PREFIX ~&@%+) so it is only removed while
// the rest is still a channel.
func (s *Server) stripChannelPrefix(channel string) string {
	for len(channel) > 1 && s.isStatus(channel[0]) && IsChannel(channel[1:]) {
		channel = channel[1:]
	}
	return channel
}

// onNamReply accumulates users: <me> <type> <channel> :<names...>
func (s *Server) onNamReply(msg Message) {
	if len(msg.Args) < 4 || msg.Args[2] == "" || msg.Args[3] == "" {
		return
	}

	channel := msg.Args[2]
	key := strings.ToLower(channel)

	entry, ok := s.names[key]
	if !ok {
		entry = &namesEntry{channel: channel, seen: make(map[string]bool)}
		s.names[key] = entry
	}

	for _, name := range strings.Fields(msg.Args[3]) {
		name = s.stripPrefix(name)
		if name == "" || entry.seen[name] {
			continue
		}
		entry.seen[name] = true
		entry.names = append(entry.names, name)
	}
}

// onEndOfNames flushes the accumulated users: <me> <channel> :End of NAMES
func (s *Server) onEndOfNames(msg Message) {
	if len(msg.Args) < 2 {
		return
	}

	key := strings.ToLower(msg.Args[1])
	entry, ok := s.names[key]
	if !ok {
		return
	}
	delete(s.names, key)

	s.emit(NamesEvent{Server: s, Channel: entry.channel, Names: entry.names})
}

// onWhoisUser starts a record: <me> <nick> <user> <host> * :<realname>
func (s *Server) onWhoisUser(msg Message) {
	if len(msg.Args) < 6 {
		return
	}

	s.whois[strings.ToLower(msg.Args[1])] = &Whois{
		Nick:     msg.Args[1],
		User:     msg.Args[2],
		Host:     msg.Args[3],
		Realname: msg.Args[5],
	}
}

// onWhoisChannels appends channels: <me> <nick> :{[@|+]<channel>}
func (s *Server) onWhoisChannels(msg Message) {
	if len(msg.Args) < 3 {
		return
	}

	w, ok := s.whois[strings.ToLower(msg.Args[1])]
	if !ok {
		return
	}

	for _, ch := range strings.Fields(msg.Args[2]) {
		w.Channels = append(w.Channels, s.stripChannelPrefix(ch))
	}
}

func (s *Server) onEndOfWhois(msg Message) {
	if len(msg.Args) < 2 {
		return
	}

	key := strings.ToLower(msg.Args[1])
	w, ok := s.whois[key]
	if !ok {
		return
	}
	delete(s.whois, key)

	s.emit(WhoisEvent{Server: s, Whois: *w})
}

// onInvite: :origin INVITE <me> <channel>
func (s *Server) onInvite(msg Message) {
	if len(msg.Args) < 2 {
		return
	}

	channel := msg.Args[1]
	if s.opts.JoinInvite {
		s.Join(channel, "")
	}

	s.emit(InviteEvent{Server: s, Origin: msg.Prefix, Channel: channel, Nickname: msg.Args[0]})
}

func (s *Server) onJoin(msg Message) {
	if len(msg.Args) < 1 {
		return
	}

	channel := msg.Args[0]
	if s.isSelf(ParseUser(msg.Prefix).Nick) {
		s.joined[strings.ToLower(channel)] = channel
	}

	s.emit(JoinEvent{Server: s, Origin: msg.Prefix, Channel: channel})
}

// onKick: :origin KICK <channel> <target> [:<reason>]
func (s *Server) onKick(msg Message) {
	if len(msg.Args) < 2 {
		return
	}

	channel, target := msg.Args[0], msg.Args[1]
	if s.isSelf(target) {
		delete(s.joined, strings.ToLower(channel))

		if s.opts.AutoRejoin {
			s.Join(channel, s.password(channel))
		}
	}

	s.emit(KickEvent{
		Server:  s,
		Origin:  msg.Prefix,
		Channel: channel,
		Target:  target,
		Reason:  msg.Arg(2),
	})
}

// onMode: :origin MODE <target> <mode> [args...]
func (s *Server) onMode(msg Message) {
	if len(msg.Args) < 2 {
		return
	}

	var args []string
	if len(msg.Args) > 2 {
		args = append(args, msg.Args[2:]...)
	}

	s.emit(ModeEvent{
		Server:  s,
		Origin:  msg.Prefix,
		Channel: msg.Args[0],
		Mode:    msg.Args[1],
		Args:    args,
	})
}

func (s *Server) onNick(msg Message) {
	if len(msg.Args) < 1 {
		return
	}

	nickname := msg.Args[0]
	if s.isSelf(ParseUser(msg.Prefix).Nick) {
		s.log.Info("nickname changed", "from", s.nickname, "to", nickname)
		s.nickname = nickname
	}

	s.emit(NickEvent{Server: s, Origin: msg.Prefix, Nickname: nickname})
}

func (s *Server) onNotice(msg Message) {
	if len(msg.Args) < 2 {
		return
	}

	s.emit(NoticeEvent{Server: s, Origin: msg.Prefix, Channel: msg.Args[0], Message: msg.Args[1]})
}

func (s *Server) onTopic(msg Message) {
	if len(msg.Args) < 2 {
		return
	}

	s.emit(TopicEvent{Server: s, Origin: msg.Prefix, Channel: msg.Args[0], Topic: msg.Args[1]})
}

func (s *Server) onPart(msg Message) {
	if len(msg.Args) < 1 {
		return
	}

	channel := msg.Args[0]
	if s.isSelf(ParseUser(msg.Prefix).Nick) {
		delete(s.joined, strings.ToLower(channel))
	}

	s.emit(PartEvent{Server: s, Origin: msg.Prefix, Channel: channel, Reason: msg.Arg(1)})
}

func (s *Server) onPing(msg Message) {
	s.command("PONG", msg.Args...)
}

func (s *Server) onPrivmsg(msg Message) {
	if len(msg.Args) < 2 {
		return
	}

	target := msg.Args[0]

	if !msg.IsCTCP(1) {
		s.emit(MessageEvent{Server: s, Origin: msg.Prefix, Channel: target, Message: msg.Args[1]})
		return
	}

	payload := msg.CTCP(1)
	switch {
	case strings.HasPrefix(payload, "ACTION"):
		text := strings.TrimPrefix(strings.TrimPrefix(payload, "ACTION"), " ")
		s.emit(MeEvent{Server: s, Origin: msg.Prefix, Channel: target, Message: text})
	case payload == "VERSION" && s.opts.CTCPVersion != "":
		s.command("NOTICE", ParseUser(msg.Prefix).Nick, "\x01VERSION "+s.opts.CTCPVersion+"\x01")
	}
}
