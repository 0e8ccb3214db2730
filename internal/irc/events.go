package irc

// Event is one of the typed IRC events raised by a Server. The set is closed:
// only the types in this file implement it.
type Event interface {
	// Network returns the server that raised the event.
	Network() *Server
	event()
}

// Sink receives every event raised by a server, on the loop goroutine.
type Sink interface {
	HandleEvent(ev Event)
}

// ConnectEvent is raised once the server accepted our identity.
type ConnectEvent struct {
	Server *Server
}

// DisconnectEvent is raised when the connection failed or was lost.
type DisconnectEvent struct {
	Server *Server
	Err    error
}

// InviteEvent is raised when someone invites us to a channel.
type InviteEvent struct {
	Server   *Server
	Origin   string
	Channel  string
	Nickname string
}

type JoinEvent struct {
	Server  *Server
	Origin  string
	Channel string
}

type KickEvent struct {
	Server  *Server
	Origin  string
	Channel string
	Target  string
	Reason  string
}

// ModeEvent carries a channel or user mode change. Args holds the mode
// parameters (limits, nicknames, masks) in the order they were sent.
type ModeEvent struct {
	Server  *Server
	Origin  string
	Channel string
	Mode    string
	Args    []string
}

// NamesEvent is the complete list of a channel's users, prefixes removed.
type NamesEvent struct {
	Server  *Server
	Channel string
	Names   []string
}

type NickEvent struct {
	Server   *Server
	Origin   string
	Nickname string
}

type NoticeEvent struct {
	Server  *Server
	Origin  string
	Channel string
	Message string
}

// MessageEvent is a PRIVMSG on a channel or in query. Channel is our own
// nickname for private messages.
type MessageEvent struct {
	Server  *Server
	Origin  string
	Channel string
	Message string
}

// MeEvent is a CTCP ACTION.
type MeEvent struct {
	Server  *Server
	Origin  string
	Channel string
	Message string
}

type PartEvent struct {
	Server  *Server
	Origin  string
	Channel string
	Reason  string
}

type TopicEvent struct {
	Server  *Server
	Origin  string
	Channel string
	Topic   string
}

type WhoisEvent struct {
	Server *Server
	Whois  Whois
}

func (e ConnectEvent) Network() *Server    { return e.Server }
func (e DisconnectEvent) Network() *Server { return e.Server }
func (e InviteEvent) Network() *Server     { return e.Server }
func (e JoinEvent) Network() *Server       { return e.Server }
func (e KickEvent) Network() *Server       { return e.Server }
func (e ModeEvent) Network() *Server       { return e.Server }
func (e NamesEvent) Network() *Server      { return e.Server }
func (e NickEvent) Network() *Server       { return e.Server }
func (e NoticeEvent) Network() *Server     { return e.Server }
func (e MessageEvent) Network() *Server    { return e.Server }
func (e MeEvent) Network() *Server         { return e.Server }
func (e PartEvent) Network() *Server       { return e.Server }
func (e TopicEvent) Network() *Server      { return e.Server }
func (e WhoisEvent) Network() *Server      { return e.Server }

func (ConnectEvent) event()    {}
func (DisconnectEvent) event() {}
func (InviteEvent) event()     {}
func (JoinEvent) event()       {}
func (KickEvent) event()       {}
func (ModeEvent) event()       {}
func (NamesEvent) event()      {}
func (NickEvent) event()       {}
func (NoticeEvent) event()     {}
func (MessageEvent) event()    {}
func (MeEvent) event()         {}
func (PartEvent) event()       {}
func (TopicEvent) event()      {}
func (WhoisEvent) event()      {}
