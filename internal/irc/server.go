package irc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ergochat/irc-go/ircmsg"
	"golang.org/x/time/rate"
)

var (
	// ErrTimeout is reported when the connect deadline expires.
	ErrTimeout = errors.New("irc: connection timed out")

	// ErrPingTimeout is reported when the server stayed silent too long.
	ErrPingTimeout = errors.New("irc: ping timeout")

	// ErrQueueFull is returned by Send when the outgoing queue is at capacity.
	ErrQueueFull = errors.New("irc: outgoing queue full")

	// ErrAlreadyConnected is returned by Connect outside the disconnected state.
	ErrAlreadyConnected = errors.New("irc: already connected")
)

// State is the connection lifecycle of a Server.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateIdentifying
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateIdentifying:
		return "identifying"
	case StateConnected:
		return "connected"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Options configures one network.
type Options struct {
	ID       string
	Hostname string
	Port     int
	Password string

	Nickname  string
	Alternate string
	Username  string
	Realname  string

	// CommandChar prefixes plugin commands in messages, "!" by default.
	CommandChar string
	CTCPVersion string

	SSL       bool
	SSLVerify bool
	Proxy     string
	Encoding  string

	AutoRejoin bool
	JoinInvite bool

	ConnectTimeout time.Duration
	PingTimeout    time.Duration

	// FloodRate is the number of lines per second allowed once FloodBurst
	// is spent. Zero disables flood control.
	FloodRate  float64
	FloodBurst int

	// QueueSize caps the outgoing queue. Zero means unbounded.
	QueueSize int

	Channels []Channel
}

// Poster runs functions on the goroutine owning the server.
type Poster interface {
	Post(fn func())
}

// Server is the protocol engine for one network. Every method must be called
// from the loop goroutine; I/O runs on helper goroutines that post their
// results back.
type Server struct {
	opts Options
	loop Poster
	sink Sink
	log  *slog.Logger

	newConn func(ConnOptions) (Conn, error)
	onState func(State)

	state    State
	nickname string
	conn     Conn
	gen      uint64
	ctx      context.Context
	cancel   context.CancelFunc
	ping     *time.Timer
	limiter  *rate.Limiter

	queue []string

	requested []Channel
	joined    map[string]string

	// prefixes maps channel modes to nickname prefixes, from ISUPPORT PREFIX.
	prefixes map[byte]byte
	names    map[string]*namesEntry
	whois    map[string]*Whois
}

type namesEntry struct {
	channel string
	names   []string
	seen    map[string]bool
}

// NewServer creates a disconnected server. Events are delivered to sink.
func NewServer(opts Options, loop Poster, sink Sink, logger *slog.Logger) *Server {
	if opts.CommandChar == "" {
		opts.CommandChar = "!"
	}
	if opts.Username == "" {
		opts.Username = opts.Nickname
	}
	if opts.Realname == "" {
		opts.Realname = opts.Nickname
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		opts:     opts,
		loop:     loop,
		sink:     sink,
		log:      logger.With("server", opts.ID),
		newConn:  NewConn,
		nickname: opts.Nickname,
		joined:   make(map[string]string),
		prefixes: map[byte]byte{'o': '@', 'v': '+'},
		names:    make(map[string]*namesEntry),
		whois:    make(map[string]*Whois),
	}
	for _, ch := range opts.Channels {
		s.request(ch)
	}
	return s
}

func (s *Server) ID() string          { return s.opts.ID }
func (s *Server) Options() Options    { return s.opts }
func (s *Server) State() State        { return s.state }
func (s *Server) Nickname() string    { return s.nickname }
func (s *Server) CommandChar() string { return s.opts.CommandChar }

// Requested returns the channels joined automatically after connecting.
func (s *Server) Requested() []Channel {
	return append([]Channel(nil), s.requested...)
}

// Channels returns the channels we are currently in.
func (s *Server) Channels() []string {
	out := make([]string, 0, len(s.joined))
	for _, name := range s.joined {
		out = append(out, name)
	}
	return out
}

// Prefixes returns the mode to nickname prefix mapping in use.
func (s *Server) Prefixes() map[byte]byte {
	out := make(map[byte]byte, len(s.prefixes))
	for k, v := range s.prefixes {
		out[k] = v
	}
	return out
}

// Connect starts a connection attempt.
func (s *Server) Connect() error {
	if s.state != StateDisconnected {
		return ErrAlreadyConnected
	}

	conn, err := s.newConn(ConnOptions{
		TLS:       s.opts.SSL,
		TLSVerify: s.opts.SSLVerify,
		Proxy:     s.opts.Proxy,
		Encoding:  s.opts.Encoding,
	})
	if err != nil {
		return err
	}

	s.gen++
	s.conn = conn
	s.nickname = s.opts.Nickname
	s.ctx, s.cancel = context.WithCancel(context.Background())
	if s.opts.FloodRate > 0 {
		burst := s.opts.FloodBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(s.opts.FloodRate), burst)
	}
	s.setState(StateConnecting)

	gen, ctx := s.gen, s.ctx
	host, port, timeout := s.opts.Hostname, s.opts.Port, s.opts.ConnectTimeout

	s.log.Info("connecting", "host", host, "port", port, "ssl", s.opts.SSL)

	go func() {
		dctx, cancel := ctx, context.CancelFunc(func() {})
		if timeout > 0 {
			dctx, cancel = context.WithTimeout(ctx, timeout)
		}
		err := conn.Connect(dctx, host, port)
		if err != nil && errors.Is(dctx.Err(), context.DeadlineExceeded) {
			err = ErrTimeout
		}
		cancel()

		s.loop.Post(func() { s.connected(gen, conn, err) })
	}()

	return nil
}

// Disconnect closes the connection without raising a disconnect event. The
// requested channels are kept for the next Connect.
func (s *Server) Disconnect() {
	if s.state == StateDisconnected {
		return
	}
	s.log.Info("disconnecting")
	s.teardown()
}

// Send queues a raw line. Lines are written one at a time in call order.
func (s *Server) Send(raw string) error {
	if s.state < StateIdentifying {
		return ErrNotConnected
	}
	if s.opts.QueueSize > 0 && len(s.queue) >= s.opts.QueueSize {
		s.log.Warn("outgoing queue full, dropping line", "size", len(s.queue))
		return ErrQueueFull
	}

	s.queue = append(s.queue, raw)
	if len(s.queue) == 1 {
		s.flush()
	}
	return nil
}

// command validates and serializes a command before queueing it.
func (s *Server) command(name string, params ...string) error {
	msg := ircmsg.MakeMessage(nil, "", name, params...)
	line, err := msg.Line()
	if err != nil {
		return fmt.Errorf("invalid %s command: %w", name, err)
	}
	return s.Send(strings.TrimRight(line, "\r\n"))
}

// Join requests a channel. It is remembered and joined again after every
// reconnection.
func (s *Server) Join(channel, password string) error {
	s.request(Channel{Name: channel, Password: password})
	if s.state != StateConnected {
		return nil
	}
	if password != "" {
		return s.command("JOIN", channel, password)
	}
	return s.command("JOIN", channel)
}

// Part leaves a channel and forgets it.
func (s *Server) Part(channel, reason string) error {
	s.forget(channel)
	if s.state != StateConnected {
		return nil
	}
	if reason != "" {
		return s.command("PART", channel, reason)
	}
	return s.command("PART", channel)
}

func (s *Server) Message(target, text string) error {
	return s.command("PRIVMSG", target, text)
}

func (s *Server) Me(target, text string) error {
	return s.command("PRIVMSG", target, "\x01ACTION "+text+"\x01")
}

func (s *Server) Notice(target, text string) error {
	return s.command("NOTICE", target, text)
}

func (s *Server) Mode(target, mode string, args ...string) error {
	return s.command("MODE", append([]string{target, mode}, args...)...)
}

func (s *Server) Invite(nickname, channel string) error {
	return s.command("INVITE", nickname, channel)
}

func (s *Server) Kick(target, channel, reason string) error {
	if reason != "" {
		return s.command("KICK", channel, target, reason)
	}
	return s.command("KICK", channel, target)
}

func (s *Server) Topic(channel, topic string) error {
	return s.command("TOPIC", channel, topic)
}

func (s *Server) Names(channel string) error {
	return s.command("NAMES", channel)
}

func (s *Server) Whois(target string) error {
	return s.command("WHOIS", target, target)
}

// SetNickname changes our nickname, or the one used for the next connection.
func (s *Server) SetNickname(nickname string) error {
	if s.state < StateIdentifying {
		s.opts.Nickname = nickname
		s.nickname = nickname
		return nil
	}
	return s.command("NICK", nickname)
}

func (s *Server) setState(state State) {
	s.log.Debug("state changed", "from", s.state, "to", state)
	s.state = state
	if s.onState != nil {
		s.onState(state)
	}
}

func (s *Server) emit(ev Event) {
	if s.sink != nil {
		s.sink.HandleEvent(ev)
	}
}

func (s *Server) connected(gen uint64, conn Conn, err error) {
	if gen != s.gen {
		if err == nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		s.fail(err)
		return
	}

	s.setState(StateIdentifying)

	if s.opts.PingTimeout > 0 {
		s.ping = time.AfterFunc(s.opts.PingTimeout, func() {
			s.loop.Post(func() {
				if s.gen == gen {
					s.fail(ErrPingTimeout)
				}
			})
		})
	}

	if s.opts.Password != "" {
		s.command("PASS", s.opts.Password)
	}
	s.command("NICK", s.nickname)
	s.command("USER", s.opts.Username, "0", "*", s.opts.Realname)

	s.receive()
}

func (s *Server) receive() {
	conn, gen := s.conn, s.gen
	go func() {
		msg, err := conn.Receive()
		s.loop.Post(func() { s.received(gen, msg, err) })
	}()
}

func (s *Server) received(gen uint64, msg Message, err error) {
	if gen != s.gen {
		return
	}
	if err != nil {
		s.fail(err)
		return
	}
	if s.ping != nil {
		s.ping.Reset(s.opts.PingTimeout)
	}

	s.dispatch(msg)

	// A plugin may have disconnected us while handling the message.
	if gen == s.gen {
		s.receive()
	}
}

func (s *Server) flush() {
	conn, gen, ctx, lim, raw := s.conn, s.gen, s.ctx, s.limiter, s.queue[0]
	go func() {
		var err error
		if lim != nil {
			err = lim.Wait(ctx)
		}
		if err == nil {
			err = conn.Send(raw)
		}
		s.loop.Post(func() { s.sent(gen, err) })
	}()
}

func (s *Server) sent(gen uint64, err error) {
	if gen != s.gen {
		return
	}
	if err != nil {
		s.fail(err)
		return
	}

	s.queue[0] = ""
	s.queue = s.queue[1:]
	if len(s.queue) > 0 {
		s.flush()
	}
}

// fail tears the connection down and reports it to the sink.
func (s *Server) fail(err error) {
	s.log.Warn("connection lost", "state", s.state, "error", err)
	s.teardown()
	s.emit(DisconnectEvent{Server: s, Err: err})
}

func (s *Server) teardown() {
	s.gen++

	if s.cancel != nil {
		s.cancel()
	}
	// A pending Connect owns the socket until its completion is posted;
	// connected() closes it once it notices the stale generation.
	if s.conn != nil && s.state != StateConnecting {
		s.conn.Close()
	}
	if s.ping != nil {
		s.ping.Stop()
	}

	s.conn = nil
	s.ctx, s.cancel = nil, nil
	s.ping = nil
	s.limiter = nil
	s.queue = nil
	s.joined = make(map[string]string)
	s.names = make(map[string]*namesEntry)
	s.whois = make(map[string]*Whois)

	s.setState(StateDisconnected)
}

func (s *Server) request(ch Channel) {
	for i := range s.requested {
		if strings.EqualFold(s.requested[i].Name, ch.Name) {
			s.requested[i] = ch
			return
		}
	}
	s.requested = append(s.requested, ch)
}

func (s *Server) forget(channel string) {
	for i := range s.requested {
		if strings.EqualFold(s.requested[i].Name, channel) {
			s.requested = append(s.requested[:i], s.requested[i+1:]...)
			return
		}
	}
}

func (s *Server) password(channel string) string {
	for _, ch := range s.requested {
		if strings.EqualFold(ch.Name, channel) {
			return ch.Password
		}
	}
	return ""
}

func (s *Server) isSelf(nickname string) bool {
	return strings.EqualFold(nickname, s.nickname)
}
