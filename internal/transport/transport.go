// Package transport serves the administrative JSON protocol on a unix or TCP
// socket and relays events to the connected clients.
package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/markand/irccd-sub002/internal/admin"
)

// Terminator ends every JSON document on the wire.
const Terminator = "\r\n\r\n"

const (
	outboxSize  = 128
	maxDocument = 1 << 20
)

// Version is announced in the greeting.
var Version = struct{ Major, Minor, Patch int }{4, 0, 0}

// Handler executes a request. It is called from the client goroutines.
type Handler func(ctx context.Context, req admin.Request) admin.Response

type Options struct {
	// Network is "unix" or "tcp".
	Network string
	Address string
	// Password, when set, must be given with the auth command first.
	Password string
}

// Server accepts clients. Publish may be called from any goroutine.
type Server struct {
	opts     Options
	handler  Handler
	log      *slog.Logger
	listener net.Listener

	mu      sync.Mutex
	clients map[*client]struct{}
	wg      sync.WaitGroup
}

// Listen opens the socket. A stale unix socket file is removed first.
func Listen(opts Options, handler Handler, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Network == "unix" {
		if err := os.Remove(opts.Address); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove stale socket: %w", err)
		}
	}

	ln, err := net.Listen(opts.Network, opts.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s %s: %w", opts.Network, opts.Address, err)
	}

	return &Server{
		opts:     opts,
		handler:  handler,
		log:      logger.With("transport", ln.Addr().String()),
		listener: ln,
		clients:  make(map[*client]struct{}),
	}, nil
}

func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// Serve accepts clients until ctx is done, then closes every client.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	s.log.Info("transport listening")
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.log.Warn("accept failed", "error", err)
			continue
		}
		s.accept(ctx, conn)
	}

	s.mu.Lock()
	for c := range s.clients {
		c.close()
	}
	s.mu.Unlock()
	s.wg.Wait()

	if s.opts.Network == "unix" {
		os.Remove(s.opts.Address)
	}
	return nil
}

// Publish sends ev to every authenticated client. Clients that cannot keep
// up are disconnected.
func (s *Server) Publish(ev map[string]any) {
	doc, err := json.Marshal(ev)
	if err != nil {
		s.log.Error("failed to encode event", "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for c := range s.clients {
		if !c.authed.Load() {
			continue
		}
		if !c.send(doc) {
			s.log.Warn("client too slow, dropping", "client", c.id)
			delete(s.clients, c)
			c.close()
		}
	}
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) accept(ctx context.Context, conn net.Conn) {
	c := newClient(conn)
	c.authed.Store(s.opts.Password == "")

	greeting, _ := json.Marshal(map[string]any{
		"program": "irccd",
		"major":   Version.Major,
		"minor":   Version.Minor,
		"patch":   Version.Patch,
	})
	c.send(greeting)

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	s.log.Info("client connected", "client", c.id, "remote", conn.RemoteAddr().String())

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		c.write()
	}()
	go func() {
		defer s.wg.Done()
		flush := s.read(ctx, c)

		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
		if flush {
			c.shutdown()
		} else {
			c.close()
		}
		s.log.Info("client disconnected", "client", c.id)
	}()
}

// read handles documents until the client leaves. It returns true when the
// pending replies must still be written before closing.
func (s *Server) read(ctx context.Context, c *client) bool {
	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 0, 4096), maxDocument)
	scanner.Split(splitDocuments)

	for scanner.Scan() {
		res, keep := s.handle(ctx, c, scanner.Bytes())
		if !c.reply(res) {
			return false
		}
		if !keep {
			return true
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.log.Warn("client read failed", "client", c.id, "error", err)
	}
	return false
}

// handle answers one document. keep is false when the client must be closed.
func (s *Server) handle(ctx context.Context, c *client, doc []byte) (res admin.Response, keep bool) {
	var req admin.Request
	if err := json.Unmarshal(doc, &req); err != nil || req == nil {
		return admin.Failure("", &admin.Error{Code: admin.InvalidMessage, Message: "invalid JSON document"}), true
	}

	name := req.Command()
	if name == "" {
		return admin.Failure("", &admin.Error{Code: admin.IncompleteMessage, Message: "missing command"}), true
	}

	if name == "auth" {
		password, _ := req["password"].(string)
		if s.opts.Password != "" && password != s.opts.Password {
			s.log.Warn("client authentication failed", "client", c.id)
			return admin.Failure(name, &admin.Error{Code: admin.InvalidAuth, Message: "invalid password"}), false
		}
		c.authed.Store(true)
		return admin.Response{"command": name}, true
	}

	if !c.authed.Load() {
		return admin.Failure(name, &admin.Error{Code: admin.AuthRequired, Message: "authentication required"}), true
	}

	s.log.Debug("client command", "client", c.id, "command", name)
	return s.handler(ctx, req), true
}

// splitDocuments is a bufio.SplitFunc cutting on Terminator.
func splitDocuments(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if i := bytes.Index(data, []byte(Terminator)); i >= 0 {
		return i + len(Terminator), data[:i], nil
	}
	if atEOF && len(bytes.TrimSpace(data)) > 0 {
		return 0, nil, errors.New("incomplete document")
	}
	if atEOF {
		return len(data), nil, nil
	}
	return 0, nil, nil
}

type client struct {
	id     string
	conn   net.Conn
	outbox chan []byte
	done   chan struct{}
	quit   chan struct{}
	once   sync.Once
	stop   sync.Once
	authed atomic.Bool
}

func newClient(conn net.Conn) *client {
	return &client{
		id:     uuid.NewString(),
		conn:   conn,
		outbox: make(chan []byte, outboxSize),
		done:   make(chan struct{}),
		quit:   make(chan struct{}),
	}
}

// send queues doc without blocking.
func (c *client) send(doc []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.outbox <- doc:
		return true
	default:
		return false
	}
}

func (c *client) reply(res admin.Response) bool {
	doc, err := json.Marshal(res)
	if err != nil {
		return false
	}
	return c.send(doc)
}

func (c *client) write() {
	for {
		select {
		case doc := <-c.outbox:
			if !c.writeDoc(doc) {
				return
			}
		case <-c.quit:
			for {
				select {
				case doc := <-c.outbox:
					if !c.writeDoc(doc) {
						return
					}
				default:
					c.close()
					return
				}
			}
		case <-c.done:
			return
		}
	}
}

// writeDoc writes doc and its terminator. Documents are shared between
// clients so doc itself is never appended to.
func (c *client) writeDoc(doc []byte) bool {
	buf := make([]byte, 0, len(doc)+len(Terminator))
	buf = append(append(buf, doc...), Terminator...)
	if _, err := c.conn.Write(buf); err != nil {
		c.close()
		return false
	}
	return true
}

// shutdown closes the client once its pending documents are written.
func (c *client) shutdown() {
	c.stop.Do(func() { close(c.quit) })
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}
