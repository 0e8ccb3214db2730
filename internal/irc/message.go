package irc

import (
	"strconv"
	"strings"
)

// Message is one parsed protocol line.
//
// Numeric replies are resolved once when the message is built, so handlers
// test them with Is or Numeric instead of converting Command again.
type Message struct {
	Prefix  string
	Command string
	Args    []string

	code    int
	numeric bool
}

// NewMessage builds a message and resolves its numeric code.
func NewMessage(prefix, command string, args ...string) Message {
	m := Message{Prefix: prefix, Command: command, Args: args}
	if n, err := strconv.Atoi(command); err == nil {
		m.code = n
		m.numeric = true
	}
	return m
}

// Parse splits a line without its terminator into prefix, command and
// arguments. It never fails: malformed input yields a best-effort, possibly
// empty, message.
func Parse(line string) Message {
	var prefix string

	rest := line
	if strings.HasPrefix(rest, ":") {
		i := strings.IndexByte(rest, ' ')
		if i < 0 {
			return Message{Prefix: rest[1:]}
		}
		prefix, rest = rest[1:i], rest[i+1:]
	}

	rest = strings.TrimLeft(rest, " ")

	var command string
	if i := strings.IndexByte(rest, ' '); i < 0 {
		command, rest = rest, ""
	} else {
		command, rest = rest[:i], rest[i+1:]
	}

	if command == "" {
		return Message{Prefix: prefix}
	}

	var args []string
	for len(rest) > 0 {
		if rest[0] == ':' {
			args = append(args, rest[1:])
			break
		}

		i := strings.IndexByte(rest, ' ')
		if i < 0 {
			args = append(args, rest)
			break
		}
		if i > 0 {
			args = append(args, rest[:i])
		}
		rest = rest[i+1:]
	}

	return NewMessage(prefix, command, args...)
}

// Valid reports whether m holds a message at all.
func (m Message) Valid() bool {
	return m.Command != ""
}

// Numeric returns the numeric reply code, if the command is one.
func (m Message) Numeric() (int, bool) {
	return m.code, m.numeric
}

// Is reports whether the command is the numeric reply code.
func (m Message) Is(code int) bool {
	return m.numeric && m.code == code
}

// Arg returns the argument at index i or an empty string.
func (m Message) Arg(i int) string {
	if i < 0 || i >= len(m.Args) {
		return ""
	}
	return m.Args[i]
}

// IsCTCP reports whether argument i is wrapped in 0x01 bytes.
func (m Message) IsCTCP(i int) bool {
	a := m.Arg(i)
	return len(a) >= 2 && a[0] == 0x01 && a[len(a)-1] == 0x01
}

// CTCP returns argument i without its 0x01 delimiters. The caller must check
// IsCTCP first.
func (m Message) CTCP(i int) string {
	a := m.Args[i]
	return a[1 : len(a)-1]
}

// User is the nickname and host part of a message prefix.
type User struct {
	Nick string
	Host string
}

// ParseUser splits a nick!user@host prefix on the first '!'.
func ParseUser(s string) User {
	i := strings.IndexByte(s, '!')
	if i < 0 {
		return User{Nick: s}
	}
	return User{Nick: s[:i], Host: s[i+1:]}
}

// IsChannel reports whether target names a channel rather than a user.
func IsChannel(target string) bool {
	return target != "" && strings.ContainsRune("#&+!", rune(target[0]))
}

// Channel is a requested or joined channel with its optional key.
type Channel struct {
	Name     string `json:"name" yaml:"name"`
	Password string `json:"password,omitempty" yaml:"password"`
}

// Whois is the information collected from the WHOIS numeric replies.
type Whois struct {
	Nick     string
	User     string
	Host     string
	Realname string
	Channels []string
}

const (
	rplISupport      = 5
	rplWhoisUser     = 311
	rplEndOfWhois    = 318
	rplWhoisChannels = 319
	rplNamReply      = 353
	rplEndOfNames    = 366
	rplEndOfMOTD     = 376
	errNoMOTD        = 422
	errNicknameInUse = 433
)
