package admin

import (
	"errors"
	"fmt"

	"github.com/markand/irccd-sub002/internal/bot"
	"github.com/markand/irccd-sub002/internal/irc"
	"github.com/markand/irccd-sub002/internal/plugin"
	"github.com/markand/irccd-sub002/internal/rule"
)

// Code identifies a request failure. The thousands select the category.
type Code int

const (
	InvalidMessage Code = 1 + iota
	InvalidCommand
	IncompleteMessage
	AuthRequired
	InvalidAuth
	Unavailable
)

const (
	ServerNotFound Code = 1000 + iota
	ServerAlreadyExists
	ServerNotConnected
	ServerInvalidParameter
	ServerError
)

const (
	RuleInvalidIndex Code = 2000 + iota
	RuleInvalidAction
	RuleInvalidParameter
)

const (
	PluginNotFound Code = 3000 + iota
	PluginAlreadyExists
	PluginInvalidParameter
	PluginExecError
)

// Category names the component a code belongs to.
func (c Code) Category() string {
	switch {
	case c >= 3000:
		return "plugin"
	case c >= 2000:
		return "rule"
	case c >= 1000:
		return "server"
	}
	return "irccd"
}

// Error is a request-scoped failure returned to the client.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error %d: %s", e.Code.Category(), e.Code, e.Message)
}

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// toError classifies err. fallback is used for unknown errors.
func toError(err error, fallback Code) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	code := fallback
	switch {
	case errors.Is(err, bot.ErrServerNotFound):
		code = ServerNotFound
	case errors.Is(err, bot.ErrServerExists):
		code = ServerAlreadyExists
	case errors.Is(err, irc.ErrNotConnected), errors.Is(err, irc.ErrAlreadyConnected):
		code = ServerNotConnected
	case errors.Is(err, rule.ErrIndex):
		code = RuleInvalidIndex
	case errors.Is(err, plugin.ErrNotFound):
		code = PluginNotFound
	case errors.Is(err, plugin.ErrAlreadyLoaded):
		code = PluginAlreadyExists
	}
	return &Error{Code: code, Message: err.Error()}
}
