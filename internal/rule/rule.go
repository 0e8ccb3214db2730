// Package rule decides whether an event may reach a plugin.
package rule

import (
	"fmt"
	"sort"
	"strings"
)

// Action is what a matching rule does with an event.
type Action int

const (
	Accept Action = iota
	Drop
)

func (a Action) String() string {
	if a == Drop {
		return "drop"
	}
	return "accept"
}

// ParseAction reads "accept" or "drop".
func ParseAction(s string) (Action, error) {
	switch s {
	case "accept":
		return Accept, nil
	case "drop":
		return Drop, nil
	}
	return Accept, fmt.Errorf("invalid rule action %q", s)
}

func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Action) UnmarshalText(text []byte) error {
	v, err := ParseAction(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Criteria lists the values a rule is restricted to. An empty list matches
// anything.
type Criteria struct {
	Servers  []string `json:"servers,omitempty" yaml:"servers"`
	Channels []string `json:"channels,omitempty" yaml:"channels"`
	Origins  []string `json:"origins,omitempty" yaml:"origins"`
	Plugins  []string `json:"plugins,omitempty" yaml:"plugins"`
	Events   []string `json:"events,omitempty" yaml:"events"`
}

type set map[string]struct{}

func newSet(values []string, fold bool) set {
	s := make(set, len(values))
	for _, v := range values {
		if fold {
			v = strings.ToLower(v)
		}
		s[v] = struct{}{}
	}
	return s
}

func (s set) match(v string) bool {
	if len(s) == 0 {
		return true
	}
	_, ok := s[v]
	return ok
}

func (s set) sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Rule is an immutable filter. Server, channel, origin and plugin values are
// compared case-insensitively, events exactly.
type Rule struct {
	servers  set
	channels set
	origins  set
	plugins  set
	events   set
	action   Action
}

func New(c Criteria, action Action) Rule {
	return Rule{
		servers:  newSet(c.Servers, true),
		channels: newSet(c.Channels, true),
		origins:  newSet(c.Origins, true),
		plugins:  newSet(c.Plugins, true),
		events:   newSet(c.Events, false),
		action:   action,
	}
}

func (r Rule) Action() Action { return r.action }

// Criteria returns the sets of r, sorted.
func (r Rule) Criteria() Criteria {
	return Criteria{
		Servers:  r.servers.sorted(),
		Channels: r.channels.sorted(),
		Origins:  r.origins.sorted(),
		Plugins:  r.plugins.sorted(),
		Events:   r.events.sorted(),
	}
}

// Match reports whether every criterion of r accepts its candidate.
func (r Rule) Match(server, channel, origin, plugin, event string) bool {
	return r.servers.match(strings.ToLower(server)) &&
		r.channels.match(strings.ToLower(channel)) &&
		r.origins.match(strings.ToLower(origin)) &&
		r.plugins.match(strings.ToLower(plugin)) &&
		r.events.match(event)
}

// Edit describes a change to an existing rule.
type Edit struct {
	Add    Criteria
	Remove Criteria
	Action *Action
}

// Apply returns a copy of r with e applied. Removals happen after additions.
func (r Rule) Apply(e Edit) Rule {
	c := r.Criteria()
	c.Servers = edit(c.Servers, e.Add.Servers, e.Remove.Servers, true)
	c.Channels = edit(c.Channels, e.Add.Channels, e.Remove.Channels, true)
	c.Origins = edit(c.Origins, e.Add.Origins, e.Remove.Origins, true)
	c.Plugins = edit(c.Plugins, e.Add.Plugins, e.Remove.Plugins, true)
	c.Events = edit(c.Events, e.Add.Events, e.Remove.Events, false)

	action := r.action
	if e.Action != nil {
		action = *e.Action
	}
	return New(c, action)
}

func edit(values, add, remove []string, fold bool) []string {
	s := newSet(values, fold)
	for v := range newSet(add, fold) {
		s[v] = struct{}{}
	}
	for v := range newSet(remove, fold) {
		delete(s, v)
	}
	return s.sorted()
}
