package rule

import (
	"errors"
	"fmt"
)

// ErrIndex is returned for a rule position outside the list.
var ErrIndex = errors.New("rule index out of range")

// Router holds the ordered rule list. It is not safe for concurrent use; the
// daemon only touches it from its loop.
type Router struct {
	rules []Rule
}

func NewRouter(rules ...Rule) *Router {
	return &Router{rules: append([]Rule(nil), rules...)}
}

func (r *Router) Len() int { return len(r.rules) }

// Rules returns a copy of the list.
func (r *Router) Rules() []Rule {
	return append([]Rule(nil), r.rules...)
}

func (r *Router) Get(i int) (Rule, error) {
	if err := r.check(i, len(r.rules)); err != nil {
		return Rule{}, err
	}
	return r.rules[i], nil
}

// Add appends a rule at the end.
func (r *Router) Add(rule Rule) {
	r.rules = append(r.rules, rule)
}

// Insert places rule at index i, shifting the following ones. i may equal
// Len.
func (r *Router) Insert(i int, rule Rule) error {
	if err := r.check(i, len(r.rules)+1); err != nil {
		return err
	}
	r.rules = append(r.rules, Rule{})
	copy(r.rules[i+1:], r.rules[i:])
	r.rules[i] = rule
	return nil
}

func (r *Router) Remove(i int) error {
	if err := r.check(i, len(r.rules)); err != nil {
		return err
	}
	r.rules = append(r.rules[:i], r.rules[i+1:]...)
	return nil
}

// Move relocates the rule at from so it ends up at to. A destination past
// the end moves the rule last.
func (r *Router) Move(from, to int) error {
	if err := r.check(from, len(r.rules)); err != nil {
		return err
	}
	if to < 0 {
		return fmt.Errorf("%w: %d", ErrIndex, to)
	}
	if to >= len(r.rules) {
		to = len(r.rules) - 1
	}
	if from == to {
		return nil
	}

	rule := r.rules[from]
	r.rules = append(r.rules[:from], r.rules[from+1:]...)
	r.rules = append(r.rules, Rule{})
	copy(r.rules[to+1:], r.rules[to:])
	r.rules[to] = rule
	return nil
}

// Edit replaces the rule at i with its edited copy.
func (r *Router) Edit(i int, e Edit) (Rule, error) {
	if err := r.check(i, len(r.rules)); err != nil {
		return Rule{}, err
	}
	r.rules[i] = r.rules[i].Apply(e)
	return r.rules[i], nil
}

// Solve tells whether an event may be dispatched. Every matching rule
// overrides the previous decision so the last match wins; with no match the
// event is accepted.
func (r *Router) Solve(server, channel, origin, plugin, event string) bool {
	result := true
	for _, rule := range r.rules {
		if rule.Match(server, channel, origin, plugin, event) {
			result = rule.action == Accept
		}
	}
	return result
}

func (r *Router) check(i, n int) error {
	if i < 0 || i >= n {
		return fmt.Errorf("%w: %d", ErrIndex, i)
	}
	return nil
}
