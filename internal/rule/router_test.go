package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func channels(action Action, names ...string) Rule {
	return New(Criteria{Channels: names}, action)
}

func TestSolve_EmptyRouterAccepts(t *testing.T) {
	r := NewRouter()

	assert.True(t, r.Solve("freenode", "#a", "jean", "logger", "onMessage"))
	assert.True(t, r.Solve("", "", "", "", ""))
}

func TestSolve_LastMatchWins(t *testing.T) {
	r := NewRouter(channels(Drop, "#a"), channels(Accept))
	assert.True(t, r.Solve("freenode", "#a", "", "logger", "onMessage"))

	r = NewRouter(channels(Accept), channels(Drop, "#a"))
	assert.False(t, r.Solve("freenode", "#a", "", "logger", "onMessage"))
	assert.True(t, r.Solve("freenode", "#b", "", "logger", "onMessage"))
}

func TestSolve_NonMatchingRulesKeepDecision(t *testing.T) {
	r := NewRouter(
		New(Criteria{Plugins: []string{"logger"}}, Drop),
		New(Criteria{Plugins: []string{"history"}}, Accept),
	)

	assert.False(t, r.Solve("s", "#a", "", "logger", "onMessage"))
	assert.True(t, r.Solve("s", "#a", "", "history", "onMessage"))
}

func TestRouter_Insert(t *testing.T) {
	r := NewRouter(channels(Accept, "#a"), channels(Accept, "#c"))

	require.NoError(t, r.Insert(1, channels(Accept, "#b")))
	require.NoError(t, r.Insert(3, channels(Accept, "#d")))
	require.NoError(t, r.Insert(0, channels(Accept, "#0")))

	assert.Equal(t, []string{"#0", "#a", "#b", "#c", "#d"}, firstChannels(r))
	assert.ErrorIs(t, r.Insert(6, channels(Accept)), ErrIndex)
	assert.ErrorIs(t, r.Insert(-1, channels(Accept)), ErrIndex)
}

func TestRouter_Remove(t *testing.T) {
	r := NewRouter(channels(Accept, "#a"), channels(Accept, "#b"), channels(Accept, "#c"))

	require.NoError(t, r.Remove(1))
	assert.Equal(t, []string{"#a", "#c"}, firstChannels(r))

	assert.ErrorIs(t, r.Remove(2), ErrIndex)
	assert.Equal(t, 2, r.Len())
}

func TestRouter_Move(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		want     []string
		err      error
	}{
		{"forward", 0, 2, []string{"#b", "#c", "#a", "#d"}, nil},
		{"backward", 3, 1, []string{"#a", "#d", "#b", "#c"}, nil},
		{"same", 1, 1, []string{"#a", "#b", "#c", "#d"}, nil},
		{"past end", 0, 10, []string{"#b", "#c", "#d", "#a"}, nil},
		{"bad source", 4, 0, []string{"#a", "#b", "#c", "#d"}, ErrIndex},
		{"negative destination", 0, -1, []string{"#a", "#b", "#c", "#d"}, ErrIndex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRouter(channels(Accept, "#a"), channels(Accept, "#b"), channels(Accept, "#c"), channels(Accept, "#d"))

			err := r.Move(tt.from, tt.to)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, firstChannels(r))
		})
	}
}

func TestRouter_Edit(t *testing.T) {
	r := NewRouter(channels(Accept, "#a"))
	drop := Drop

	got, err := r.Edit(0, Edit{Action: &drop})
	require.NoError(t, err)
	assert.Equal(t, Drop, got.Action())
	assert.False(t, r.Solve("", "#a", "", "", ""))

	_, err = r.Edit(1, Edit{})
	assert.ErrorIs(t, err, ErrIndex)
}

func TestRouter_GetAndRules(t *testing.T) {
	r := NewRouter(channels(Drop, "#a"))

	got, err := r.Get(0)
	require.NoError(t, err)
	assert.Equal(t, Drop, got.Action())

	_, err = r.Get(1)
	assert.ErrorIs(t, err, ErrIndex)

	rules := r.Rules()
	rules[0] = channels(Accept)
	got, _ = r.Get(0)
	assert.Equal(t, Drop, got.Action())
}

func firstChannels(r *Router) []string {
	var out []string
	for _, rule := range r.Rules() {
		out = append(out, rule.Criteria().Channels[0])
	}
	return out
}
