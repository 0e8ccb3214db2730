package history

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markand/irccd-sub002/internal/irc"
)

var when = time.Date(2025, 2, 20, 12, 30, 0, 0, time.UTC)

func newTestHistory(t *testing.T) (*History, *irc.Server) {
	t.Helper()

	p, err := New(map[string]string{"file": filepath.Join(t.TempDir(), "history.db")}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	h := p.(*History)
	h.now = func() time.Time { return when }
	require.NoError(t, h.OnLoad())
	t.Cleanup(func() { h.OnUnload() })

	s := irc.NewServer(irc.Options{ID: "freenode", Nickname: "irccd"}, nil, nil, nil)
	return h, s
}

func TestStore_SeenAndSaid(t *testing.T) {
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer st.Close()

	_, err = st.Get("freenode", "#irccd", "jean")
	assert.ErrorIs(t, err, ErrUnknown)

	require.NoError(t, st.Seen("freenode", "#irccd", "Jean", when))
	e, err := st.Get("FREENODE", "#IRCCD", "jean")
	require.NoError(t, err)
	assert.Equal(t, when.Unix(), e.Seen.Unix())
	assert.True(t, e.Said.IsZero())

	later := when.Add(time.Hour)
	require.NoError(t, st.Said("freenode", "#irccd", "jean", "bye", later))
	e, err = st.Get("freenode", "#irccd", "jean")
	require.NoError(t, err)
	assert.Equal(t, later.Unix(), e.Seen.Unix())
	assert.Equal(t, later.Unix(), e.Said.Unix())
	assert.Equal(t, "bye", e.Message)

	// Seen does not erase what was said.
	require.NoError(t, st.Seen("freenode", "#irccd", "jean", later.Add(time.Hour)))
	e, err = st.Get("freenode", "#irccd", "jean")
	require.NoError(t, err)
	assert.Equal(t, "bye", e.Message)
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	st, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Seen("s", "#c", "n", when))
	require.NoError(t, st.Close())

	st, err = Open(path)
	require.NoError(t, err)
	defer st.Close()

	_, err = st.Get("s", "#c", "n")
	assert.NoError(t, err)
}

func TestHistory_Answer(t *testing.T) {
	h, s := newTestHistory(t)
	date := time.Unix(when.Unix(), 0).Format(dateLayout)

	require.NoError(t, h.OnJoin(irc.JoinEvent{Server: s, Origin: "john!j@h", Channel: "#irccd"}))
	require.NoError(t, h.OnMessage(irc.MessageEvent{Server: s, Origin: "jean!j@h", Channel: "#irccd", Message: "hello world"}))
	require.NoError(t, h.OnMessage(irc.MessageEvent{Server: s, Origin: "jean!j@h", Channel: "irccd", Message: "private"}))

	tests := []struct {
		payload string
		want    string
	}{
		{"seen jean", "me: the last time I saw jean was on " + date},
		{"said jean", "me: the last message jean said was: hello world (on " + date + ")"},
		{"said john", "me: john never said anything"},
		{"seen nobody", "me: I have never seen nobody"},
		{"seen IRCCD", "me: I'm right here"},
		{"", "me: usage: !history seen|said <nickname>"},
		{"forget jean", "me: usage: !history seen|said <nickname>"},
	}

	for _, tt := range tests {
		got, err := h.answer(s, "#irccd", "me", tt.payload)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "payload %q", tt.payload)
	}
}

func TestHistory_NamesMarksSeen(t *testing.T) {
	h, s := newTestHistory(t)

	require.NoError(t, h.OnNames(irc.NamesEvent{Server: s, Channel: "#irccd", Names: []string{"alice", "bob"}}))

	_, err := h.store.Get("freenode", "#irccd", "bob")
	assert.NoError(t, err)
}

func TestHistory_CommandRepliesOnServer(t *testing.T) {
	h, s := newTestHistory(t)

	// The server is not connected, so the reply is refused there.
	err := h.OnCommand(irc.MessageEvent{Server: s, Origin: "jean!j@h", Channel: "#irccd", Message: "seen bob"})
	assert.ErrorIs(t, err, irc.ErrNotConnected)
}
