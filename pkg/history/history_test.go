package history_test

import (
	"testing"

	"github.com/aretw0/framesync/pkg/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(h *history.History) *[]history.HashChangeEvent {
	var events []history.HashChangeEvent
	h.Subscribe(func(ev history.HashChangeEvent) { events = append(events, ev) })
	return &events
}

func TestHistory_PushIsSilent(t *testing.T) {
	h := history.New("")
	events := record(h)

	assert.Equal(t, 1, h.Push("#!/foo"))
	assert.Equal(t, "#!/foo", h.Current())
	assert.Equal(t, []string{"", "#!/foo"}, h.Entries())
	assert.Empty(t, *events)
}

func TestHistory_BackForward(t *testing.T) {
	h := history.New("")
	events := record(h)
	h.Push("#!/foo")
	h.Push("#!/bar")

	require.True(t, h.Back())
	assert.Equal(t, "#!/foo", h.Current())
	require.True(t, h.Back())
	assert.Equal(t, "", h.Current())
	assert.False(t, h.Back(), "cannot go before the first entry")

	require.True(t, h.Forward())
	assert.Equal(t, "#!/foo", h.Current())

	require.Len(t, *events, 3)
	assert.Equal(t, history.HashChangeEvent{
		OldHash: "#!/bar", NewHash: "#!/foo", OldIndex: 2, NewIndex: 1, Cause: history.CauseTraverse,
	}, (*events)[0])
	assert.Equal(t, "#!/foo", (*events)[2].NewHash)
}

func TestHistory_PushTruncatesForwardEntries(t *testing.T) {
	h := history.New("")
	h.Push("#!/foo")
	h.Push("#!/bar")
	h.Back()
	h.Back()

	h.Push("#!/baz")
	assert.Equal(t, []string{"", "#!/baz"}, h.Entries())
	assert.False(t, h.Forward())
}

func TestHistory_Assign(t *testing.T) {
	h := history.New("#!/foo")
	events := record(h)

	assert.False(t, h.Assign("#!/foo"), "assigning the same hash is a no-op")
	assert.Equal(t, 1, h.Len())

	assert.True(t, h.Assign("#!/bar"))
	assert.Equal(t, 2, h.Len())
	require.Len(t, *events, 1)
	assert.Equal(t, history.CauseAssign, (*events)[0].Cause)
	assert.Equal(t, "#!/foo", (*events)[0].OldHash)
}

func TestHistory_TraverseBetweenEqualHashesIsSilent(t *testing.T) {
	h := history.New("#!/foo")
	events := record(h)
	h.Push("#!/foo")

	assert.True(t, h.Back())
	assert.Empty(t, *events)
}

func TestHistory_Unsubscribe(t *testing.T) {
	h := history.New("")
	calls := 0
	unsub := h.Subscribe(func(history.HashChangeEvent) { calls++ })
	h.Assign("#!/a")
	unsub()
	h.Assign("#!/b")
	assert.Equal(t, 1, calls)
}

func TestRestore(t *testing.T) {
	h, err := history.Restore([]string{"", "#!/foo", "#!/bar"}, 1)
	require.NoError(t, err)
	assert.Equal(t, "#!/foo", h.Current())
	assert.True(t, h.Forward())
	assert.Equal(t, "#!/bar", h.Current())

	_, err = history.Restore(nil, 0)
	assert.Error(t, err)
	_, err = history.Restore([]string{""}, 3)
	assert.Error(t, err)
}
