package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxhq/support-inbox/internal/model"
)

func snapAt(id string, previewText string, previewTime time.Time, fromCustomer bool, unread int) model.ConversationSnapshot {
	return model.ConversationSnapshot{
		ID:                  id,
		TenantID:            "t1",
		CustomerID:          "cust-" + id,
		CustomerName:        "Customer " + id,
		Channel:             "whatsapp",
		PreviewText:         previewText,
		PreviewTime:         previewTime,
		PreviewFromCustomer: fromCustomer,
		UnreadCount:         unread,
		UpdatedAt:           previewTime,
	}
}

func TestMergeSnapshotInsertsUnknown(t *testing.T) {
	st := NewStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	changed := mergeSnapshot(st, []model.ConversationSnapshot{
		snapAt("c1", "hello", base.Add(time.Minute), true, 2),
		snapAt("c2", "bye", base, false, 0),
	}, "")

	require.True(t, changed)
	require.Equal(t, 2, st.Len())
	assert.Equal(t, "c1", st.At(0).ID) // newest preview first
	assert.Equal(t, "c2", st.At(1).ID)
	assert.True(t, st.At(0).AwaitingReply)
	assert.False(t, st.At(1).AwaitingReply)
}

func TestMergeSnapshotKeepsNewerLocalPreview(t *testing.T) {
	st := NewStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mergeSnapshot(st, []model.ConversationSnapshot{snapAt("c1", "old", base, false, 0)}, "")

	// A push event outran the poll: local preview is newer.
	c, _ := st.Get("c1")
	c.PreviewText = "newer via push"
	c.PreviewTime = base.Add(time.Minute)
	c.PreviewFromCustomer = true
	c.UnreadCount = 3
	c.UnreadUpdatedAt = base.Add(time.Minute)
	c.AwaitingReply = true

	changed := mergeSnapshot(st, []model.ConversationSnapshot{snapAt("c1", "old", base, false, 0)}, "")

	assert.False(t, changed)
	c, _ = st.Get("c1")
	assert.Equal(t, "newer via push", c.PreviewText)
	assert.Equal(t, 3, c.UnreadCount)
	assert.True(t, c.AwaitingReply)
}

func TestMergeSnapshotTakesFresherValues(t *testing.T) {
	st := NewStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mergeSnapshot(st, []model.ConversationSnapshot{snapAt("c1", "old", base, true, 1)}, "")

	changed := mergeSnapshot(st, []model.ConversationSnapshot{snapAt("c1", "fresh", base.Add(time.Minute), false, 0)}, "")

	require.True(t, changed)
	c, _ := st.Get("c1")
	assert.Equal(t, "fresh", c.PreviewText)
	assert.False(t, c.AwaitingReply)
	assert.Equal(t, 0, c.UnreadCount)
}

func TestMergeSnapshotKeepsLoadedMessages(t *testing.T) {
	st := NewStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mergeSnapshot(st, []model.ConversationSnapshot{snapAt("c1", "old", base, false, 0)}, "")

	c, _ := st.Get("c1")
	c.Messages = []model.Message{msgAt("m_1", model.SenderCustomer, "hi", base)}

	mergeSnapshot(st, []model.ConversationSnapshot{snapAt("c1", "fresh", base.Add(time.Minute), false, 0)}, "")

	c, _ = st.Get("c1")
	require.Len(t, c.Messages, 1)
	assert.Equal(t, "m_1", c.Messages[0].ID)
}

func TestMergeSnapshotDropsAbsentExceptSelected(t *testing.T) {
	st := NewStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mergeSnapshot(st, []model.ConversationSnapshot{
		snapAt("c1", "a", base.Add(2*time.Minute), false, 0),
		snapAt("c2", "b", base.Add(time.Minute), false, 0),
		snapAt("c3", "c", base, false, 0),
	}, "")

	changed := mergeSnapshot(st, []model.ConversationSnapshot{
		snapAt("c1", "a", base.Add(2*time.Minute), false, 0),
	}, "c2")

	require.True(t, changed)
	assert.Equal(t, 2, st.Len())
	_, ok := st.Get("c2")
	assert.True(t, ok, "the selected conversation must never vanish mid-session")
	_, ok = st.Get("c3")
	assert.False(t, ok)
}

func TestMergeSnapshotNoopWhenNothingChanged(t *testing.T) {
	st := NewStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fresh := []model.ConversationSnapshot{
		snapAt("c1", "a", base.Add(time.Minute), false, 0),
		snapAt("c2", "b", base, false, 0),
	}
	require.True(t, mergeSnapshot(st, fresh, ""))

	before := []*model.Conversation{st.At(0), st.At(1)}
	assert.False(t, mergeSnapshot(st, fresh, ""))
	// Same entries, untouched, in the same order.
	assert.Same(t, before[0], st.At(0))
	assert.Same(t, before[1], st.At(1))
}

func TestPendingSendsPurgedWithConversation(t *testing.T) {
	st := NewStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mergeSnapshot(st, []model.ConversationSnapshot{
		snapAt("c1", "a", base.Add(time.Minute), false, 0),
		snapAt("c2", "b", base, false, 0),
	}, "")

	pending := newSendTable()
	pending.add(&pendingSend{TempID: "tmp_kept", ConversationID: "c1", Content: "x"})
	pending.add(&pendingSend{TempID: "tmp_orphan", ConversationID: "c2", Content: "y"})

	// c2 disappears from the snapshot; its failed send must not linger.
	require.True(t, mergeSnapshot(st, []model.ConversationSnapshot{
		snapAt("c1", "a", base.Add(time.Minute), false, 0),
	}, ""))
	pending.purgeOrphans(st)

	_, ok := pending.get("tmp_orphan")
	assert.False(t, ok)
	_, ok = pending.get("tmp_kept")
	assert.True(t, ok)
}

func TestMergePageAppendsWithoutDropping(t *testing.T) {
	st := NewStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mergeSnapshot(st, []model.ConversationSnapshot{snapAt("c1", "a", base.Add(time.Minute), false, 0)}, "")

	changed := mergePage(st, []model.ConversationSnapshot{
		snapAt("c1", "a", base.Add(time.Minute), false, 0),
		snapAt("c2", "b", base, false, 0),
	}, "")

	require.True(t, changed)
	assert.Equal(t, 2, st.Len())
	assert.Equal(t, "c2", st.At(1).ID)
}
