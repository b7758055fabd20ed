package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxhq/support-inbox/internal/model"
	"github.com/inboxhq/support-inbox/pkg/logger"
)

const testTenant = "t1"

func pushMessage(convID, msgID string, sender model.SenderRole, content string, ts time.Time) model.PushEvent {
	return model.PushEvent{
		Type:           model.PushNewMessage,
		TenantID:       testTenant,
		ConversationID: convID,
		MessageID:      msgID,
		Sender:         sender,
		Content:        content,
		Timestamp:      ts,
	}
}

func seedConversation(st *Store, id string, previewTime time.Time, msgs ...model.Message) *model.Conversation {
	c := &model.Conversation{
		ID:          id,
		TenantID:    testTenant,
		Messages:    msgs,
		PreviewTime: previewTime,
	}
	if len(msgs) > 0 {
		last := msgs[len(msgs)-1]
		c.PreviewText = last.Content
		c.PreviewTime = last.Timestamp
		c.PreviewFromCustomer = last.Sender.FromCustomer()
	}
	st.Append(c)
	return c
}

func applyTestEvent(st *Store, ev model.PushEvent, selectedID string, pending *sendTable) applyResult {
	return applyEvent(st, ev, selectedID, testTenant, false, DefaultDedupeWindow, pending, logger.NewNop())
}

func TestApplyNewMessageAppendsAndSurfaces(t *testing.T) {
	st := NewStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seedConversation(st, "cA", base.Add(-time.Hour),
		msgAt("m_1", model.SenderStaff, "how can I help?", base.Add(-time.Hour)))
	seedConversation(st, "cB", base.Add(-time.Minute),
		msgAt("m_2", model.SenderCustomer, "ping", base.Add(-time.Minute)))

	res := applyTestEvent(st, pushMessage("cA", "m_3", model.SenderCustomer, "hello", base), "", newSendTable())

	require.True(t, res.Changed)
	c, _ := st.Get("cA")
	require.Len(t, c.Messages, 2)
	assert.Equal(t, "hello", c.PreviewText)
	assert.True(t, c.PreviewFromCustomer)
	assert.True(t, c.AwaitingReply)
	assert.Equal(t, 1, c.UnreadCount)
	assert.Equal(t, 0, st.Position("cA"), "a customer message moves the conversation to the head")
}

func TestApplyNewMessageIdempotent(t *testing.T) {
	st := NewStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seedConversation(st, "cA", base.Add(-time.Hour),
		msgAt("m_1", model.SenderStaff, "how can I help?", base.Add(-time.Hour)))

	ev := pushMessage("cA", "m_3", model.SenderCustomer, "hello", base)
	applyTestEvent(st, ev, "", newSendTable())
	applyTestEvent(st, ev, "", newSendTable())

	c, _ := st.Get("cA")
	assert.Len(t, c.Messages, 2, "redelivering the same event must not duplicate the message")
	assert.Equal(t, 1, c.UnreadCount, "redelivery must not double-count unread")
}

func TestApplyNewMessageStaffStaysInPlace(t *testing.T) {
	st := NewStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seedConversation(st, "cA", base.Add(-time.Hour),
		msgAt("m_1", model.SenderCustomer, "hi", base.Add(-time.Hour)))
	seedConversation(st, "cB", base.Add(-time.Minute),
		msgAt("m_2", model.SenderCustomer, "ping", base.Add(-time.Minute)))

	applyTestEvent(st, pushMessage("cB", "m_3", model.SenderStaff, "on it", base), "", newSendTable())

	assert.Equal(t, 1, st.Position("cB"), "an operator reply must not reorder the list under them")
	c, _ := st.Get("cB")
	assert.False(t, c.AwaitingReply)
	assert.Equal(t, 0, c.UnreadCount, "staff messages never bump unread")
}

func TestApplyNewMessageSelectedSkipsUnread(t *testing.T) {
	st := NewStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seedConversation(st, "cA", base.Add(-time.Hour),
		msgAt("m_1", model.SenderStaff, "hi", base.Add(-time.Hour)))

	applyTestEvent(st, pushMessage("cA", "m_2", model.SenderCustomer, "hello", base), "cA", newSendTable())

	c, _ := st.Get("cA")
	assert.Equal(t, 0, c.UnreadCount, "the open conversation is being read; no unread bump")
}

func TestApplyNewMessageUnloadedPreviewOnly(t *testing.T) {
	st := NewStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := &model.Conversation{ID: "cA", TenantID: testTenant, PreviewText: "old", PreviewTime: base.Add(-time.Hour)}
	st.Append(c)

	applyTestEvent(st, pushMessage("cA", "m_1", model.SenderCustomer, "hello", base), "", newSendTable())

	assert.Empty(t, c.Messages, "no history loaded and not selected, so only the preview moves")
	assert.Equal(t, "hello", c.PreviewText)
	assert.Equal(t, 1, c.UnreadCount)
}

func TestApplyNewMessageStaleTimestampKeepsPreview(t *testing.T) {
	st := NewStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := seedConversation(st, "cA", base,
		msgAt("m_1", model.SenderCustomer, "latest", base))
	c.AwaitingReply = true

	applyTestEvent(st, pushMessage("cA", "m_0", model.SenderStaff, "late delivery", base.Add(-time.Minute)), "", newSendTable())

	assert.Equal(t, "latest", c.PreviewText, "an out-of-order delivery must not roll the preview back")
	assert.True(t, c.PreviewFromCustomer)
	assert.True(t, c.AwaitingReply, "awaitingReply follows the kept customer preview, not the late staff event")
}

func TestApplyNewMessageUnknownCustomerSynthesizes(t *testing.T) {
	st := NewStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	ev := pushMessage("cNew", "m_1", model.SenderCustomer, "first contact", base)
	ev.CustomerName = "Ada"
	ev.Channel = "telegram"
	res := applyTestEvent(st, ev, "", newSendTable())

	require.True(t, res.Changed)
	assert.Equal(t, "cNew", res.NeedsDetail, "a synthesized entry wants a background detail fetch")
	c, ok := st.Get("cNew")
	require.True(t, ok)
	assert.True(t, c.Provisional)
	assert.Equal(t, model.ChannelTelegram, c.Channel)
	assert.Equal(t, "first contact", c.PreviewText)
	assert.Equal(t, 1, c.UnreadCount)
	assert.True(t, c.AwaitingReply)
	assert.Equal(t, 0, st.Position("cNew"))
}

func TestApplyNewMessageUnknownStaffDropped(t *testing.T) {
	st := NewStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	res := applyTestEvent(st, pushMessage("cGhost", "m_1", model.SenderStaff, "echo from nowhere", base), "", newSendTable())

	assert.False(t, res.Changed)
	assert.Equal(t, 0, st.Len(), "a reply must never spawn a conversation")
}

func TestApplyNewMessageUnknownUnscopedTenantDropped(t *testing.T) {
	st := NewStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	ev := pushMessage("cNew", "m_1", model.SenderCustomer, "hi", base)
	ev.TenantID = ""
	res := applyTestEvent(st, ev, "", newSendTable())

	assert.False(t, res.Changed)
	assert.Equal(t, 0, st.Len(), "a conversation is never created under an unconfirmed tenant")
}

func TestApplyEventCrossTenantDropped(t *testing.T) {
	st := NewStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seedConversation(st, "cA", base,
		msgAt("m_1", model.SenderCustomer, "hi", base))

	ev := pushMessage("cA", "m_2", model.SenderCustomer, "leak", base.Add(time.Minute))
	ev.TenantID = "t-other"
	res := applyTestEvent(st, ev, "", newSendTable())

	assert.False(t, res.Changed)
	c, _ := st.Get("cA")
	assert.Len(t, c.Messages, 1)
	assert.Equal(t, "hi", c.PreviewText)
}

func TestApplyEventUnscopedPayloadAcceptedForKnown(t *testing.T) {
	st := NewStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seedConversation(st, "cA", base,
		msgAt("m_1", model.SenderStaff, "hi", base))

	ev := pushMessage("cA", "m_2", model.SenderCustomer, "legacy payload", base.Add(time.Minute))
	ev.TenantID = ""
	res := applyTestEvent(st, ev, "", newSendTable())

	require.True(t, res.Changed)
	c, _ := st.Get("cA")
	assert.Len(t, c.Messages, 2)
}

func TestApplyNewConversation(t *testing.T) {
	st := NewStore()

	ev := model.PushEvent{
		Type:           model.PushNewConversation,
		TenantID:       testTenant,
		ConversationID: "cNew",
		CustomerID:     "cust-9",
		CustomerName:   "Grace",
		Channel:        "whatsapp",
	}
	res := applyTestEvent(st, ev, "", newSendTable())

	require.True(t, res.Changed)
	assert.Equal(t, "cNew", res.NeedsDetail)
	c, ok := st.Get("cNew")
	require.True(t, ok)
	assert.True(t, c.Provisional)
	assert.Equal(t, "Grace", c.CustomerName)

	// Redelivery is a no-op.
	res = applyTestEvent(st, ev, "", newSendTable())
	assert.False(t, res.Changed)
	assert.Equal(t, 1, st.Len())
}

func TestResolveEchoReplacesTempMessage(t *testing.T) {
	st := NewStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	conv := seedConversation(st, "cA", base,
		msgAt("m_1", model.SenderCustomer, "hi", base))

	pending := newSendTable()
	temp := newTempMessage("cA", "on my way", nil, base.Add(time.Second))
	conv.Messages = append(conv.Messages, temp)
	pending.add(&pendingSend{
		TempID:         temp.ID,
		ConversationID: "cA",
		Content:        "on my way",
		SubmittedAt:    base.Add(time.Second),
	})

	applyTestEvent(st, pushMessage("cA", "m_999", model.SenderStaff, "on my way", base.Add(2*time.Second)), "cA", pending)

	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "m_999", conv.Messages[1].ID, "the echo is the single authoritative copy")
	_, stillPending := pending.get(temp.ID)
	assert.False(t, stillPending)
}

func TestApplyDetailFillsProvisional(t *testing.T) {
	st := NewStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	ev := pushMessage("cNew", "m_5", model.SenderCustomer, "where is my order?", base)
	applyTestEvent(st, ev, "", newSendTable())

	d := model.ConversationDetail{
		ConversationSnapshot: model.ConversationSnapshot{
			ID:                  "cNew",
			TenantID:            testTenant,
			CustomerName:        "Ada",
			Channel:             "facebook",
			PreviewText:         "where is my order?",
			PreviewTime:         base,
			PreviewFromCustomer: true,
			UnreadCount:         1,
			UpdatedAt:           base,
		},
		Messages: []model.Message{
			msgAt("m_4", model.SenderCustomer, "hello?", base.Add(-time.Minute)),
			msgAt("m_5", model.SenderCustomer, "where is my order?", base),
		},
	}
	require.True(t, applyDetail(st, d, testTenant, false, DefaultDedupeWindow))

	c, _ := st.Get("cNew")
	assert.False(t, c.Provisional)
	assert.Equal(t, "Ada", c.CustomerName)
	require.Len(t, c.Messages, 2, "the seed message folds into the fetched history without duplication")
	assert.Equal(t, "m_4", c.Messages[0].ID)
	assert.Equal(t, "m_5", c.Messages[1].ID)
	assert.True(t, c.AwaitingReply)
}

func TestApplyDetailKeepsSeedUnknownToBackend(t *testing.T) {
	st := NewStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	applyTestEvent(st, pushMessage("cNew", "m_9", model.SenderCustomer, "fresh one", base), "", newSendTable())

	// The detail fetch raced the push and does not include m_9 yet.
	d := model.ConversationDetail{
		ConversationSnapshot: model.ConversationSnapshot{
			ID:          "cNew",
			TenantID:    testTenant,
			PreviewText: "earlier",
			PreviewTime: base.Add(-time.Hour),
			UpdatedAt:   base.Add(-time.Hour),
		},
		Messages: []model.Message{
			msgAt("m_8", model.SenderCustomer, "earlier", base.Add(-time.Hour)),
		},
	}
	require.True(t, applyDetail(st, d, testTenant, false, DefaultDedupeWindow))

	c, _ := st.Get("cNew")
	require.Len(t, c.Messages, 2)
	assert.Equal(t, "m_8", c.Messages[0].ID)
	assert.Equal(t, "m_9", c.Messages[1].ID, "a seed the backend has not indexed yet survives the merge in order")
}
