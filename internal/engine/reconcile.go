package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/inboxhq/support-inbox/internal/model"
	"github.com/inboxhq/support-inbox/pkg/logger"
	"github.com/inboxhq/support-inbox/pkg/metrics"
)

// applyResult describes what applying one push event did.
type applyResult struct {
	// Changed is true when the store was mutated.
	Changed bool
	// Appended is true when the message landed in the selected
	// conversation's live view.
	Appended bool
	// NeedsDetail names a provisional conversation the caller should
	// fill in with a background detail fetch.
	NeedsDetail string
}

// applyEvent applies one incoming push event to the store. Everything
// it needs arrives as an explicit parameter; nothing is read from
// shared mutable state, so a handler can never close over a stale
// tenant or selection.
func applyEvent(
	st *Store,
	ev model.PushEvent,
	selectedID string,
	activeTenant string,
	adminOverride bool,
	window time.Duration,
	pending *sendTable,
	log *logger.Logger,
) applyResult {
	if !acceptTenant(ev.TenantID, activeTenant, adminOverride, "push") {
		log.Debug("dropping cross-tenant push event",
			zap.String("payload_tenant", ev.TenantID),
			zap.String("event_type", string(ev.Type)),
		)
		metrics.PushEventsTotal.WithLabelValues(string(ev.Type), "cross_tenant").Inc()
		return applyResult{}
	}

	switch ev.Type {
	case model.PushNewConversation:
		return applyNewConversation(st, ev, activeTenant, adminOverride, log)
	case model.PushNewMessage:
		return applyNewMessage(st, ev, selectedID, activeTenant, adminOverride, window, pending, log)
	default:
		metrics.PushEventsTotal.WithLabelValues(string(ev.Type), "ignored").Inc()
		return applyResult{}
	}
}

func applyNewConversation(
	st *Store,
	ev model.PushEvent,
	activeTenant string,
	adminOverride bool,
	log *logger.Logger,
) applyResult {
	// A conversation must never be created under an unconfirmed
	// tenant; the legacy unscoped soft default does not apply here.
	if !acceptTenantStrict(ev.TenantID, activeTenant, adminOverride, "push_new_conversation") {
		log.Debug("dropping new conversation with unconfirmed tenant",
			zap.String("conversation_id", ev.ConversationID),
		)
		metrics.PushEventsTotal.WithLabelValues(string(ev.Type), "cross_tenant").Inc()
		return applyResult{}
	}

	if _, ok := st.Get(ev.ConversationID); ok {
		metrics.PushEventsTotal.WithLabelValues(string(ev.Type), "known").Inc()
		return applyResult{}
	}

	st.InsertHead(synthesizeConversation(ev))
	metrics.PushEventsTotal.WithLabelValues(string(ev.Type), "applied").Inc()
	return applyResult{Changed: true, NeedsDetail: ev.ConversationID}
}

func applyNewMessage(
	st *Store,
	ev model.PushEvent,
	selectedID string,
	activeTenant string,
	adminOverride bool,
	window time.Duration,
	pending *sendTable,
	log *logger.Logger,
) applyResult {
	conv, known := st.Get(ev.ConversationID)

	if !known {
		if !ev.Sender.FromCustomer() {
			// A reply cannot spawn a conversation. Stale or
			// cross-tenant echoes would otherwise materialize phantom
			// threads.
			log.Warn("dropping staff message for unknown conversation, possible backend inconsistency",
				zap.String("conversation_id", ev.ConversationID),
				zap.String("sender", string(ev.Sender)),
			)
			metrics.PushEventsTotal.WithLabelValues(string(ev.Type), "unknown_staff").Inc()
			return applyResult{}
		}
		if !acceptTenantStrict(ev.TenantID, activeTenant, adminOverride, "push_new_message") {
			log.Debug("dropping message for unknown conversation with unconfirmed tenant",
				zap.String("conversation_id", ev.ConversationID),
			)
			metrics.PushEventsTotal.WithLabelValues(string(ev.Type), "cross_tenant").Inc()
			return applyResult{}
		}
		st.InsertHead(synthesizeConversation(ev))
		metrics.PushEventsTotal.WithLabelValues(string(ev.Type), "synthesized").Inc()
		return applyResult{Changed: true, NeedsDetail: ev.ConversationID}
	}

	msg := ev.Message()
	selected := conv.ID == selectedID

	// An echo of an optimistic send is the authoritative copy of the
	// temp message; remove the temp before anything else so the
	// deduplicator never sees both.
	if resolveEcho(conv, msg, pending) {
		metrics.OptimisticSendsTotal.WithLabelValues("confirmed").Inc()
	}

	appended := false
	dup := isDuplicate(msg, conv.Messages, window)
	if dup {
		metrics.PushEventsTotal.WithLabelValues(string(ev.Type), "duplicate").Inc()
	} else if len(conv.Messages) > 0 || selected {
		conv.Messages = append(conv.Messages, msg)
		appended = true
		metrics.PushEventsTotal.WithLabelValues(string(ev.Type), "applied").Inc()
	} else {
		metrics.PushEventsTotal.WithLabelValues(string(ev.Type), "preview_only").Inc()
	}

	// The preview always follows the event, duplicate or not: the
	// authoritative copy may carry corrected fields. awaitingReply is
	// recomputed only when the event actually advanced the preview; a
	// late delivery must not override state derived from a newer
	// message.
	if !ev.Timestamp.Before(conv.PreviewTime) {
		conv.PreviewText = ev.Content
		conv.PreviewTime = ev.Timestamp
		conv.PreviewFromCustomer = ev.Sender.FromCustomer()
		recomputeDerived(conv, msg)
	}

	// A redelivered duplicate may still correct preview fields above, but
	// it must not double-count unread.
	if ev.Sender.FromCustomer() && !selected && !dup {
		conv.UnreadCount++
		conv.UnreadUpdatedAt = ev.Timestamp
	}

	// Customer messages surface the conversation; an operator's own
	// reply must not make the list jump under them.
	if ev.Sender.FromCustomer() {
		st.MoveToHead(conv.ID)
	}

	return applyResult{Changed: true, Appended: appended && selected}
}

// synthesizeConversation builds a minimal provisional entry from a push
// event for a conversation the store has never seen. The background
// detail fetch overwrites it.
func synthesizeConversation(ev model.PushEvent) *model.Conversation {
	c := &model.Conversation{
		ID:           ev.ConversationID,
		TenantID:     ev.TenantID,
		CustomerID:   ev.CustomerID,
		CustomerName: ev.CustomerName,
		Channel:      model.ParseChannel(ev.Channel),
		Provisional:  true,
	}
	if ev.Type == model.PushNewMessage || ev.Content != "" {
		msg := ev.Message()
		c.Messages = []model.Message{msg}
		c.PreviewText = msg.Content
		c.PreviewTime = msg.Timestamp
		c.PreviewFromCustomer = msg.Sender.FromCustomer()
		if msg.Sender.FromCustomer() {
			c.UnreadCount = 1
			c.UnreadUpdatedAt = msg.Timestamp
		}
		recomputeDerived(c, msg)
	}
	return c
}

// applyDetail merges the background detail fetch for a provisionally
// synthesized conversation. The fetched history takes priority; any
// locally synthesized messages not already present are folded into it.
func applyDetail(st *Store, d model.ConversationDetail, activeTenant string, adminOverride bool, window time.Duration) bool {
	if !acceptTenant(d.TenantID, activeTenant, adminOverride, "detail") {
		return false
	}
	c, ok := st.Get(d.ID)
	if !ok {
		return false
	}

	seed := c.Messages
	msgs := make([]model.Message, len(d.Messages))
	copy(msgs, d.Messages)
	for _, m := range seed {
		if !isDuplicate(m, msgs, window) && !containsID(msgs, m.ID) {
			msgs = insertByTimestamp(msgs, m)
		}
	}
	c.Messages = msgs

	applySnapshotFields(c, d.ConversationSnapshot)
	c.Provisional = false
	if latest, ok := c.LatestMessage(); ok {
		recomputeDerived(c, latest)
	}
	st.SortByPreviewTime()
	return true
}

func containsID(msgs []model.Message, id string) bool {
	if id == "" {
		return false
	}
	for _, m := range msgs {
		if m.ID == id {
			return true
		}
	}
	return false
}

func insertByTimestamp(msgs []model.Message, m model.Message) []model.Message {
	i := len(msgs)
	for i > 0 && msgs[i-1].Timestamp.After(m.Timestamp) {
		i--
	}
	msgs = append(msgs, model.Message{})
	copy(msgs[i+1:], msgs[i:])
	msgs[i] = m
	return msgs
}
