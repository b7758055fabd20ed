package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/inboxhq/support-inbox/internal/model"
)

// pendingSend tracks one optimistic outgoing message from submission
// until its echo arrives or it fails. The attachment reference is the
// already-uploaded one; a retry reuses it instead of re-uploading.
type pendingSend struct {
	TempID         string
	ConversationID string
	Content        string
	Attachment     *model.Attachment
	SubmittedAt    time.Time
}

// sendTable indexes in-flight optimistic sends.
type sendTable struct {
	byTemp map[string]*pendingSend
}

func newSendTable() *sendTable {
	return &sendTable{byTemp: make(map[string]*pendingSend)}
}

func (t *sendTable) add(p *pendingSend) {
	t.byTemp[p.TempID] = p
}

func (t *sendTable) get(tempID string) (*pendingSend, bool) {
	p, ok := t.byTemp[tempID]
	return p, ok
}

func (t *sendTable) remove(tempID string) {
	delete(t.byTemp, tempID)
}

// purgeOrphans drops pending sends whose conversation is no longer in
// the store. A snapshot merge can remove a conversation while a failed
// send for it still sits in the table; without the purge that entry
// would live forever.
func (t *sendTable) purgeOrphans(st *Store) {
	for id, p := range t.byTemp {
		if _, ok := st.Get(p.ConversationID); !ok {
			delete(t.byTemp, id)
		}
	}
}

// matchEcho finds the pending send an authoritative push copy settles:
// same conversation, same content. Content is enough because a temp id
// never reaches the backend.
func (t *sendTable) matchEcho(conversationID, content string) *pendingSend {
	for _, p := range t.byTemp {
		if p.ConversationID == conversationID && p.Content == content {
			return p
		}
	}
	return nil
}

// newTempMessage builds the composing placeholder that appears in the
// store before the network round-trip completes.
func newTempMessage(conversationID, content string, att *model.Attachment, at time.Time) model.Message {
	return model.Message{
		ID:             model.TempIDPrefix + uuid.NewString(),
		ConversationID: conversationID,
		Sender:         model.SenderStaff,
		Content:        content,
		Timestamp:      at,
		Status:         model.StatusComposing,
		Attachment:     att,
	}
}

// resolveEcho removes the temp placeholder once the authoritative push
// copy of the same message arrives. The echo, not the send endpoint's
// direct response, is the single source of truth for the final id,
// timestamp, and delivery status; resolving here means the direct
// response and the echo can never both materialize the message.
func resolveEcho(conv *model.Conversation, msg model.Message, pending *sendTable) bool {
	if pending == nil || msg.Sender.FromCustomer() {
		return false
	}
	p := pending.matchEcho(conv.ID, msg.Content)
	if p == nil {
		return false
	}
	removeMessage(conv, p.TempID)
	pending.remove(p.TempID)
	return true
}

func removeMessage(conv *model.Conversation, id string) bool {
	for i, m := range conv.Messages {
		if m.ID == id {
			conv.Messages = append(conv.Messages[:i], conv.Messages[i+1:]...)
			return true
		}
	}
	return false
}

// setMessageStatus updates a message's delivery status in place.
func setMessageStatus(conv *model.Conversation, id string, status model.DeliveryStatus) bool {
	for i := range conv.Messages {
		if conv.Messages[i].ID == id {
			conv.Messages[i].Status = status
			return true
		}
	}
	return false
}
