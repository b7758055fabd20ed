package engine

import (
	"time"

	"github.com/inboxhq/support-inbox/internal/model"
)

// recomputeDerived refreshes awaitingReply from the latest known
// message. A customer-sent latest message forces awaitingReply true
// regardless of any server-side read flag: the server's open/read
// signal is about visibility, not about whether a reply went out.
func recomputeDerived(c *model.Conversation, latest model.Message) {
	c.AwaitingReply = latest.Sender.FromCustomer()
}

// fresherUnread picks between the locally tracked unread counter and a
// server-supplied one by comparing their associated timestamps.
func fresherUnread(localCount int, localAt time.Time, serverCount int, serverAt time.Time) (int, time.Time) {
	if localAt.After(serverAt) {
		return localCount, localAt
	}
	return serverCount, serverAt
}
