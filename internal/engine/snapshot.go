package engine

import (
	"github.com/inboxhq/support-inbox/internal/model"
	"github.com/inboxhq/support-inbox/pkg/metrics"
)

// mergeSnapshot folds a freshly fetched conversation-list snapshot into
// the store without discarding newer locally held data. It reports
// whether anything actually changed; an unchanged merge leaves the
// store untouched so downstream consumers can skip recomputation.
//
// Rules, per entry:
//   - unknown id: insert as-is;
//   - known id: keep loaded messages; keep the local preview, unread
//     count, and awaitingReply when the local preview is strictly newer
//     (they arrived via push ahead of this poll and must not be rolled
//     back), otherwise take the fresh values;
//   - local entries absent from the snapshot are dropped, except the
//     selected conversation, which never vanishes mid-session.
//
// The result is sorted by preview time descending.
func mergeSnapshot(st *Store, fresh []model.ConversationSnapshot, selectedID string) bool {
	changed := false
	seen := make(map[string]bool, len(fresh))
	newOrder := make([]*model.Conversation, 0, len(fresh)+1)

	for _, f := range fresh {
		seen[f.ID] = true
		existing, ok := st.Get(f.ID)
		if !ok {
			c := f.Conversation()
			c.Selected = f.ID == selectedID
			newOrder = append(newOrder, c)
			changed = true
			continue
		}
		if applySnapshotFields(existing, f) {
			changed = true
		}
		newOrder = append(newOrder, existing)
	}

	for i := 0; i < st.Len(); i++ {
		c := st.At(i)
		if seen[c.ID] {
			continue
		}
		if c.ID == selectedID {
			newOrder = append(newOrder, c)
			continue
		}
		changed = true
	}

	sortStableByPreview(newOrder)

	if !changed {
		changed = orderDiffers(st, newOrder)
	}
	if changed {
		st.Replace(newOrder)
		metrics.SnapshotMergesTotal.WithLabelValues("changed").Inc()
	} else {
		metrics.SnapshotMergesTotal.WithLabelValues("noop").Inc()
	}
	return changed
}

// applySnapshotFields updates one existing conversation from its fresh
// snapshot entry, field by field, and reports whether anything changed.
// Loaded messages are never touched: a list snapshot does not carry
// history.
func applySnapshotFields(c *model.Conversation, f model.ConversationSnapshot) bool {
	changed := false

	if f.CustomerName != "" && c.CustomerName != f.CustomerName {
		c.CustomerName = f.CustomerName
		changed = true
	}
	if ch := model.ParseChannel(f.Channel); ch != model.ChannelUnknown && c.Channel != ch {
		c.Channel = ch
		changed = true
	}
	if c.Provisional {
		c.Provisional = false
		changed = true
	}

	// A strictly newer local preview means push events outran this
	// poll; keep the local preview, unread count, and awaitingReply.
	if c.PreviewTime.After(f.PreviewTime) {
		return changed
	}

	if c.PreviewText != f.PreviewText {
		c.PreviewText = f.PreviewText
		changed = true
	}
	if !c.PreviewTime.Equal(f.PreviewTime) {
		c.PreviewTime = f.PreviewTime
		changed = true
	}
	if c.PreviewFromCustomer != f.PreviewFromCustomer {
		c.PreviewFromCustomer = f.PreviewFromCustomer
		changed = true
	}
	if count, at := fresherUnread(c.UnreadCount, c.UnreadUpdatedAt, f.UnreadCount, f.UpdatedAt); count != c.UnreadCount {
		c.UnreadCount = count
		c.UnreadUpdatedAt = at
		changed = true
	}
	if c.AwaitingReply != f.PreviewFromCustomer {
		c.AwaitingReply = f.PreviewFromCustomer
		changed = true
	}
	return changed
}

func orderDiffers(st *Store, newOrder []*model.Conversation) bool {
	if st.Len() != len(newOrder) {
		return true
	}
	for i, c := range newOrder {
		if st.At(i) != c {
			return true
		}
	}
	return false
}

// mergePage folds one "load more" page into the store by identity:
// known entries are updated in place, unknown ones are appended at the
// end of the ordered list. Nothing is dropped; forward paging only ever
// extends the list.
func mergePage(st *Store, fresh []model.ConversationSnapshot, selectedID string) bool {
	changed := false
	for _, f := range fresh {
		if existing, ok := st.Get(f.ID); ok {
			if applySnapshotFields(existing, f) {
				changed = true
			}
			continue
		}
		c := f.Conversation()
		c.Selected = f.ID == selectedID
		st.Append(c)
		changed = true
	}
	return changed
}
