package engine

import (
	"github.com/inboxhq/support-inbox/internal/model"
)

// Store is the single in-memory conversation collection. It is owned
// exclusively by the engine goroutine; readers only ever see deep
// copies produced by Snapshot.
type Store struct {
	order []*model.Conversation
	index map[string]*model.Conversation
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		index: make(map[string]*model.Conversation),
	}
}

// Get returns the conversation with the given id.
func (s *Store) Get(id string) (*model.Conversation, bool) {
	c, ok := s.index[id]
	return c, ok
}

// Len returns the number of conversations held.
func (s *Store) Len() int {
	return len(s.order)
}

// At returns the conversation at a list position.
func (s *Store) At(i int) *model.Conversation {
	return s.order[i]
}

// Position returns the list index of a conversation, or -1.
func (s *Store) Position(id string) int {
	for i, c := range s.order {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// InsertHead places a conversation at the head of the list.
func (s *Store) InsertHead(c *model.Conversation) {
	s.order = append([]*model.Conversation{c}, s.order...)
	s.index[c.ID] = c
}

// Append places a conversation at the end of the list.
func (s *Store) Append(c *model.Conversation) {
	s.order = append(s.order, c)
	s.index[c.ID] = c
}

// MoveToHead moves an existing conversation to the head of the list.
func (s *Store) MoveToHead(id string) {
	pos := s.Position(id)
	if pos <= 0 {
		return
	}
	c := s.order[pos]
	s.order = append(s.order[:pos], s.order[pos+1:]...)
	s.order = append([]*model.Conversation{c}, s.order...)
}

// Remove drops a conversation from the store.
func (s *Store) Remove(id string) {
	pos := s.Position(id)
	if pos < 0 {
		return
	}
	s.order = append(s.order[:pos], s.order[pos+1:]...)
	delete(s.index, id)
}

// Replace swaps the list for a new ordering. Every entry must already
// be indexed or is indexed here.
func (s *Store) Replace(order []*model.Conversation) {
	s.order = order
	s.index = make(map[string]*model.Conversation, len(order))
	for _, c := range order {
		s.index[c.ID] = c
	}
}

// SortByPreviewTime sorts the list newest preview first. The sort is
// stable so same-instant conversations keep their relative order.
func (s *Store) SortByPreviewTime() {
	sortStableByPreview(s.order)
}

func sortStableByPreview(order []*model.Conversation) {
	// Insertion sort: pages are small and mostly ordered already.
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && order[j].PreviewTime.After(order[j-1].PreviewTime); j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}
}

// UnreadTotal sums unread counts across all conversations.
func (s *Store) UnreadTotal() int {
	total := 0
	for _, c := range s.order {
		total += c.UnreadCount
	}
	return total
}

// Snapshot is a read-only deep copy of the store handed to consumers.
type Snapshot struct {
	Conversations []model.Conversation `json:"conversations"`
	SelectedID    string               `json:"selected_id,omitempty"`
	UnreadTotal   int                  `json:"unread_total"`
	AssistTyping  bool                 `json:"assist_typing"`
	Revision      uint64               `json:"revision"`

	// Recoverable fetch-error state; loaded data is never cleared by a
	// failed fetch.
	ListError    string `json:"list_error,omitempty"`
	HistoryError string `json:"history_error,omitempty"`
}

// Snapshot deep-copies the store.
func (s *Store) Snapshot(selectedID string, assistTyping bool, revision uint64) Snapshot {
	out := Snapshot{
		Conversations: make([]model.Conversation, len(s.order)),
		SelectedID:    selectedID,
		UnreadTotal:   s.UnreadTotal(),
		AssistTyping:  assistTyping,
		Revision:      revision,
	}
	for i, c := range s.order {
		cp := *c
		if len(c.Messages) > 0 {
			cp.Messages = make([]model.Message, len(c.Messages))
			copy(cp.Messages, c.Messages)
		}
		out.Conversations[i] = cp
	}
	return out
}
