package assist

import (
	"context"
	"errors"
	"fmt"

	"github.com/inboxhq/support-inbox/internal/model"
	"github.com/inboxhq/support-inbox/pkg/logger"
)

const systemPrompt = "You are a customer-support assistant. Draft a short, " +
	"polite reply the operator can send as-is. Answer in the customer's language. " +
	"Return only the reply text."

// historyLimit caps how many trailing messages are sent as context.
const historyLimit = 20

// Suggester drafts replies for a conversation using an assist provider.
type Suggester struct {
	client Client
	log    *logger.Logger
}

// NewSuggester creates a suggester on a provider client.
func NewSuggester(client Client, log *logger.Logger) *Suggester {
	return &Suggester{client: client, log: log}
}

// Provider returns the underlying provider name.
func (s *Suggester) Provider() string {
	return s.client.Name()
}

// Suggest drafts a reply for the conversation's current state.
func (s *Suggester) Suggest(ctx context.Context, conv model.Conversation) (string, error) {
	msgs := conv.Messages
	if len(msgs) == 0 {
		return "", errors.New("conversation has no loaded messages")
	}
	if len(msgs) > historyLimit {
		msgs = msgs[len(msgs)-historyLimit:]
	}

	chat := make([]ChatMessage, 0, len(msgs)+1)
	chat = append(chat, ChatMessage{Role: "user", Content: systemPrompt})
	for _, m := range msgs {
		if m.IsTemp() || m.Content == "" {
			continue
		}
		role := "assistant"
		if m.Sender.FromCustomer() {
			role = "user"
		}
		chat = append(chat, ChatMessage{Role: role, Content: m.Content})
	}

	resp, err := s.client.Complete(ctx, &CompletionRequest{Messages: chat})
	if err != nil {
		return "", fmt.Errorf("assist completion: %w", err)
	}
	return resp.Content, nil
}
