package assist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxhq/support-inbox/internal/model"
	"github.com/inboxhq/support-inbox/pkg/logger"
)

type stubClient struct {
	lastReq *CompletionRequest
	content string
	err     error
}

func (c *stubClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	c.lastReq = req
	if c.err != nil {
		return nil, c.err
	}
	return &CompletionResponse{Content: c.content}, nil
}

func (c *stubClient) Name() string { return "stub" }

func conversationWith(msgs ...model.Message) model.Conversation {
	return model.Conversation{ID: "c1", Messages: msgs}
}

func msg(id string, sender model.SenderRole, content string) model.Message {
	return model.Message{
		ID:        id,
		Sender:    sender,
		Content:   content,
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSuggestMapsRoles(t *testing.T) {
	client := &stubClient{content: "Sure, let me check."}
	s := NewSuggester(client, logger.NewNop())

	reply, err := s.Suggest(context.Background(), conversationWith(
		msg("m_1", model.SenderCustomer, "where is my order?"),
		msg("m_2", model.SenderStaff, "one moment"),
		msg("m_3", model.SenderCustomer, "still waiting"),
	))
	require.NoError(t, err)
	assert.Equal(t, "Sure, let me check.", reply)

	req := client.lastReq
	require.NotNil(t, req)
	require.Len(t, req.Messages, 4) // prompt + three turns
	assert.Equal(t, "user", req.Messages[1].Role)
	assert.Equal(t, "assistant", req.Messages[2].Role)
	assert.Equal(t, "user", req.Messages[3].Role)
}

func TestSuggestSkipsTempAndEmptyMessages(t *testing.T) {
	client := &stubClient{content: "ok"}
	s := NewSuggester(client, logger.NewNop())

	pending := msg(model.TempIDPrefix+"abc", model.SenderStaff, "unsent draft")
	_, err := s.Suggest(context.Background(), conversationWith(
		msg("m_1", model.SenderCustomer, "hi"),
		pending,
		msg("m_2", model.SenderCustomer, ""),
	))
	require.NoError(t, err)

	require.Len(t, client.lastReq.Messages, 2)
	assert.Equal(t, "hi", client.lastReq.Messages[1].Content)
}

func TestSuggestTruncatesHistory(t *testing.T) {
	client := &stubClient{content: "ok"}
	s := NewSuggester(client, logger.NewNop())

	msgs := make([]model.Message, 0, historyLimit+10)
	for i := 0; i < historyLimit+10; i++ {
		msgs = append(msgs, msg("m", model.SenderCustomer, "x"))
	}
	_, err := s.Suggest(context.Background(), conversationWith(msgs...))
	require.NoError(t, err)

	assert.Len(t, client.lastReq.Messages, historyLimit+1)
}

func TestSuggestEmptyConversation(t *testing.T) {
	s := NewSuggester(&stubClient{}, logger.NewNop())

	_, err := s.Suggest(context.Background(), conversationWith())
	assert.Error(t, err)
}

func TestSuggestWrapsClientError(t *testing.T) {
	s := NewSuggester(&stubClient{err: errors.New("rate limited")}, logger.NewNop())

	_, err := s.Suggest(context.Background(), conversationWith(
		msg("m_1", model.SenderCustomer, "hi"),
	))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assist completion")
}
