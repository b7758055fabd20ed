// Package gateway is the REST client for the support backend. The
// engine consumes it through its Gateway interface; everything here is
// conventional request/response plumbing.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/inboxhq/support-inbox/internal/engine"
	"github.com/inboxhq/support-inbox/internal/model"
	"github.com/inboxhq/support-inbox/pkg/logger"
)

// Config holds backend connection settings.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client talks to the support backend.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *logger.Logger
}

// New creates a backend client.
func New(cfg Config, log *logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// ListConversations fetches one page of the tenant's conversation list.
func (c *Client) ListConversations(ctx context.Context, tenantID string, page, pageSize int) (model.ConversationPage, error) {
	q := url.Values{}
	q.Set("tenant_id", tenantID)
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))

	var resp model.ConversationPage
	if err := c.getJSON(ctx, "/api/v1/conversations?"+q.Encode(), &resp); err != nil {
		return model.ConversationPage{}, fmt.Errorf("list conversations: %w", err)
	}
	return resp, nil
}

// ListMessages fetches one history page, oldest-first within the page;
// page 1 is the newest page.
func (c *Client) ListMessages(ctx context.Context, conversationID string, page, pageSize int) ([]model.Message, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))

	var resp struct {
		Messages []model.Message `json:"messages"`
	}
	path := "/api/v1/conversations/" + url.PathEscape(conversationID) + "/messages?" + q.Encode()
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return resp.Messages, nil
}

// ConversationDetail fetches one conversation with its recent history.
func (c *Client) ConversationDetail(ctx context.Context, conversationID string) (model.ConversationDetail, error) {
	var resp model.ConversationDetail
	path := "/api/v1/conversations/" + url.PathEscape(conversationID)
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return model.ConversationDetail{}, fmt.Errorf("conversation detail: %w", err)
	}
	return resp, nil
}

// SendMessage posts a message. The response is a receipt only; the
// authoritative copy arrives via the push channel.
func (c *Client) SendMessage(ctx context.Context, conversationID, content string, att *model.Attachment) (model.SendReceipt, error) {
	body := map[string]any{"content": content}
	if att != nil {
		body["attachment"] = att
	}
	var resp model.SendReceipt
	path := "/api/v1/conversations/" + url.PathEscape(conversationID) + "/messages"
	if err := c.postJSON(ctx, path, body, &resp); err != nil {
		return model.SendReceipt{}, fmt.Errorf("send message: %w", err)
	}
	return resp, nil
}

// UploadAttachment uploads a file and returns the stored reference.
func (c *Client) UploadAttachment(ctx context.Context, upload engine.AttachmentUpload) (model.Attachment, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", upload.Filename)
	if err != nil {
		return model.Attachment{}, fmt.Errorf("upload attachment: %w", err)
	}
	if _, err := fw.Write(upload.Content); err != nil {
		return model.Attachment{}, fmt.Errorf("upload attachment: %w", err)
	}
	if err := mw.WriteField("kind", string(upload.Kind)); err != nil {
		return model.Attachment{}, fmt.Errorf("upload attachment: %w", err)
	}
	if err := mw.Close(); err != nil {
		return model.Attachment{}, fmt.Errorf("upload attachment: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/attachments", &buf)
	if err != nil {
		return model.Attachment{}, fmt.Errorf("upload attachment: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(req)

	var att model.Attachment
	if err := c.doJSON(req, &att); err != nil {
		return model.Attachment{}, fmt.Errorf("upload attachment: %w", err)
	}
	return att, nil
}

// MarkRead marks a conversation read on the backend.
func (c *Client) MarkRead(ctx context.Context, conversationID string) error {
	path := "/api/v1/conversations/" + url.PathEscape(conversationID) + "/read"
	if err := c.postJSON(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)
	return c.doJSON(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)
	return c.doJSON(req, out)
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("backend returned %d: %s", resp.StatusCode, string(data))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
