package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inboxhq/support-inbox/internal/engine"
	"github.com/inboxhq/support-inbox/internal/middleware"
	"github.com/inboxhq/support-inbox/internal/model"
	"github.com/inboxhq/support-inbox/pkg/logger"
)

// InboxHandler exposes the engine's read snapshot and operations.
type InboxHandler struct {
	engine *engine.Engine
	logger *logger.Logger
}

// NewInboxHandler creates a new inbox handler.
func NewInboxHandler(eng *engine.Engine, log *logger.Logger) *InboxHandler {
	return &InboxHandler{engine: eng, logger: log}
}

// Snapshot handles GET /api/v1/inbox
func (h *InboxHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.engine.Snapshot()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "engine is shut down")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Select handles POST /api/v1/inbox/conversations/{id}/select
func (h *InboxHandler) Select(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.engine.SelectConversation(id); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"selected": id})
}

// sendMessageRequest is the submit payload. The attachment is inlined
// base64 for simplicity; the engine uploads it before sending.
type sendMessageRequest struct {
	Content    string `json:"content"`
	Attachment *struct {
		Filename string               `json:"filename"`
		Kind     model.AttachmentKind `json:"kind"`
		Data     []byte               `json:"data"`
	} `json:"attachment,omitempty"`
}

// Submit handles POST /api/v1/inbox/messages
func (h *InboxHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Attachment == nil {
		if err := middleware.ValidateMessageContent(req.Content); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	var upload *engine.AttachmentUpload
	if req.Attachment != nil {
		upload = &engine.AttachmentUpload{
			Filename: req.Attachment.Filename,
			Kind:     req.Attachment.Kind,
			Content:  req.Attachment.Data,
		}
	}

	tempID, err := h.engine.SubmitMessage(r.Context(), req.Content, upload)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"temp_id": tempID})
}

// Retry handles POST /api/v1/inbox/messages/{tempID}/retry
func (h *InboxHandler) Retry(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.RetryFailedMessage(chi.URLParam(r, "tempID")); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "retrying"})
}

// Dismiss handles DELETE /api/v1/inbox/messages/{tempID}
func (h *InboxHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DismissFailedMessage(chi.URLParam(r, "tempID")); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "dismissed"})
}

// LoadOlder handles POST /api/v1/inbox/messages/older
func (h *InboxHandler) LoadOlder(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.LoadOlderMessages(); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "loading"})
}

// LoadMore handles POST /api/v1/inbox/conversations/more
func (h *InboxHandler) LoadMore(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.LoadMoreConversations(); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "loading"})
}

// Viewport handles POST /api/v1/inbox/viewport
func (h *InboxHandler) Viewport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AtBottom bool `json:"at_bottom"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.engine.SetViewportAtBottom(req.AtBottom)
	w.WriteHeader(http.StatusNoContent)
}

// Suggest handles POST /api/v1/inbox/suggest
func (h *InboxHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	suggestion, err := h.engine.SuggestReply(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"suggestion": suggestion})
}

func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrUnknownConversation), errors.Is(err, engine.ErrUnknownTempID):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrNoSelection), errors.Is(err, engine.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrLoadInFlight):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrNoMoreHistory):
		// Exhaustion is an ordinary outcome, not a failure.
		writeJSON(w, http.StatusOK, map[string]string{"status": "exhausted"})
	case errors.Is(err, engine.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, engine.ErrNoSuggester):
		writeError(w, http.StatusNotImplemented, err.Error())
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}
