// Package engine implements the conversation synchronization engine:
// it reconciles paginated snapshot fetches, paginated message history
// and the incremental push-event channel into one consistent in-memory
// view.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/inboxhq/support-inbox/internal/model"
	"github.com/inboxhq/support-inbox/pkg/logger"
	"github.com/inboxhq/support-inbox/pkg/metrics"
)

// Engine errors.
var (
	ErrClosed              = errors.New("engine is closed")
	ErrNoSelection         = errors.New("no conversation selected")
	ErrUnknownConversation = errors.New("unknown conversation")
	ErrLoadInFlight        = errors.New("a history load is already in flight")
	ErrNoMoreHistory       = errors.New("no more history")
	ErrUnknownTempID       = errors.New("unknown temporary message id")
	ErrEmptyMessage        = errors.New("message content is empty")
	ErrNoSuggester         = errors.New("no suggestion provider configured")
)

// AttachmentUpload is the raw file handed to SubmitMessage before the
// send itself happens.
type AttachmentUpload struct {
	Filename string
	Kind     model.AttachmentKind
	Content  []byte
}

// Gateway is the backend REST surface the engine consumes. Tests plug
// in a fake.
type Gateway interface {
	ListConversations(ctx context.Context, tenantID string, page, pageSize int) (model.ConversationPage, error)
	ListMessages(ctx context.Context, conversationID string, page, pageSize int) ([]model.Message, error)
	ConversationDetail(ctx context.Context, conversationID string) (model.ConversationDetail, error)
	SendMessage(ctx context.Context, conversationID, content string, att *model.Attachment) (model.SendReceipt, error)
	UploadAttachment(ctx context.Context, upload AttachmentUpload) (model.Attachment, error)
	MarkRead(ctx context.Context, conversationID string) error
}

// Suggester drafts a reply for a conversation. Optional.
type Suggester interface {
	Suggest(ctx context.Context, conv model.Conversation) (string, error)
	Provider() string
}

// Config tunes the engine.
type Config struct {
	TenantID      string
	AdminOverride bool

	ConversationPageSize int
	MessagePageSize      int
	DedupeWindow         time.Duration
	RefreshInterval      time.Duration
	TypingTTL            time.Duration
	AssistTypingTTL      time.Duration
}

func (c *Config) applyDefaults() {
	if c.ConversationPageSize <= 0 {
		c.ConversationPageSize = 20
	}
	if c.MessagePageSize <= 0 {
		c.MessagePageSize = 50
	}
	if c.DedupeWindow <= 0 {
		c.DedupeWindow = DefaultDedupeWindow
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = 30 * time.Second
	}
	if c.TypingTTL <= 0 {
		c.TypingTTL = 5 * time.Second
	}
	if c.AssistTypingTTL <= 0 {
		c.AssistTypingTTL = 15 * time.Second
	}
}

// Update is emitted to subscribers after every state change.
type Update struct {
	Revision uint64 `json:"revision"`
	// ScrollToBottom hints that a message landed in the open
	// conversation while the viewport was already at the bottom.
	ScrollToBottom bool `json:"scroll_to_bottom,omitempty"`
	// AnchorMessageID names the previously topmost message after a
	// load-older prepend so the viewport can keep its visual offset.
	AnchorMessageID string `json:"anchor_message_id,omitempty"`
}

// Engine owns the conversation store. A single goroutine executes
// every mutation serially; public methods hand it tasks and push-event
// and fetch completions are queued the same way, so there is exactly
// one writer and no ordering races between callbacks.
type Engine struct {
	cfg     Config
	gw      Gateway
	suggest Suggester
	log     *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	tasks     chan func()
	quit      chan struct{}
	loopDone  chan struct{}
	closeOnce sync.Once

	subMu   sync.Mutex
	subs    map[uint64]chan Update
	nextSub uint64

	// Everything below is owned by the run goroutine.
	store            *Store
	selection        SelectionGuard
	listCursor       *Cursor
	msgCursor        *Cursor
	pending          *sendTable
	refreshInFlight  bool
	viewportAtBottom bool
	assistTyping     bool
	revision         uint64
	listErr          error
	historyErr       error
	typingTimers     map[string]*time.Timer
	assistTimer      *time.Timer

	nowFn func() time.Time
}

// New creates an engine for one signed-in tenant. A missing tenant
// identity is the one fatal startup condition.
func New(cfg Config, gw Gateway, suggest Suggester, log *logger.Logger) (*Engine, error) {
	if cfg.TenantID == "" && !cfg.AdminOverride {
		return nil, fmt.Errorf("create engine: tenant identity not established")
	}
	cfg.applyDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		cfg:          cfg,
		gw:           gw,
		suggest:      suggest,
		log:          log,
		ctx:          ctx,
		cancel:       cancel,
		tasks:        make(chan func(), 256),
		quit:         make(chan struct{}),
		loopDone:     make(chan struct{}),
		subs:         make(map[uint64]chan Update),
		store:        NewStore(),
		listCursor:   NewCursor(cfg.ConversationPageSize),
		msgCursor:    NewCursor(cfg.MessagePageSize),
		pending:      newSendTable(),
		typingTimers: make(map[string]*time.Timer),
		nowFn:        time.Now,
	}, nil
}

// Start launches the engine loop and the initial conversation-list
// fetch.
func (e *Engine) Start() {
	go e.run()
	e.post(e.startInitialLoad)
}

// Close tears the engine down: it cancels in-flight fetches, stops all
// timers and ends the loop. Safe to call more than once.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.cancel()
		close(e.quit)
		<-e.loopDone
	})
}

func (e *Engine) run() {
	ticker := time.NewTicker(e.cfg.RefreshInterval)
	defer ticker.Stop()
	defer close(e.loopDone)

	for {
		select {
		case fn := <-e.tasks:
			fn()
		case <-ticker.C:
			e.startRefresh()
		case <-e.quit:
			e.teardown()
			return
		}
	}
}

func (e *Engine) teardown() {
	for id, t := range e.typingTimers {
		t.Stop()
		delete(e.typingTimers, id)
	}
	if e.assistTimer != nil {
		e.assistTimer.Stop()
		e.assistTimer = nil
	}
}

// post queues a task without waiting for it.
func (e *Engine) post(fn func()) {
	select {
	case e.tasks <- fn:
	case <-e.quit:
	}
}

// do queues a task and waits for the loop to execute it.
func (e *Engine) do(fn func()) error {
	done := make(chan struct{})
	select {
	case e.tasks <- func() { fn(); close(done) }:
	case <-e.quit:
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-e.loopDone:
		return ErrClosed
	}
}

// Subscribe returns a channel of state-change updates and a cancel
// function. Slow subscribers lose intermediate updates, never block the
// engine.
func (e *Engine) Subscribe() (<-chan Update, func()) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	id := e.nextSub
	e.nextSub++
	ch := make(chan Update, 8)
	e.subs[id] = ch
	return ch, func() {
		e.subMu.Lock()
		defer e.subMu.Unlock()
		delete(e.subs, id)
	}
}

func (e *Engine) bump(u Update) {
	e.revision++
	u.Revision = e.revision
	e.subMu.Lock()
	defer e.subMu.Unlock()
	for _, ch := range e.subs {
		select {
		case ch <- u:
		default:
		}
	}
}

// Snapshot returns a deep copy of the current state.
func (e *Engine) Snapshot() (Snapshot, error) {
	var snap Snapshot
	err := e.do(func() {
		snap = e.store.Snapshot(e.selection.ID(), e.assistTyping, e.revision)
		if e.listErr != nil {
			snap.ListError = e.listErr.Error()
		}
		if e.historyErr != nil {
			snap.HistoryError = e.historyErr.Error()
		}
	})
	return snap, err
}

// HandlePush feeds one push event into the engine. Events are applied
// in the order they are handed in.
func (e *Engine) HandlePush(ev model.PushEvent) {
	e.post(func() {
		if ev.Type == model.PushTyping {
			e.handleTyping(ev)
			return
		}
		res := applyEvent(e.store, ev, e.selection.ID(), e.cfg.TenantID, e.cfg.AdminOverride, e.cfg.DedupeWindow, e.pending, e.log)
		if res.NeedsDetail != "" {
			e.startDetailFill(res.NeedsDetail)
		}
		if res.Changed {
			e.bump(Update{ScrollToBottom: res.Appended && e.viewportAtBottom})
		}
	})
}

func (e *Engine) handleTyping(ev model.PushEvent) {
	if !acceptTenant(ev.TenantID, e.cfg.TenantID, e.cfg.AdminOverride, "push") {
		return
	}
	conv, ok := e.store.Get(ev.ConversationID)
	if !ok {
		return
	}
	conv.TypingUntil = e.nowFn().Add(e.cfg.TypingTTL)
	if t, ok := e.typingTimers[conv.ID]; ok {
		t.Stop()
	}
	id := conv.ID
	e.typingTimers[id] = time.AfterFunc(e.cfg.TypingTTL, func() {
		e.post(func() { e.clearTyping(id) })
	})
	e.bump(Update{})
}

func (e *Engine) clearTyping(conversationID string) {
	delete(e.typingTimers, conversationID)
	conv, ok := e.store.Get(conversationID)
	if !ok || conv.TypingUntil.IsZero() {
		return
	}
	conv.TypingUntil = time.Time{}
	e.bump(Update{})
}

// startDetailFill fetches the full conversation behind a provisional
// entry and merges it in when it arrives.
func (e *Engine) startDetailFill(conversationID string) {
	go func() {
		detail, err := e.gw.ConversationDetail(e.ctx, conversationID)
		if err != nil {
			e.log.Warn("background conversation fill failed",
				zap.String("conversation_id", conversationID),
				zap.Error(err),
			)
			return
		}
		e.post(func() {
			if applyDetail(e.store, detail, e.cfg.TenantID, e.cfg.AdminOverride, e.cfg.DedupeWindow) {
				e.bump(Update{})
			}
		})
	}()
}

func (e *Engine) startInitialLoad() {
	if !e.listCursor.Begin() {
		return
	}
	page := e.listCursor.Page
	go func() {
		resp, err := e.gw.ListConversations(e.ctx, e.cfg.TenantID, page, e.cfg.ConversationPageSize)
		e.post(func() {
			if err != nil {
				e.listCursor.End(false, true)
				e.listErr = err
				e.log.Error("initial conversation load failed", zap.Error(err))
				e.bump(Update{})
				return
			}
			e.listErr = nil
			e.listCursor.End(true, resp.Pagination.HasNextPage)
			if mergeSnapshot(e.store, resp.Items, e.selection.ID()) {
				e.pending.purgeOrphans(e.store)
				e.bump(Update{})
			}
		})
	}()
}

// startRefresh runs the periodic silent snapshot refresh. A refresh
// that is still in flight when the interval fires makes the new one a
// no-op, not a queued one.
func (e *Engine) startRefresh() {
	if e.refreshInFlight {
		return
	}
	e.refreshInFlight = true

	// Cover every page loaded so far in one fetch so the merge sees
	// the whole locally known list.
	size := (e.listCursor.Page - 1) * e.cfg.ConversationPageSize
	if size <= 0 {
		size = e.cfg.ConversationPageSize
	}
	go func() {
		resp, err := e.gw.ListConversations(e.ctx, e.cfg.TenantID, 1, size)
		e.post(func() {
			e.refreshInFlight = false
			if err != nil {
				e.listErr = err
				e.log.Warn("background refresh failed", zap.Error(err))
				return
			}
			e.listErr = nil
			if mergeSnapshot(e.store, resp.Items, e.selection.ID()) {
				e.pending.purgeOrphans(e.store)
				e.bump(Update{})
			}
		})
	}()
}

// Refresh triggers a snapshot refresh outside the periodic schedule.
func (e *Engine) Refresh() error {
	return e.do(e.startRefresh)
}

// SelectConversation opens a conversation: it becomes the single
// selected one, its history is loaded if absent, and its unread count
// is cleared once messages are present.
func (e *Engine) SelectConversation(id string) error {
	var err error
	doErr := e.do(func() {
		conv, ok := e.store.Get(id)
		if !ok {
			err = ErrUnknownConversation
			return
		}
		if prev, ok := e.store.Get(e.selection.ID()); ok {
			prev.Selected = false
		}
		tok := e.selection.Select(id)
		conv.Selected = true
		e.msgCursor.Reset()
		e.historyErr = nil

		if len(conv.Messages) > 0 {
			// Cached history: realign the cursor with the pages this
			// conversation already holds so load-older continues where
			// it left off.
			if conv.HistoryPages > 0 {
				e.msgCursor.Page = conv.HistoryPages + 1
				e.msgCursor.HasMore = conv.HistoryHasMore
			}
			e.markRead(conv)
			e.bump(Update{ScrollToBottom: true})
			return
		}
		e.msgCursor.Begin()
		e.startHistoryLoad(tok, id)
		e.bump(Update{})
	})
	if doErr != nil {
		return doErr
	}
	return err
}

func (e *Engine) startHistoryLoad(tok SelectionToken, conversationID string) {
	page := e.msgCursor.Page
	go func() {
		msgs, err := e.gw.ListMessages(e.ctx, conversationID, page, e.cfg.MessagePageSize)
		e.post(func() {
			if !e.selection.Matches(tok) {
				metrics.StaleFetchesDiscardedTotal.Inc()
				e.log.Debug("discarding stale history fetch",
					zap.String("conversation_id", conversationID),
				)
				return
			}
			if err != nil {
				e.msgCursor.End(false, true)
				e.historyErr = err
				e.log.Error("history load failed",
					zap.String("conversation_id", conversationID),
					zap.Error(err),
				)
				e.bump(Update{})
				return
			}
			conv, ok := e.store.Get(conversationID)
			if !ok {
				return
			}
			e.historyErr = nil
			conv.Messages = mergeSeedMessages(msgs, conv.Messages, e.cfg.DedupeWindow)
			more := len(msgs) == e.cfg.MessagePageSize
			e.msgCursor.End(true, more)
			conv.HistoryPages = 1
			conv.HistoryHasMore = more
			e.markRead(conv)
			if latest, ok := conv.LatestMessage(); ok {
				recomputeDerived(conv, latest)
			}
			e.bump(Update{ScrollToBottom: true})
		})
	}()
}

// mergeSeedMessages folds any locally held messages (a synthesized
// seed, optimistic sends) into a fetched history page, fetched copy
// first.
func mergeSeedMessages(fetched, local []model.Message, window time.Duration) []model.Message {
	out := make([]model.Message, len(fetched))
	copy(out, fetched)
	for _, m := range local {
		if m.IsTemp() {
			out = append(out, m)
			continue
		}
		if !isDuplicate(m, out, window) && !containsID(out, m.ID) {
			out = insertByTimestamp(out, m)
		}
	}
	return out
}

// markRead clears the local unread counter immediately and schedules
// the backend side effect fire-and-forget; its failure never rolls the
// local state back.
func (e *Engine) markRead(conv *model.Conversation) {
	if conv.UnreadCount != 0 {
		conv.UnreadCount = 0
		conv.UnreadUpdatedAt = e.nowFn()
	}
	id := conv.ID
	go func() {
		if err := e.gw.MarkRead(e.ctx, id); err != nil {
			e.log.Warn("mark-as-read failed",
				zap.String("conversation_id", id),
				zap.Error(err),
			)
		}
	}()
}

// LoadOlderMessages prepends the next older history page to the open
// conversation. Only one load-older may be outstanding; the completion
// update carries the anchor message id so the viewport can hold its
// offset.
func (e *Engine) LoadOlderMessages() error {
	var err error
	doErr := e.do(func() {
		conv, ok := e.store.Get(e.selection.ID())
		if !ok {
			err = ErrNoSelection
			return
		}
		if e.msgCursor.InFlight() {
			err = ErrLoadInFlight
			return
		}
		if !e.msgCursor.Begin() {
			err = ErrNoMoreHistory
			return
		}
		anchor := ""
		if len(conv.Messages) > 0 {
			anchor = conv.Messages[0].ID
		}
		e.startOlderLoad(e.selection.Current(), conv.ID, anchor)
	})
	if doErr != nil {
		return doErr
	}
	return err
}

func (e *Engine) startOlderLoad(tok SelectionToken, conversationID, anchor string) {
	page := e.msgCursor.Page
	go func() {
		msgs, err := e.gw.ListMessages(e.ctx, conversationID, page, e.cfg.MessagePageSize)
		e.post(func() {
			if !e.selection.Matches(tok) {
				metrics.StaleFetchesDiscardedTotal.Inc()
				return
			}
			if err != nil {
				e.msgCursor.End(false, true)
				e.historyErr = err
				e.log.Error("load older messages failed",
					zap.String("conversation_id", conversationID),
					zap.Error(err),
				)
				e.bump(Update{})
				return
			}
			conv, ok := e.store.Get(conversationID)
			if !ok {
				return
			}
			e.historyErr = nil
			merged := make([]model.Message, 0, len(msgs)+len(conv.Messages))
			for _, m := range msgs {
				if !containsID(conv.Messages, m.ID) {
					merged = append(merged, m)
				}
			}
			conv.Messages = append(merged, conv.Messages...)
			more := len(msgs) == e.cfg.MessagePageSize
			e.msgCursor.End(true, more)
			conv.HistoryPages++
			conv.HistoryHasMore = more
			e.bump(Update{AnchorMessageID: anchor})
		})
	}()
}

// LoadMoreConversations appends the next conversation-list page.
func (e *Engine) LoadMoreConversations() error {
	var err error
	doErr := e.do(func() {
		if e.listCursor.InFlight() {
			err = ErrLoadInFlight
			return
		}
		if !e.listCursor.Begin() {
			err = ErrNoMoreHistory
			return
		}
		page := e.listCursor.Page
		go func() {
			resp, ferr := e.gw.ListConversations(e.ctx, e.cfg.TenantID, page, e.cfg.ConversationPageSize)
			e.post(func() {
				if ferr != nil {
					e.listCursor.End(false, true)
					e.listErr = ferr
					e.log.Error("load more conversations failed", zap.Error(ferr))
					e.bump(Update{})
					return
				}
				e.listErr = nil
				e.listCursor.End(true, resp.Pagination.HasNextPage)
				if mergePage(e.store, resp.Items, e.selection.ID()) {
					e.bump(Update{})
				}
			})
		}()
	})
	if doErr != nil {
		return doErr
	}
	return err
}

// SubmitMessage sends a message to the open conversation. The
// attachment, if any, is uploaded first; an upload failure aborts the
// send before any message object exists. The composing placeholder
// appears in the store immediately and is settled later by the push
// echo (or marked failed).
func (e *Engine) SubmitMessage(ctx context.Context, content string, upload *AttachmentUpload) (string, error) {
	if content == "" && upload == nil {
		return "", ErrEmptyMessage
	}

	// Confirm a conversation is open before anything touches the
	// network, so a rejected send can never leave an uploaded file
	// referenced by no message.
	var selErr error
	if doErr := e.do(func() {
		if _, ok := e.store.Get(e.selection.ID()); !ok {
			selErr = ErrNoSelection
		}
	}); doErr != nil {
		return "", doErr
	}
	if selErr != nil {
		return "", selErr
	}

	var att *model.Attachment
	if upload != nil {
		uploaded, err := e.gw.UploadAttachment(ctx, *upload)
		if err != nil {
			metrics.OptimisticSendsTotal.WithLabelValues("upload_failed").Inc()
			return "", fmt.Errorf("upload attachment: %w", err)
		}
		att = &uploaded
	}

	var tempID string
	var err error
	doErr := e.do(func() {
		conv, ok := e.store.Get(e.selection.ID())
		if !ok {
			err = ErrNoSelection
			return
		}
		temp := newTempMessage(conv.ID, content, att, e.nowFn())
		tempID = temp.ID
		conv.Messages = append(conv.Messages, temp)
		p := &pendingSend{
			TempID:         tempID,
			ConversationID: conv.ID,
			Content:        content,
			Attachment:     att,
			SubmittedAt:    temp.Timestamp,
		}
		e.pending.add(p)
		metrics.OptimisticSendsTotal.WithLabelValues("submitted").Inc()
		e.bump(Update{ScrollToBottom: e.viewportAtBottom})
		e.startSend(p)
	})
	if doErr != nil {
		return "", doErr
	}
	return tempID, err
}

// startSend issues the network send for a pending optimistic message.
// The direct response never materializes the message; it only moves the
// placeholder from composing to sent. The echo does the rest.
func (e *Engine) startSend(p *pendingSend) {
	go func() {
		_, err := e.gw.SendMessage(e.ctx, p.ConversationID, p.Content, p.Attachment)
		e.post(func() {
			conv, ok := e.store.Get(p.ConversationID)
			if !ok {
				return
			}
			if _, stillPending := e.pending.get(p.TempID); !stillPending {
				// Echo already settled it.
				return
			}
			if err != nil {
				if setMessageStatus(conv, p.TempID, model.StatusFailed) {
					metrics.OptimisticSendsTotal.WithLabelValues("failed").Inc()
					e.log.Warn("message send failed",
						zap.String("conversation_id", p.ConversationID),
						zap.String("temp_id", p.TempID),
						zap.Error(err),
					)
					e.bump(Update{})
				}
				return
			}
			if setMessageStatus(conv, p.TempID, model.StatusSent) {
				e.bump(Update{})
			}
		})
	}()
}

// RetryFailedMessage re-issues a failed optimistic send. The uploaded
// attachment reference, if any, is reused; nothing is re-uploaded.
func (e *Engine) RetryFailedMessage(tempID string) error {
	var err error
	doErr := e.do(func() {
		p, ok := e.pending.get(tempID)
		if !ok {
			err = ErrUnknownTempID
			return
		}
		conv, ok := e.store.Get(p.ConversationID)
		if !ok {
			err = ErrUnknownConversation
			return
		}
		if setMessageStatus(conv, tempID, model.StatusComposing) {
			metrics.OptimisticSendsTotal.WithLabelValues("retried").Inc()
			e.bump(Update{})
		}
		e.startSend(p)
	})
	if doErr != nil {
		return doErr
	}
	return err
}

// DismissFailedMessage removes a failed optimistic message for good.
func (e *Engine) DismissFailedMessage(tempID string) error {
	var err error
	doErr := e.do(func() {
		p, ok := e.pending.get(tempID)
		if !ok {
			err = ErrUnknownTempID
			return
		}
		if conv, ok := e.store.Get(p.ConversationID); ok {
			removeMessage(conv, tempID)
		}
		e.pending.remove(tempID)
		metrics.OptimisticSendsTotal.WithLabelValues("dismissed").Inc()
		e.bump(Update{})
	})
	if doErr != nil {
		return doErr
	}
	return err
}

// SetViewportAtBottom records whether the message viewport is scrolled
// to the bottom; it decides the auto-scroll hint on appends.
func (e *Engine) SetViewportAtBottom(atBottom bool) {
	e.post(func() {
		e.viewportAtBottom = atBottom
	})
}

// SuggestReply drafts a reply for the open conversation via the assist
// provider. While the request is in flight the store exposes the
// assist-typing indicator, auto-cleared on a timer.
func (e *Engine) SuggestReply(ctx context.Context) (string, error) {
	if e.suggest == nil {
		return "", ErrNoSuggester
	}

	var conv model.Conversation
	var err error
	doErr := e.do(func() {
		c, ok := e.store.Get(e.selection.ID())
		if !ok {
			err = ErrNoSelection
			return
		}
		cp := *c
		cp.Messages = make([]model.Message, len(c.Messages))
		copy(cp.Messages, c.Messages)
		conv = cp

		e.assistTyping = true
		if e.assistTimer != nil {
			e.assistTimer.Stop()
		}
		e.assistTimer = time.AfterFunc(e.cfg.AssistTypingTTL, func() {
			e.post(e.clearAssistTyping)
		})
		e.bump(Update{})
	})
	if doErr != nil {
		return "", doErr
	}
	if err != nil {
		return "", err
	}

	suggestion, serr := e.suggest.Suggest(ctx, conv)
	outcome := "ok"
	if serr != nil {
		outcome = "error"
	}
	metrics.AssistSuggestionsTotal.WithLabelValues(e.suggest.Provider(), outcome).Inc()

	_ = e.do(e.clearAssistTyping)
	if serr != nil {
		return "", fmt.Errorf("suggest reply: %w", serr)
	}
	return suggestion, nil
}

func (e *Engine) clearAssistTyping() {
	if e.assistTimer != nil {
		e.assistTimer.Stop()
		e.assistTimer = nil
	}
	if e.assistTyping {
		e.assistTyping = false
		e.bump(Update{})
	}
}
