package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/droidsweep/backend/internal/advisor"
	"github.com/droidsweep/backend/internal/logging"
	"github.com/droidsweep/backend/internal/monitoring"
	"github.com/droidsweep/backend/internal/shared/id"
	"github.com/droidsweep/backend/internal/shared/types"
	"github.com/droidsweep/backend/internal/store"
	"github.com/droidsweep/backend/internal/stream"
	"github.com/droidsweep/backend/internal/suggest"
)

var (
	// ErrQueryInFlight rejects a submit while an advisor call is outstanding
	ErrQueryInFlight = errors.New("a query is already in flight")

	// ErrEmptyQuery rejects a submit with no content
	ErrEmptyQuery = errors.New("query text is empty")
)

// User-visible notices synthesized when the advisor fails
const (
	noticeTimeout     = "The advisor is taking too long to respond. Please try again."
	noticeUnavailable = "Cannot reach the device assistant backend. Please check that it is running."
	noticeGeneric     = "Something went wrong while contacting the advisor. Please try again."
)

// Listener receives a ChatUpdate after every applied mutation
type Listener func(types.ChatUpdate)

// Config wires a Manager's collaborators
type Config struct {
	Advisor      advisor.Querier
	Store        *store.Store
	Streams      *stream.Controller
	Suggester    *suggest.Generator
	// StreamDelay is the pause between revealed tokens. Zero and
	// negative values disable pacing: replies land in one mutation.
	StreamDelay  time.Duration
	QueryTimeout time.Duration
	Logger       *logging.Logger
	Clock        func() time.Time
	Metrics      *monitoring.Metrics // optional
}

// Manager owns the in-memory session and its durable snapshot
type Manager struct {
	advisor   advisor.Querier
	store     *store.Store
	streams   *stream.Controller
	suggester *suggest.Generator
	delay     time.Duration
	timeout   time.Duration
	log       *logging.Logger
	now       func() time.Time
	metrics   *monitoring.Metrics

	mu          sync.Mutex
	sessionID   id.SessionID
	messages    []types.Message
	suggestions types.SuggestionSet
	inFlight    bool

	listenerMu sync.Mutex
	listeners  map[int]Listener
	nextListen int
}

// NewManager creates a session manager and restores any persisted session
func NewManager(cfg Config) *Manager {
	if cfg.QueryTimeout == 0 {
		cfg.QueryTimeout = 75 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	m := &Manager{
		advisor:   cfg.Advisor,
		store:     cfg.Store,
		streams:   cfg.Streams,
		suggester: cfg.Suggester,
		delay:     cfg.StreamDelay,
		timeout:   cfg.QueryTimeout,
		log:       cfg.Logger.Named("chat"),
		now:       cfg.Clock,
		metrics:   cfg.Metrics,
		listeners: make(map[int]Listener),
	}

	m.restore()
	return m
}

// restore loads the persisted snapshot and self-heals stale streaming flags.
// No stream survives a restart, so a streaming message in a snapshot can
// only mean the process died mid-reveal.
func (m *Manager) restore() {
	snap := store.Get(m.store, store.KeyChatHistory, types.Snapshot{})

	healed := 0
	for i := range snap.Messages {
		if snap.Messages[i].Streaming {
			snap.Messages[i].Streaming = false
			healed++
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessionID = snap.SessionID
	if m.sessionID == "" {
		m.sessionID = id.NewSessionID()
	}
	m.messages = snap.Messages
	m.suggestions = m.suggester.Generate(m.lastAssistantTextLocked())

	if healed > 0 {
		m.log.Info("healed stale streaming messages from snapshot",
			zap.Int("count", healed),
		)
	}
	if len(snap.Messages) > 0 {
		m.log.Info("restored session",
			zap.String("session_id", m.sessionID.String()),
			zap.Int("messages", len(snap.Messages)),
		)
	}
}

// Submit appends a user message and queries the advisor asynchronously.
// Returns ErrQueryInFlight if an advisor call is already outstanding;
// an active reveal, by contrast, is cancelled and superseded.
func (m *Manager) Submit(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyQuery
	}

	m.mu.Lock()
	if m.inFlight {
		m.mu.Unlock()
		return ErrQueryInFlight
	}
	m.inFlight = true
	m.mu.Unlock()

	// A superseded reveal finishes (streaming=false, prefix kept) before
	// the new user message lands, so the session stays at rest.
	m.streams.CancelActive()

	userMsg := types.Message{
		ID:        id.NewMessageID(),
		Role:      types.RoleUser,
		Content:   text,
		CreatedAt: m.now(),
	}

	m.mu.Lock()
	m.messages = append(m.messages, userMsg)
	m.persistLocked()
	update := m.updateLocked()
	history := m.historyLocked()
	m.mu.Unlock()
	m.notify(update)

	m.log.Info("query submitted",
		zap.String("message_id", userMsg.ID.String()),
		zap.Int("transcript_len", len(history)),
	)

	go m.query(text, history)
	return nil
}

// query runs the advisor call and hands the reply to the stream controller
func (m *Manager) query(text string, history []types.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	started := m.now()
	reply, err := m.advisor.SendQuery(ctx, text, history)
	if m.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		m.metrics.RecordAdvisorCall(status, time.Since(started))
	}

	if err != nil {
		m.log.Warn("advisor query failed", zap.Error(err))
		m.appendNotice(noticeFor(err))
		m.setInFlight(false)
		return
	}

	assistantMsg := types.Message{
		ID:        id.NewMessageID(),
		Role:      types.RoleAssistant,
		Streaming: true,
		CreatedAt: m.now(),
	}

	m.mu.Lock()
	m.messages = append(m.messages, assistantMsg)
	update := m.updateLocked()
	m.mu.Unlock()
	m.notify(update)

	// inFlight stays set until the stream is registered, so a rapid submit
	// cannot slip in between the advisor's return and the stream start.
	st := m.streams.Start(reply, assistantMsg.ID, m.mutatorFor(assistantMsg.ID), m.delay)
	m.setInFlight(false)

	if m.metrics != nil {
		m.metrics.StreamsStarted.Inc()
		go func() {
			<-st.Done()
			if errors.Is(st.Err(), stream.ErrCancelled) {
				m.metrics.StreamsCancelled.Inc()
			} else {
				m.metrics.StreamsCompleted.Inc()
			}
		}()
	}
}

func (m *Manager) setInFlight(v bool) {
	m.mu.Lock()
	m.inFlight = v
	m.mu.Unlock()
}

// mutatorFor binds a stream to its target message. The stream is the sole
// writer of that message's content and streaming flag until it finishes.
func (m *Manager) mutatorFor(msgID id.MessageID) stream.MutateFunc {
	return func(content string, done bool) {
		m.mu.Lock()
		msg := m.findLocked(msgID)
		if msg == nil || !msg.Streaming {
			m.mu.Unlock()
			return
		}

		msg.Content = content
		if done {
			msg.Streaming = false
			m.suggestions = m.suggester.Generate(m.lastAssistantTextLocked())
			m.persistLocked()
		}
		update := m.updateLocked()
		m.mu.Unlock()

		m.notify(update)
	}
}

// appendNotice lands a terminal assistant message carrying an error notice
func (m *Manager) appendNotice(notice string) {
	msg := types.Message{
		ID:        id.NewMessageID(),
		Role:      types.RoleAssistant,
		Content:   notice,
		CreatedAt: m.now(),
	}

	m.mu.Lock()
	m.messages = append(m.messages, msg)
	m.suggestions = m.suggester.Generate(m.lastAssistantTextLocked())
	m.persistLocked()
	update := m.updateLocked()
	m.mu.Unlock()
	m.notify(update)
}

// Messages returns a copy of the ordered message list
func (m *Manager) Messages() []types.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]types.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Suggestions returns the current follow-up prompts
func (m *Manager) Suggestions() types.SuggestionSet {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(types.SuggestionSet, len(m.suggestions))
	copy(out, m.suggestions)
	return out
}

// SessionID returns the session's identity
func (m *Manager) SessionID() id.SessionID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// Clear wipes the session and its snapshot (the panel's "new chat" action)
func (m *Manager) Clear() {
	m.streams.CancelActive()

	m.mu.Lock()
	m.sessionID = id.NewSessionID()
	m.messages = nil
	m.suggestions = m.suggester.Generate("")
	m.store.Remove(store.KeyChatHistory)
	update := m.updateLocked()
	m.mu.Unlock()
	m.notify(update)

	m.log.Info("session cleared", zap.String("session_id", m.sessionID.String()))
}

// Stats reports session state for the health endpoint
type Stats struct {
	SessionID    string `json:"session_id"`
	MessageCount int    `json:"message_count"`
	Streaming    bool   `json:"streaming"`
	InFlight     bool   `json:"in_flight"`
}

// Stats returns a point-in-time view of the session
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	streaming := false
	for i := range m.messages {
		if m.messages[i].Streaming {
			streaming = true
			break
		}
	}

	return Stats{
		SessionID:    m.sessionID.String(),
		MessageCount: len(m.messages),
		Streaming:    streaming,
		InFlight:     m.inFlight,
	}
}

// Subscribe registers a listener for message-list changes. The returned
// function unsubscribes it.
func (m *Manager) Subscribe(fn Listener) func() {
	m.listenerMu.Lock()
	defer m.listenerMu.Unlock()

	idx := m.nextListen
	m.nextListen++
	m.listeners[idx] = fn

	return func() {
		m.listenerMu.Lock()
		defer m.listenerMu.Unlock()
		delete(m.listeners, idx)
	}
}

// notify fans an update out to listeners, outside the session lock
func (m *Manager) notify(update types.ChatUpdate) {
	m.listenerMu.Lock()
	fns := make([]Listener, 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.listenerMu.Unlock()

	for _, fn := range fns {
		fn(update)
	}
}

// persistLocked writes the snapshot. Only called at rest: after a user
// append (any active stream was cancelled first) or a stream completion.
func (m *Manager) persistLocked() {
	snap := types.Snapshot{
		SessionID: m.sessionID,
		Messages:  m.messages,
		SavedAt:   m.now(),
	}
	store.Set(m.store, store.KeyChatHistory, snap)
	if m.metrics != nil {
		m.metrics.SnapshotsSaved.Inc()
	}
}

// updateLocked builds the renderer payload
func (m *Manager) updateLocked() types.ChatUpdate {
	msgs := make([]types.Message, len(m.messages))
	copy(msgs, m.messages)

	suggs := make(types.SuggestionSet, len(m.suggestions))
	copy(suggs, m.suggestions)

	return types.ChatUpdate{
		Type:        "chat_update",
		Messages:    msgs,
		Suggestions: suggs,
		Timestamp:   m.now().UnixMilli(),
	}
}

// historyLocked snapshots the transcript for the advisor call
func (m *Manager) historyLocked() []types.Message {
	out := make([]types.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// findLocked locates a message by ID
func (m *Manager) findLocked(msgID id.MessageID) *types.Message {
	for i := range m.messages {
		if m.messages[i].ID == msgID {
			return &m.messages[i]
		}
	}
	return nil
}

// lastAssistantTextLocked returns the newest completed assistant content
func (m *Manager) lastAssistantTextLocked() string {
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].Role == types.RoleAssistant && !m.messages[i].Streaming {
			return m.messages[i].Content
		}
	}
	return ""
}

// noticeFor maps an advisor error to its user-visible notice
func noticeFor(err error) string {
	switch {
	case errors.Is(err, advisor.ErrTimeout):
		return noticeTimeout
	case errors.Is(err, advisor.ErrUnavailable):
		return noticeUnavailable
	default:
		return noticeGeneric
	}
}
