package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/samber/lo"
	"github.com/vcscsvcscs/medassist/internal/service"
	"github.com/vcscsvcscs/medassist/pkg/model"
	"go.uber.org/zap"
)

var (
	// ErrSessionNotFound is returned when no session has the requested id
	ErrSessionNotFound = errors.New("session not found")
	// ErrBusy is returned when a message is sent while a reply is pending
	ErrBusy = errors.New("a reply is already pending for this session")
	// ErrEmptyMessage is returned when a message has neither text nor image
	ErrEmptyMessage = errors.New("message must contain text or an image")
)

// Greetings that open every new session
const (
	ChatGreeting    = "Hello! I'm your medical assistant. How can I help you today?"
	TherapyGreeting = "Hi, I'm here to listen. How are you feeling today?"
)

const titleLimit = 30

// Store persists the whole session list
type Store interface {
	Load(ctx context.Context) []model.Session
	Store(ctx context.Context, sessions []model.Session) error
}

// ImageUploader stores images attached to messages and returns a reference
type ImageUploader interface {
	UploadImage(ctx context.Context, name string, data []byte, mimeType string) (string, error)
}

// ReplyFunc produces the assistant reply for a new user message.
// history holds the messages that came before it.
type ReplyFunc func(ctx context.Context, history []model.Message, text string, image *service.Blob) (string, error)

// Manager owns one kind of session list: create, activate, append and delete.
// The active session always exists once Resume or Create has been called.
type Manager struct {
	kind     model.SessionKind
	store    Store
	reply    ReplyFunc
	images   ImageUploader
	mu       sync.Mutex
	loaded   bool
	sessions []model.Session
	activeID string
	pending  map[string]bool
	now      func() time.Time
	logger   *zap.Logger
}

// NewManager creates a session manager. images may be nil, in which case
// attached images are sent to the model but not kept.
func NewManager(kind model.SessionKind, store Store, reply ReplyFunc, images ImageUploader, logger *zap.Logger) *Manager {
	return &Manager{
		kind:    kind,
		store:   store,
		reply:   reply,
		images:  images,
		pending: make(map[string]bool),
		now:     func() time.Time { return time.Now().UTC() },
		logger:  logger.With(zap.String("session_kind", string(kind))),
	}
}

// Kind returns the kind of sessions the manager owns
func (m *Manager) Kind() model.SessionKind {
	return m.kind
}

func (m *Manager) greeting() string {
	if m.kind == model.SessionKindTherapy {
		return TherapyGreeting
	}
	return ChatGreeting
}

func (m *Manager) defaultTitle() string {
	if m.kind == model.SessionKindTherapy {
		return "New Session"
	}
	return "New Chat"
}

// ensureLoaded reads the persisted list once. Must hold m.mu.
func (m *Manager) ensureLoaded(ctx context.Context) {
	if m.loaded {
		return
	}
	m.sessions = m.store.Load(ctx)
	m.loaded = true
}

// commit persists next and only then makes it the in-memory list. On failure
// the in-memory list is left untouched. Must hold m.mu.
func (m *Manager) commit(ctx context.Context, next []model.Session) error {
	if err := m.store.Store(ctx, next); err != nil {
		m.logger.Error("failed to persist sessions", zap.Error(err))
		return fmt.Errorf("failed to persist sessions: %w", err)
	}
	m.sessions = next
	return nil
}

// withSession returns a copy of the list with the session at idx replaced
func (m *Manager) withSession(idx int, s model.Session) []model.Session {
	next := slices.Clone(m.sessions)
	next[idx] = s
	return next
}

func (m *Manager) indexOf(id string) int {
	_, idx, ok := lo.FindIndexOf(m.sessions, func(s model.Session) bool { return s.ID == id })
	if !ok {
		return -1
	}
	return idx
}

func cloneSession(s model.Session) model.Session {
	s.Messages = append([]model.Message(nil), s.Messages...)
	return s
}

// List returns the sessions, newest first
func (m *Manager) List(ctx context.Context) []model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureLoaded(ctx)

	return lo.Map(m.sessions, func(s model.Session, _ int) model.Session { return cloneSession(s) })
}

// ActiveID returns the id of the active session, or "" if none is active
func (m *Manager) ActiveID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeID
}

// Pending reports whether a reply is awaited for the session
func (m *Manager) Pending(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending[id]
}

// Get returns the session with the given id
func (m *Manager) Get(ctx context.Context, id string) (model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureLoaded(ctx)

	idx := m.indexOf(id)
	if idx < 0 {
		return model.Session{}, ErrSessionNotFound
	}
	return cloneSession(m.sessions[idx]), nil
}

// Resume returns the active session. With none active it selects the most
// recent session, creating one if the list is empty.
func (m *Manager) Resume(ctx context.Context) (model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureLoaded(ctx)

	if idx := m.indexOf(m.activeID); idx >= 0 {
		return cloneSession(m.sessions[idx]), nil
	}
	return m.selectMostRecentOrCreate(ctx)
}

// Create starts a new session holding only the greeting and makes it active
func (m *Manager) Create(ctx context.Context) (model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureLoaded(ctx)

	return m.create(ctx)
}

func (m *Manager) create(ctx context.Context) (model.Session, error) {
	now := m.now()
	s := model.Session{
		ID:    ulid.Make().String(),
		Kind:  m.kind,
		Title: m.defaultTitle(),
		Messages: []model.Message{{
			Role:      model.RoleAssistant,
			Text:      m.greeting(),
			Timestamp: now,
		}},
		Timestamp: now,
	}

	if err := m.commit(ctx, append([]model.Session{s}, m.sessions...)); err != nil {
		return model.Session{}, err
	}
	m.activeID = s.ID

	m.logger.Info("session created", zap.String("session_id", s.ID))
	return cloneSession(s), nil
}

func (m *Manager) selectMostRecentOrCreate(ctx context.Context) (model.Session, error) {
	if len(m.sessions) == 0 {
		return m.create(ctx)
	}
	recent := lo.MaxBy(m.sessions, func(a, b model.Session) bool { return a.Timestamp.After(b.Timestamp) })
	m.activeID = recent.ID
	return cloneSession(recent), nil
}

// Activate makes the session with the given id active
func (m *Manager) Activate(ctx context.Context, id string) (model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureLoaded(ctx)

	idx := m.indexOf(id)
	if idx < 0 {
		return model.Session{}, ErrSessionNotFound
	}
	m.activeID = id
	return cloneSession(m.sessions[idx]), nil
}

// Delete removes a session and returns the session that is active afterwards.
// Deleting the active session selects the most recent remaining one, or a
// fresh session when none remain.
func (m *Manager) Delete(ctx context.Context, id string) (model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureLoaded(ctx)

	idx := m.indexOf(id)
	if idx < 0 {
		return model.Session{}, ErrSessionNotFound
	}

	next := slices.Delete(slices.Clone(m.sessions), idx, idx+1)
	if err := m.commit(ctx, next); err != nil {
		return model.Session{}, err
	}
	delete(m.pending, id)

	m.logger.Info("session deleted", zap.String("session_id", id))

	if m.activeID == id {
		m.activeID = ""
	}
	if active := m.indexOf(m.activeID); active >= 0 {
		return cloneSession(m.sessions[active]), nil
	}
	return m.selectMostRecentOrCreate(ctx)
}

// Send appends a user message, waits for the reply and appends it. Only one
// reply may be pending per session. A reply for a session deleted in the
// meantime is discarded.
func (m *Manager) Send(ctx context.Context, id, text string, image *service.Blob) (model.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" && (image == nil || len(image.Data) == 0) {
		return model.Message{}, ErrEmptyMessage
	}

	history, err := m.appendUserMessage(ctx, id, text, image)
	if err != nil {
		return model.Message{}, err
	}

	replyText, replyErr := m.reply(ctx, history, text, image)

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, id)

	if replyErr != nil {
		m.logger.Warn("no reply for session message",
			zap.String("session_id", id),
			zap.Error(replyErr),
		)
		return model.Message{}, replyErr
	}

	idx := m.indexOf(id)
	if idx < 0 {
		m.logger.Info("discarding reply for deleted session", zap.String("session_id", id))
		return model.Message{}, ErrSessionNotFound
	}

	msg := model.Message{Role: model.RoleAssistant, Text: replyText, Timestamp: m.now()}
	s := cloneSession(m.sessions[idx])
	s.Messages = append(s.Messages, msg)
	s.Timestamp = msg.Timestamp

	if err := m.commit(ctx, m.withSession(idx, s)); err != nil {
		return model.Message{}, err
	}
	return msg, nil
}

func (m *Manager) appendUserMessage(ctx context.Context, id, text string, image *service.Blob) ([]model.Message, error) {
	var imageRef *string
	if image != nil && len(image.Data) > 0 && m.images != nil {
		ref, err := m.images.UploadImage(ctx, ulid.Make().String(), image.Data, image.MIMEType)
		if err != nil {
			// the image still reaches the model; only the stored copy is lost
			m.logger.Warn("failed to store message image", zap.String("session_id", id), zap.Error(err))
		} else {
			imageRef = &ref
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureLoaded(ctx)

	idx := m.indexOf(id)
	if idx < 0 {
		return nil, ErrSessionNotFound
	}
	if m.pending[id] {
		return nil, ErrBusy
	}

	s := cloneSession(m.sessions[idx])
	history := append([]model.Message(nil), s.Messages...)

	if !lo.ContainsBy(s.Messages, func(msg model.Message) bool { return msg.Role == model.RoleUser }) && text != "" {
		s.Title = Title(text)
	}

	msg := model.Message{Role: model.RoleUser, Text: text, ImageRef: imageRef, Timestamp: m.now()}
	s.Messages = append(s.Messages, msg)
	s.Timestamp = msg.Timestamp

	if err := m.commit(ctx, m.withSession(idx, s)); err != nil {
		return nil, err
	}

	m.pending[id] = true
	return history, nil
}

// Title derives a session title from the first user message
func Title(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= titleLimit {
		return text
	}
	runes := []rune(text)
	return string(runes[:titleLimit]) + "..."
}
