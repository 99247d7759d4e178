package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vcscsvcscs/medassist/internal/repository"
	"github.com/vcscsvcscs/medassist/internal/service"
	"github.com/vcscsvcscs/medassist/internal/storage"
	"github.com/vcscsvcscs/medassist/pkg/model"
	"go.uber.org/zap"
)

func echoReply(ctx context.Context, history []model.Message, text string, image *service.Blob) (string, error) {
	return "echo: " + text, nil
}

func newTestManager(t *testing.T, kind model.SessionKind, reply ReplyFunc) (*Manager, *repository.SessionRepository) {
	t.Helper()
	repo := repository.NewSessionRepository(storage.NewMemoryStore(), kind, zap.NewNop())
	m := NewManager(kind, repo, reply, nil, zap.NewNop())

	// strictly increasing timestamps keep "most recent" deterministic
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	tick := 0
	m.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return m, repo
}

func TestManager_ResumeCreatesFirstSession(t *testing.T) {
	ctx := context.Background()
	m, repo := newTestManager(t, model.SessionKindChat, echoReply)

	s, err := m.Resume(ctx)
	require.NoError(t, err)

	assert.Equal(t, s.ID, m.ActiveID())
	assert.Equal(t, "New Chat", s.Title)
	require.Len(t, s.Messages, 1)
	assert.Equal(t, model.RoleAssistant, s.Messages[0].Role)
	assert.Equal(t, ChatGreeting, s.Messages[0].Text)
	assert.Len(t, repo.Load(ctx), 1, "new session is persisted")

	again, err := m.Resume(ctx)
	require.NoError(t, err)
	assert.Equal(t, s.ID, again.ID)
}

func TestManager_ResumeSelectsMostRecentStoredSession(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewSessionRepository(storage.NewMemoryStore(), model.SessionKindTherapy, zap.NewNop())
	now := time.Now().UTC()
	require.NoError(t, repo.Store(ctx, []model.Session{
		{ID: "old", Kind: model.SessionKindTherapy, Timestamp: now.Add(-time.Hour)},
		{ID: "recent", Kind: model.SessionKindTherapy, Timestamp: now},
	}))

	m := NewManager(model.SessionKindTherapy, repo, echoReply, nil, zap.NewNop())
	s, err := m.Resume(ctx)

	require.NoError(t, err)
	assert.Equal(t, "recent", s.ID)
}

func TestManager_TherapyGreeting(t *testing.T) {
	m, _ := newTestManager(t, model.SessionKindTherapy, echoReply)
	s, err := m.Create(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TherapyGreeting, s.Messages[0].Text)
	assert.Equal(t, "New Session", s.Title)
}

func TestManager_SendAppendsAndTitles(t *testing.T) {
	ctx := context.Background()
	var gotHistory []model.Message
	m, repo := newTestManager(t, model.SessionKindChat, func(ctx context.Context, history []model.Message, text string, image *service.Blob) (string, error) {
		gotHistory = history
		return "Rest and drink fluids.", nil
	})

	s, err := m.Create(ctx)
	require.NoError(t, err)

	reply, err := m.Send(ctx, s.ID, "I have had a sore throat and mild fever since Tuesday", nil)
	require.NoError(t, err)
	assert.Equal(t, "Rest and drink fluids.", reply.Text)
	assert.Equal(t, model.RoleAssistant, reply.Role)

	require.Len(t, gotHistory, 1, "history excludes the new message")

	stored := repo.Load(ctx)
	require.Len(t, stored, 1)
	assert.Len(t, stored[0].Messages, 3)
	assert.Equal(t, "I have had a sore throat and m...", stored[0].Title)

	// later messages do not change the title
	_, err = m.Send(ctx, s.ID, "Should I worry?", nil)
	require.NoError(t, err)
	got, _ := m.Get(ctx, s.ID)
	assert.Equal(t, "I have had a sore throat and m...", got.Title)
	assert.Len(t, got.Messages, 5)
}

func TestManager_SendRejectsEmptyAndUnknown(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, model.SessionKindChat, echoReply)
	s, _ := m.Create(ctx)

	_, err := m.Send(ctx, s.ID, "   ", nil)
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = m.Send(ctx, "missing", "hello", nil)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_SendFailureKeepsUserMessage(t *testing.T) {
	ctx := context.Background()
	replyErr := errors.New("quota")
	m, _ := newTestManager(t, model.SessionKindChat, func(ctx context.Context, history []model.Message, text string, image *service.Blob) (string, error) {
		return "", replyErr
	})
	s, _ := m.Create(ctx)

	_, err := m.Send(ctx, s.ID, "hello", nil)
	assert.ErrorIs(t, err, replyErr)

	got, _ := m.Get(ctx, s.ID)
	assert.Len(t, got.Messages, 2)
	assert.False(t, m.Pending(s.ID))
}

func TestManager_DuplicateSendWhilePending(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	started := make(chan struct{})
	m, _ := newTestManager(t, model.SessionKindChat, func(ctx context.Context, history []model.Message, text string, image *service.Blob) (string, error) {
		close(started)
		<-release
		return "done", nil
	})
	s, _ := m.Create(ctx)

	errCh := make(chan error, 1)
	go func() {
		_, err := m.Send(ctx, s.ID, "first", nil)
		errCh <- err
	}()

	<-started
	assert.True(t, m.Pending(s.ID))
	_, err := m.Send(ctx, s.ID, "second", nil)
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	require.NoError(t, <-errCh)
	assert.False(t, m.Pending(s.ID))
}

func TestManager_DeleteOnlySessionCreatesFreshOne(t *testing.T) {
	ctx := context.Background()
	m, repo := newTestManager(t, model.SessionKindChat, echoReply)
	s, _ := m.Create(ctx)
	_, err := m.Send(ctx, s.ID, "hello", nil)
	require.NoError(t, err)

	active, err := m.Delete(ctx, s.ID)
	require.NoError(t, err)

	assert.NotEqual(t, s.ID, active.ID)
	assert.Equal(t, active.ID, m.ActiveID())
	require.Len(t, active.Messages, 1)
	assert.Equal(t, ChatGreeting, active.Messages[0].Text)
	assert.Len(t, repo.Load(ctx), 1)
}

func TestManager_DeleteActiveSelectsMostRecent(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, model.SessionKindChat, echoReply)

	a, _ := m.Create(ctx)
	b, _ := m.Create(ctx)
	c, _ := m.Create(ctx)

	// touching a makes it the most recent
	_, err := m.Send(ctx, a.ID, "bump", nil)
	require.NoError(t, err)

	_, err = m.Activate(ctx, c.ID)
	require.NoError(t, err)

	active, err := m.Delete(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, active.ID)

	// deleting an inactive session leaves the active one alone
	active, err = m.Delete(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, active.ID)

	_, err = m.Delete(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_ReplyForDeletedSessionIsDiscarded(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	started := make(chan struct{})
	m, repo := newTestManager(t, model.SessionKindChat, func(ctx context.Context, history []model.Message, text string, image *service.Blob) (string, error) {
		close(started)
		<-release
		return "late", nil
	})
	s, _ := m.Create(ctx)

	errCh := make(chan error, 1)
	go func() {
		_, err := m.Send(ctx, s.ID, "hello", nil)
		errCh <- err
	}()

	<-started
	_, err := m.Delete(ctx, s.ID)
	require.NoError(t, err)
	close(release)

	assert.ErrorIs(t, <-errCh, ErrSessionNotFound)
	for _, stored := range repo.Load(ctx) {
		for _, msg := range stored.Messages {
			assert.NotEqual(t, "late", msg.Text)
		}
	}
}

type recordingUploader struct {
	mimeType string
}

func (u *recordingUploader) UploadImage(ctx context.Context, name string, data []byte, mimeType string) (string, error) {
	u.mimeType = mimeType
	return "images/" + name, nil
}

func TestManager_SendStoresImageReference(t *testing.T) {
	ctx := context.Background()
	uploader := &recordingUploader{}
	repo := repository.NewSessionRepository(storage.NewMemoryStore(), model.SessionKindChat, zap.NewNop())
	var gotImage *service.Blob
	m := NewManager(model.SessionKindChat, repo, func(ctx context.Context, history []model.Message, text string, image *service.Blob) (string, error) {
		gotImage = image
		return "Looks like a mild rash.", nil
	}, uploader, zap.NewNop())

	s, _ := m.Create(ctx)
	_, err := m.Send(ctx, s.ID, "", &service.Blob{Data: []byte{1, 2, 3}, MIMEType: "image/png"})
	require.NoError(t, err)

	require.NotNil(t, gotImage)
	assert.Equal(t, "image/png", uploader.mimeType)
	got, _ := m.Get(ctx, s.ID)
	require.NotNil(t, got.Messages[1].ImageRef)
	assert.True(t, strings.HasPrefix(*got.Messages[1].ImageRef, "images/"))
	assert.Equal(t, "New Chat", got.Title, "image-only message keeps the default title")
}

func TestManager_ConcurrentSendsToDifferentSessions(t *testing.T) {
	ctx := context.Background()
	m, repo := newTestManager(t, model.SessionKindChat, echoReply)

	ids := make([]string, 5)
	for i := range ids {
		s, err := m.Create(ctx)
		require.NoError(t, err)
		ids[i] = s.ID
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for j := 0; j < 3; j++ {
				_, err := m.Send(ctx, id, "ping", nil)
				assert.NoError(t, err)
			}
		}(id)
	}
	wg.Wait()

	for _, s := range repo.Load(ctx) {
		assert.Len(t, s.Messages, 7, "greeting plus three exchanges")
	}
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Short question", Title("  Short   question "))
	assert.Equal(t, strings.Repeat("a", 30), Title(strings.Repeat("a", 30)))
	assert.Equal(t, strings.Repeat("é", 30)+"...", Title(strings.Repeat("é", 31)))
}

// Property: after any sequence of creates and deletes, the active session exists.
func TestManager_ActiveAlwaysExistsProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("active id always refers to a stored session", prop.ForAll(
		func(ops []int) bool {
			ctx := context.Background()
			m, _ := newTestManager(t, model.SessionKindChat, echoReply)
			if _, err := m.Resume(ctx); err != nil {
				return false
			}

			for _, op := range ops {
				sessions := m.List(ctx)
				if op%3 == 0 {
					if _, err := m.Create(ctx); err != nil {
						return false
					}
					continue
				}
				target := sessions[op%len(sessions)]
				if _, err := m.Delete(ctx, target.ID); err != nil {
					return false
				}
			}

			_, err := m.Get(ctx, m.ActiveID())
			return err == nil && len(m.List(ctx)) > 0
		},
		gen.SliceOf(gen.IntRange(0, 50)),
	))

	properties.TestingRun(t)
}

// toggleStore wraps a session store whose writes can be switched off
type toggleStore struct {
	inner Store
	mu    sync.Mutex
	fail  bool
}

func (s *toggleStore) Load(ctx context.Context) []model.Session {
	return s.inner.Load(ctx)
}

func (s *toggleStore) setFail(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

func (s *toggleStore) Store(ctx context.Context, sessions []model.Session) error {
	s.mu.Lock()
	fail := s.fail
	s.mu.Unlock()
	if fail {
		return errors.New("database is locked")
	}
	return s.inner.Store(ctx, sessions)
}

func newToggleManager(t *testing.T) (*Manager, *toggleStore, *repository.SessionRepository) {
	t.Helper()
	repo := repository.NewSessionRepository(storage.NewMemoryStore(), model.SessionKindChat, zap.NewNop())
	store := &toggleStore{inner: repo}
	return NewManager(model.SessionKindChat, store, echoReply, nil, zap.NewNop()), store, repo
}

func TestManager_DeleteFailureKeepsSession(t *testing.T) {
	ctx := context.Background()
	m, store, repo := newToggleManager(t)

	s, err := m.Create(ctx)
	require.NoError(t, err)

	store.setFail(true)
	_, err = m.Delete(ctx, s.ID)
	require.Error(t, err)

	assert.Equal(t, s.ID, m.ActiveID())
	got, err := m.Get(ctx, s.ID)
	require.NoError(t, err, "active session must still exist")
	assert.Equal(t, s.ID, got.ID)
	assert.Len(t, m.List(ctx), len(repo.Load(ctx)))

	store.setFail(false)
	_, err = m.Send(ctx, m.ActiveID(), "hello", nil)
	require.NoError(t, err)
}

func TestManager_SendPersistFailureLeavesNoMessage(t *testing.T) {
	ctx := context.Background()
	m, store, repo := newToggleManager(t)

	s, err := m.Create(ctx)
	require.NoError(t, err)

	store.setFail(true)
	_, err = m.Send(ctx, s.ID, "lost message", nil)
	require.Error(t, err)
	assert.False(t, m.Pending(s.ID))

	got, _ := m.Get(ctx, s.ID)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "New Chat", got.Title)

	// the next successful write must not resurrect the failed message
	store.setFail(false)
	_, err = m.Send(ctx, s.ID, "second try", nil)
	require.NoError(t, err)

	stored := repo.Load(ctx)
	require.Len(t, stored, 1)
	texts := make([]string, 0, len(stored[0].Messages))
	for _, msg := range stored[0].Messages {
		texts = append(texts, msg.Text)
	}
	assert.NotContains(t, texts, "lost message")
	assert.Equal(t, "second try", stored[0].Title)
}

func TestManager_CreateFailureKeepsPreviousActive(t *testing.T) {
	ctx := context.Background()
	m, store, _ := newToggleManager(t)

	first, err := m.Create(ctx)
	require.NoError(t, err)

	store.setFail(true)
	_, err = m.Create(ctx)
	require.Error(t, err)

	assert.Equal(t, first.ID, m.ActiveID())
	assert.Len(t, m.List(ctx), 1)
}
