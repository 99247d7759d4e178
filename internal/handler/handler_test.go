package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/vcscsvcscs/medassist/internal/audit"
	"github.com/vcscsvcscs/medassist/internal/azure"
	"github.com/vcscsvcscs/medassist/internal/credential"
	"github.com/vcscsvcscs/medassist/internal/export"
	"github.com/vcscsvcscs/medassist/internal/navigation"
	"github.com/vcscsvcscs/medassist/internal/repository"
	"github.com/vcscsvcscs/medassist/internal/service"
	"github.com/vcscsvcscs/medassist/internal/session"
	"github.com/vcscsvcscs/medassist/internal/storage"
	"github.com/vcscsvcscs/medassist/pkg/api"
	"github.com/vcscsvcscs/medassist/pkg/model"
	"go.uber.org/zap"
)

// pngBytes carries a PNG signature so content sniffing detects image/png
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)

type stubAnalyzer struct {
	result *model.AnalysisResult
	err    error
}

func (s *stubAnalyzer) Analyze(ctx context.Context, image service.Blob, modality model.Modality, profile *model.UserProfile) (*model.AnalysisResult, error) {
	return s.result, s.err
}

type stubTriager struct {
	result *model.TriageResult
	err    error
	input  model.TriageInput
}

func (s *stubTriager) Triage(ctx context.Context, input model.TriageInput) (*model.TriageResult, error) {
	s.input = input
	return s.result, s.err
}

type stubPharmacist struct {
	result *model.PharmacyResult
	err    error
}

func (s *stubPharmacist) Pharmacy(ctx context.Context, query string) (*model.PharmacyResult, error) {
	return s.result, s.err
}

type stubTranscriber struct {
	text string
	err  error
	got  service.Blob
}

func (s *stubTranscriber) Transcribe(ctx context.Context, audio service.Blob) (string, error) {
	s.got = audio
	return s.text, s.err
}

type testEnv struct {
	router      *gin.Engine
	kv          *storage.MemoryStore
	records     *repository.RecordRepository
	profiles    *repository.ProfileRepository
	images      *azure.MemoryBlobStorage
	credentials *credential.Store
	audit       *audit.Logger
	analyzer    *stubAnalyzer
	triager     *stubTriager
	pharmacist  *stubPharmacist
	transcriber *stubTranscriber
	chatReply   func() (string, error)
}

const testMaxUpload = 1024

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	env := &testEnv{
		kv:          storage.NewMemoryStore(),
		images:      azure.NewMemoryBlobStorage(logger),
		analyzer:    &stubAnalyzer{},
		triager:     &stubTriager{},
		pharmacist:  &stubPharmacist{},
		transcriber: &stubTranscriber{},
		chatReply:   func() (string, error) { return "Drink plenty of water.", nil },
	}
	env.records = repository.NewRecordRepository(env.kv, logger)
	env.profiles = repository.NewProfileRepository(env.kv, logger)
	env.credentials = credential.NewStore(env.kv, nil, nil, logger)
	env.audit = audit.NewLogger(env.kv, logger)

	controller := navigation.NewController(env.analyzer, env.triager, env.records, env.profiles, env.images, logger)
	nav := NewNavigationHandler(controller, testMaxUpload, logger)
	assistant := NewAssistantHandler(env.pharmacist, env.transcriber, testMaxUpload, logger)

	reply := func(ctx context.Context, history []model.Message, text string, image *service.Blob) (string, error) {
		return env.chatReply()
	}
	chat := NewConversationHandler(
		session.NewManager(model.SessionKindChat, repository.NewSessionRepository(env.kv, model.SessionKindChat, logger), reply, env.images, logger),
		true, testMaxUpload, logger,
	)
	therapy := NewConversationHandler(
		session.NewManager(model.SessionKindTherapy, repository.NewSessionRepository(env.kv, model.SessionKindTherapy, logger), reply, nil, logger),
		false, testMaxUpload, logger,
	)
	records := NewRecordsHandler(env.records, env.profiles, env.images, export.NewPDFGenerator(logger), export.NewRecordsWorkbook(logger), env.audit, logger)
	settings := NewSettingsHandler(env.profiles, env.credentials, env.audit, logger)

	r := gin.New()
	api.RegisterHandlers(r, &Server{
		Health:     NewHealthHandler(env.kv, "memory", env.credentials, logger),
		Navigation: nav,
		Assistant:  assistant,
		Chat:       chat,
		Therapy:    therapy,
		Records:    records,
		Settings:   settings,
	})

	env.router = r
	return env
}

func (e *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		if s, ok := body.(string); ok {
			reader = bytes.NewBufferString(s)
		} else {
			data, _ := json.Marshal(body)
			reader = bytes.NewReader(data)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) upload(path, field, filename, contentType string, data []byte, fields map[string]string) *httptest.ResponseRecorder {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, _ := mw.CreatePart(header)
	_, _ = part.Write(data)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) api.ErrorResponse {
	return decode[api.ErrorResponse](t, w)
}
