package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	telegram "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/sprachninja/pkg/app"
	"github.com/smith3v/sprachninja/pkg/bot/onboarding"
	"github.com/smith3v/sprachninja/pkg/config"
	"github.com/smith3v/sprachninja/pkg/internal/testutil"
	"github.com/smith3v/sprachninja/pkg/logger"
)

type recordedRequest struct {
	path        string
	method      string
	contentType string
	body        []byte
}

type mockClient struct {
	mu       sync.Mutex
	requests []recordedRequest
	response string
}

func newMockClient() *mockClient {
	return &mockClient{
		response: `{"ok":true,"result":{"message_id":77}}`,
	}
}

func (m *mockClient) Do(req *http.Request) (*http.Response, error) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if err := req.Body.Close(); err != nil {
		return nil, fmt.Errorf("failed to close request body: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, recordedRequest{
		path:        req.URL.Path,
		method:      req.Method,
		contentType: req.Header.Get("Content-Type"),
		body:        body,
	})

	resp := &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(m.response)),
		Header:     make(http.Header),
	}
	return resp, nil
}

func (m *mockClient) lastMessageText(t *testing.T) string {
	t.Helper()
	texts := m.messageTexts(t)
	if len(texts) == 0 {
		t.Fatalf("expected at least one request with text")
	}
	return texts[len(texts)-1]
}

// messageTexts returns every non-empty text field, oldest first.
func (m *mockClient) messageTexts(t *testing.T) []string {
	t.Helper()
	var texts []string
	for _, req := range m.requests {
		if text, ok := multipartField(t, req, "text"); ok && text != "" {
			texts = append(texts, text)
		}
	}
	return texts
}

func (m *mockClient) lastMultipartField(t *testing.T, fieldName string) string {
	t.Helper()
	for i := len(m.requests) - 1; i >= 0; i-- {
		if value, ok := multipartField(t, m.requests[i], fieldName); ok {
			return value
		}
	}
	t.Fatalf("field %q not found in any request", fieldName)
	return ""
}

func (m *mockClient) calledMethod(method string) bool {
	for _, req := range m.requests {
		if strings.HasSuffix(req.path, "/"+method) {
			return true
		}
	}
	return false
}

func multipartField(t *testing.T, req recordedRequest, fieldName string) (string, bool) {
	t.Helper()
	mediaType, params, err := mime.ParseMediaType(req.contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return "", false
	}

	reader := multipart.NewReader(bytes.NewReader(req.body), params["boundary"])
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return "", false
		}
		if err != nil {
			t.Fatalf("failed to read multipart part: %v", err)
		}
		if part.FormName() == fieldName {
			data, err := io.ReadAll(part)
			if err != nil {
				t.Fatalf("failed to read multipart field: %v", err)
			}
			return string(data), true
		}
	}
}

func newTestTelegramBot(t *testing.T, client *mockClient) *telegram.Bot {
	t.Helper()
	b, err := telegram.New("test-token",
		telegram.WithSkipGetMe(),
		telegram.WithHTTPClient(time.Second, client),
	)
	if err != nil {
		t.Fatalf("failed to create test bot: %v", err)
	}
	return b
}

func newTestUpdate(text string, userID int64) *models.Update {
	return &models.Update{
		Message: &models.Message{
			ID: 5,
			From: &models.User{
				ID: userID,
			},
			Chat: models.Chat{
				ID:   userID,
				Type: models.ChatTypePrivate,
			},
			Text: text,
		},
	}
}

func newTestCallbackUpdate(data string, userID, chatID int64, messageID int) *models.Update {
	return &models.Update{
		CallbackQuery: &models.CallbackQuery{
			ID:   "callback-1",
			From: models.User{ID: userID},
			Data: data,
			Message: models.MaybeInaccessibleMessage{
				Type: models.MaybeInaccessibleMessageTypeMessage,
				Message: &models.Message{
					ID: messageID,
					Chat: models.Chat{
						ID:   chatID,
						Type: models.ChatTypePrivate,
					},
				},
			},
		},
	}
}

// geminiStub answers generateContent calls with scripted candidate texts.
type geminiStub struct {
	mu      sync.Mutex
	replies []string
	calls   int
}

func (g *geminiStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.calls >= len(g.replies) {
		http.Error(w, `{"error":{"message":"no scripted reply"}}`, http.StatusInternalServerError)
		return
	}
	text := g.replies[g.calls]
	g.calls++

	payload, _ := json.Marshal(text)
	fmt.Fprintf(w, `{"candidates":[{"content":{"parts":[{"text":%s}]}}]}`, payload)
}

func (g *geminiStub) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestHandlers(t *testing.T, stub *geminiStub, opts ...Option) (*Handlers, *app.App) {
	t.Helper()
	logger.SetLogLevel(logger.ERROR)

	server := httptest.NewServer(stub)
	t.Cleanup(server.Close)

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Secure.SettingsFile = filepath.Join(dir, "settings.enc")
	cfg.Secure.KeyFile = filepath.Join(dir, "settings.key")
	cfg.Gemini.BaseURL = server.URL

	clock := func() time.Time { return testNow }
	a, err := app.New(testutil.SetupTestDB(t), cfg, app.WithClock(clock))
	if err != nil {
		t.Fatalf("failed to build app: %v", err)
	}

	opts = append([]Option{WithClock(clock)}, opts...)
	return New(a, onboarding.NewManager(clock), opts...), a
}
