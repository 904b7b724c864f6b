package handlers

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"
	"time"

	telegram "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type sentRequest struct {
	path        string
	contentType string
	body        []byte
}

// mockClient records every Bot API call and answers with an empty success.
type mockClient struct {
	requests []sentRequest
}

func newMockClient() *mockClient {
	return &mockClient{}
}

func (m *mockClient) Do(req *http.Request) (*http.Response, error) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	req.Body.Close()
	m.requests = append(m.requests, sentRequest{
		path:        req.URL.Path,
		contentType: req.Header.Get("Content-Type"),
		body:        body,
	})
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(`{"ok":true,"result":{}}`)),
		Header:     make(http.Header),
	}, nil
}

func (m *mockClient) lastMessageText(t *testing.T) string {
	t.Helper()
	return m.lastField(t, "text")
}

// lastField returns a form field of the most recent request.
func (m *mockClient) lastField(t *testing.T, name string) string {
	t.Helper()
	if len(m.requests) == 0 {
		t.Fatalf("expected at least one recorded request")
	}
	req := m.requests[len(m.requests)-1]

	mediaType, params, err := mime.ParseMediaType(req.contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		t.Fatalf("unexpected content type %q: %v", req.contentType, err)
	}
	reader := multipart.NewReader(bytes.NewReader(req.body), params["boundary"])
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("failed to read multipart part: %v", err)
		}
		if part.FormName() == name {
			data, err := io.ReadAll(part)
			if err != nil {
				t.Fatalf("failed to read field %q: %v", name, err)
			}
			return string(data)
		}
	}
	t.Fatalf("field %q not found in request", name)
	return ""
}

func newTestTelegramBot(t *testing.T, client *mockClient, opts ...telegram.Option) *telegram.Bot {
	t.Helper()
	opts = append(opts,
		telegram.WithSkipGetMe(),
		telegram.WithHTTPClient(time.Second, client),
	)
	b, err := telegram.New("test-token", opts...)
	if err != nil {
		t.Fatalf("failed to create test bot: %v", err)
	}
	return b
}

func newTestUpdate(text string, userID int64) *models.Update {
	return &models.Update{
		Message: &models.Message{
			From: &models.User{ID: userID},
			Chat: models.Chat{ID: userID, Type: models.ChatTypePrivate},
			Text: text,
		},
	}
}
