package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"

	"github.com/fridayhq/friday/internal/assistant"
	"github.com/fridayhq/friday/internal/convo"
	"github.com/fridayhq/friday/internal/store"
	"github.com/fridayhq/friday/models"
)

var testSecret = []byte("test-secret")

func TestWithAuth(t *testing.T) {
	e := echo.New()
	handler := withAuth(func(c echo.Context) error {
		return c.String(http.StatusOK, userID(c))
	}, testSecret)

	// Missing token.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	err := handler(e.NewContext(req, rec))
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing token, got %v", err)
	}

	// Garbage token.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	err = handler(e.NewContext(req, rec))
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid token, got %v", err)
	}

	// Valid bearer token.
	tok, err := SignJWT("user-42", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	if err := handler(e.NewContext(req, rec)); err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}
	if rec.Body.String() != "user-42" {
		t.Fatalf("subject not propagated, got %q", rec.Body.String())
	}

	// Cookie flow.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "auth", Value: tok})
	rec = httptest.NewRecorder()
	if err := handler(e.NewContext(req, rec)); err != nil {
		t.Fatalf("cookie token rejected: %v", err)
	}
}

type stubAnswerer struct {
	reply string
	err   error
}

func (s stubAnswerer) Answer(ctx context.Context, meeting *models.Meeting, query string) (string, error) {
	return s.reply, s.err
}

func chatContext(t *testing.T, mock sqlmock.Sqlmock, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	mock.ExpectQuery(`SELECT .* FROM meetings`).
		WithArgs("meet-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "meeting_date", "meeting_time", "meeting_link", "drive_folder_link", "created_at"}).
			AddRow("meet-1", "user-1", "2026-03-04", "10:00", "", "", time.Now()))

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/meetings/meet-1/chat", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("meet-1")
	c.Set("user_id", "user-1")
	return c, rec
}

func newChatHandler(t *testing.T, a Answerer) (*ChatHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &ChatHandler{Store: &store.Store{DB: db}, Assistant: a, Conversations: convo.NewManager()}, mock
}

func TestChatOK(t *testing.T) {
	h, mock := newChatHandler(t, stubAnswerer{reply: "the answer"})
	c, rec := chatContext(t, mock, `{"query":"what was decided"}`)
	if err := h.chat(c); err != nil {
		t.Fatalf("chat: %v", err)
	}
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "the answer") {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestChatBusyMapsToConflict(t *testing.T) {
	h, mock := newChatHandler(t, stubAnswerer{err: assistant.ErrBusy})
	c, _ := chatContext(t, mock, `{"query":"question"}`)
	err := h.chat(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %v", err)
	}
}

func TestChatEmptyQueryMapsToBadRequest(t *testing.T) {
	h, mock := newChatHandler(t, stubAnswerer{err: assistant.ErrEmptyQuery})
	c, _ := chatContext(t, mock, `{"query":""}`)
	err := h.chat(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestChatUnknownMeeting(t *testing.T) {
	h, mock := newChatHandler(t, stubAnswerer{reply: "x"})
	mock.ExpectQuery(`SELECT .* FROM meetings`).
		WithArgs("missing", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "meeting_date", "meeting_time", "meeting_link", "drive_folder_link", "created_at"}))

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/meetings/missing/chat", strings.NewReader(`{"query":"q"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("missing")
	c.Set("user_id", "user-1")

	err := h.chat(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}
