package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/planpocket/planpocket/planpocket-backend/internal/auth"
	"github.com/planpocket/planpocket/planpocket-backend/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockTokenValidator is a test double for access token validation
type mockTokenValidator struct {
	userID uuid.UUID
	err    error
}

func (m *mockTokenValidator) Validate(ctx context.Context, token string) (*auth.Identity, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &auth.Identity{UserID: m.userID, Email: "asha@example.com"}, nil
}

var testAllowedOrigins = []string{"http://localhost:3000", "https://planpocket.app"}

func TestWebSocketHandler_HandleWS_MissingToken(t *testing.T) {
	e := echo.New()
	hub := websocket.NewHub()
	validator := &mockTokenValidator{userID: uuid.New()}
	h := NewWebSocketHandler(hub, validator, testAllowedOrigins)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.HandleWS(c)

	assert.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestWebSocketHandler_HandleWS_InvalidToken(t *testing.T) {
	e := echo.New()
	hub := websocket.NewHub()
	validator := &mockTokenValidator{err: errors.New("token expired")}
	h := NewWebSocketHandler(hub, validator, testAllowedOrigins)

	req := httptest.NewRequest(http.MethodGet, "/ws?token=invalid-jwt", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.HandleWS(c)

	assert.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestWebSocketHandler_HandleWS_ValidToken_NoUpgrade(t *testing.T) {
	e := echo.New()
	hub := websocket.NewHub()
	validator := &mockTokenValidator{userID: uuid.New()}
	h := NewWebSocketHandler(hub, validator, testAllowedOrigins)

	// Valid token, but the request carries no upgrade headers
	req := httptest.NewRequest(http.MethodGet, "/ws?token=valid-jwt", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.HandleWS(c)

	assert.Error(t, err)
	_, isHTTPError := err.(*echo.HTTPError)
	assert.False(t, isHTTPError)
	assert.Equal(t, 0, hub.TotalClientCount())
}

func TestWebSocketHandler_CheckOrigin(t *testing.T) {
	hub := websocket.NewHub()
	validator := &mockTokenValidator{userID: uuid.New()}
	h := NewWebSocketHandler(hub, validator, testAllowedOrigins)

	tests := []struct {
		name     string
		origin   string
		expected bool
	}{
		{"allowed origin", "http://localhost:3000", true},
		{"allowed origin https", "https://planpocket.app", true},
		{"disallowed origin", "https://evil.com", false},
		{"empty origin (non-browser)", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			result := h.checkOrigin(req)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestWebSocketHandler_HandleWS_ReceivesUserEvents(t *testing.T) {
	userID := uuid.New()
	hub := websocket.NewHub()
	defer hub.CloseAll()
	h := NewWebSocketHandler(hub, &mockTokenValidator{userID: userID}, testAllowedOrigins)

	e := echo.New()
	e.GET("/ws", h.HandleWS)
	server := httptest.NewServer(e)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=valid-jwt"
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount(userID) == 1 }, time.Second, 10*time.Millisecond)

	// Another user's events never reach this connection
	hub.Publish(uuid.New(), websocket.LoanDeleted(map[string]int{"id": 1}))
	hub.Publish(userID, websocket.TransactionCreated(map[string]int{"id": 7}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event websocket.Event
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "transaction.created", event.Type)
	assert.Equal(t, websocket.EntityTypeTransaction, event.Entity)
}
