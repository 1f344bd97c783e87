package testgen

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/segmentio/encoding/json"
	"github.com/shelfkeep/shelfkeep/pkg/binder"
	"github.com/shelfkeep/shelfkeep/pkg/errcodes"
	"github.com/stretchr/testify/require"
)

// NewEcho returns an echo instance configured with the application's binder
// and error handler.
func NewEcho(t *testing.T) *echo.Echo {
	t.Helper()

	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.JSONSerializer = binder.JSONSerializer{}
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	return e
}

// NewContext builds a context for calling a handler directly.
func NewContext(t *testing.T, e *echo.Echo, method, path, payload string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	var body io.Reader
	if payload != "" {
		body = strings.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rr := httptest.NewRecorder()
	return e.NewContext(req, rr), rr
}

// Do sends a request through e's router. A non-empty token is sent as a
// bearer token.
func Do(t *testing.T, e *echo.Echo, method, path, token, payload string) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if payload != "" {
		body = strings.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)
	return rr
}

// ErrorBody is the JSON body written by the error handler.
type ErrorBody struct {
	Error struct {
		Code       string `json:"code"`
		Message    string `json:"message"`
		Reason     string `json:"reason"`
		StatusCode int    `json:"status_code"`
	} `json:"error"`
}

// DecodeJSON unmarshals the recorded response body into v.
func DecodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}

// RequireStatus fails the test when the response code isn't want.
func RequireStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, rr.Code, "%s: %s", http.StatusText(rr.Code), rr.Body.String())
}
