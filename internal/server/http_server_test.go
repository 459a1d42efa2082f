package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/muzz-match/internal/app"
	"github.com/oggyb/muzz-match/internal/app/apptest"
	"github.com/oggyb/muzz-match/internal/server"
	"github.com/oggyb/muzz-match/internal/server/response"
	"github.com/oggyb/muzz-match/internal/service/match"
)

type httpFixture struct {
	appCtx *app.AppContext
	e      *echo.Echo
}

func newHTTP(t *testing.T) *httpFixture {
	t.Helper()
	appCtx := apptest.New(t)
	return &httpFixture{appCtx: appCtx, e: server.NewHTTPServer(appCtx, match.NewRegistrar(appCtx))}
}

// do sends body (JSON-encoded unless it is already []byte) as userID;
// userID 0 sends no token.
func (f *httpFixture) do(t *testing.T, userID uint64, method, path string, body any) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()

	var r io.Reader
	contentType := echo.MIMEApplicationJSON
	switch b := body.(type) {
	case nil:
	case []byte:
		r, contentType = bytes.NewReader(b), "image/png"
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, r)
	if r != nil {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	if userID != 0 {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+apptest.Token(t, f.appCtx, userID))
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	var env response.Response
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func TestHTTP_RequiresBearerToken(t *testing.T) {
	f := newHTTP(t)

	rec, env := f.do(t, 0, http.MethodGet, "/v1/likes", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHENTICATED", env.Error.Code)
}

func TestHTTP_CreateLikeEnvelope(t *testing.T) {
	f := newHTTP(t)

	rec, env := f.do(t, 1, http.MethodPost, "/v1/likes", map[string]string{"targetUserId": "3"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, env.Success)
	assert.Equal(t, "It's a match", env.Message)
	assert.Equal(t, map[string]any{"created": true, "isMatch": true}, env.Data)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	rec, env = f.do(t, 1, http.MethodPost, "/v1/likes", map[string]string{"targetUserId": "3"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", env.Error.Code)
}

func TestHTTP_ValidationErrors(t *testing.T) {
	f := newHTTP(t)

	rec, env := f.do(t, 1, http.MethodPost, "/v1/likes", map[string]string{"targetUserId": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", env.Error.Code)
	assert.Contains(t, env.Error.Details, "TargetUserID")

	rec, env = f.do(t, 1, http.MethodGet, "/v1/nearby?maxDistanceKm=far", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", env.Error.Code)

	rec, env = f.do(t, 1, http.MethodGet, "/v1/likes?direction=sideways", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", env.Error.Code)
}

func TestHTTP_UnlockWithoutCardsNeedsCard(t *testing.T) {
	f := newHTTP(t)

	rec, env := f.do(t, 3, http.MethodPost, "/v1/profiles/2/contact/unlock", nil)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, "INSUFFICIENT_CREDITS", env.Error.Code)
	assert.True(t, env.NeedsCard)

	rec, env = f.do(t, 1, http.MethodPost, "/v1/profiles/2/contact/unlock", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "card", env.Data.(map[string]any)["method"])
	assert.False(t, env.NeedsCard)
}

func TestHTTP_BlockedProfileIsNotFound(t *testing.T) {
	f := newHTTP(t)

	rec, _ := f.do(t, 2, http.MethodPost, "/v1/blocks", map[string]string{"targetUserId": "1"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env := f.do(t, 1, http.MethodGet, "/v1/profiles/2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestHTTP_PhotoUploadAndServe(t *testing.T) {
	f := newHTTP(t)
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	rec, env := f.do(t, 2, http.MethodPost, "/v1/me/photos", png)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	photo := env.Data.(map[string]any)["photo"].(map[string]any)

	u, err := url.Parse(photo["url"].(string))
	require.NoError(t, err)

	rec, _ = f.do(t, 0, http.MethodGet, u.Path, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, png, rec.Body.Bytes())

	rec, _ = f.do(t, 0, http.MethodGet, "/photos/photos/2/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTP_Healthz(t *testing.T) {
	f := newHTTP(t)

	rec, env := f.do(t, 0, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"db": "ok", "redis": "ok"}, env.Data)
}
