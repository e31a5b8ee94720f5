package echoweb

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appfs "github.com/trezcool/campus/fs"
)

func TestRelativeDate(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{name: "same day", t: now.Add(-3 * time.Hour), want: "Today"},
		{name: "under a day", t: now.Add(-23 * time.Hour), want: "Today"},
		{name: "yesterday", t: now.Add(-25 * time.Hour), want: "Yesterday"},
		{name: "days ago", t: now.Add(-4 * 24 * time.Hour), want: "4 days ago"},
		{name: "six days", t: now.Add(-6*24*time.Hour - time.Hour), want: "6 days ago"},
		{name: "a week", t: now.Add(-7 * 24 * time.Hour), want: "March 3, 2024"},
		{name: "future", t: now.Add(2 * 24 * time.Hour), want: "2 days ago"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, relativeDate(tt.t, now))
		})
	}
}

func TestNewRenderer(t *testing.T) {
	r, err := newRenderer(appfs.FS, templatesDir)
	require.NoError(t, err)

	for _, name := range []string{
		"home", "denial", "error", "login", "signup", "reset_password", "reset_password_update",
		"confirm", "done", "dashboard", "course", "curriculum", "lesson", "announcements", "announcement", "terms", "privacy",
	} {
		assert.Contains(t, r.pages, name)
	}
	assert.NotContains(t, r.pages, "_base")
	assert.Error(t, r.Render(httptest.NewRecorder(), "nope", nil, nil))
}

func TestFlash(t *testing.T) {
	e := echo.New()

	rec := httptest.NewRecorder()
	setFlash(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec), flashSuccess, "Saved & done")
	c := responseCookie(rec, flashCookieName)
	require.NotNil(t, c)
	assert.Equal(t, flashMaxAge, c.MaxAge)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	rec = httptest.NewRecorder()
	got := popFlash(e.NewContext(req, rec))
	require.NotNil(t, got)
	assert.Equal(t, flash{Kind: flashSuccess, Message: "Saved & done"}, *got)

	cleared := responseCookie(rec, flashCookieName)
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)

	t.Run("garbage", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: flashCookieName, Value: "%%%"})
		assert.Nil(t, popFlash(e.NewContext(req, httptest.NewRecorder())))
	})

	t.Run("none", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		assert.Nil(t, popFlash(e.NewContext(req, httptest.NewRecorder())))
	})
}

func TestServer_FlashIsShownOnce(t *testing.T) {
	f := setup(t)
	rec := f.do(t, http.MethodPost, "/logout", nil)
	c := responseCookie(rec, flashCookieName)
	require.NotNil(t, c)

	rec = f.do(t, http.MethodGet, "/", nil, c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), msgSignedOut)
	assert.Contains(t, rec.Body.String(), "toast-info")
}
