package oauthsvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/trezcool/campus/core"
)

// newFakeProviderServer serves a token endpoint accepting code "good" and a user info endpoint.
func newFakeProviderServer(t *testing.T, userInfo interface{}) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("code") != "good" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(userInfo)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func fakeEndpoint(srv *httptest.Server) oauth2.Endpoint {
	return oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token", AuthStyle: oauth2.AuthStyleInParams}
}

func TestProvider_Exchange(t *testing.T) {
	ctx := context.Background()
	cc := core.OAuthClientConfig{ClientID: "id", ClientSecret: "secret"}

	t.Run("google", func(t *testing.T) {
		srv := newFakeProviderServer(t, map[string]interface{}{
			"sub": "g-123", "email": "ada@test.cd", "email_verified": true, "name": "Ada",
		})
		p := newProvider(Google, cc, "http://localhost/auth/callback", fakeEndpoint(srv), nil, srv.URL+"/userinfo", googleUser)

		ext, err := p.Exchange(ctx, "good")
		require.NoError(t, err)
		assert.Equal(t, Google, ext.Provider)
		assert.Equal(t, "g-123", ext.Subject)
		assert.Equal(t, "ada@test.cd", ext.Email)
		assert.Equal(t, "Ada", ext.Name)

		_, err = p.Exchange(ctx, "bad")
		require.Error(t, err)
		assert.True(t, core.IsRemote(err))
	})

	t.Run("kakao unverified email is dropped", func(t *testing.T) {
		srv := newFakeProviderServer(t, map[string]interface{}{
			"id": 42,
			"kakao_account": map[string]interface{}{
				"email": "bob@test.cd", "is_email_verified": false,
				"profile": map[string]interface{}{"nickname": "Bob"},
			},
		})
		p := newProvider(Kakao, cc, "http://localhost/auth/callback", fakeEndpoint(srv), nil, srv.URL+"/userinfo", kakaoUser)

		ext, err := p.Exchange(ctx, "good")
		require.NoError(t, err)
		assert.Equal(t, "42", ext.Subject)
		assert.Empty(t, ext.Email)
		assert.Equal(t, "Bob", ext.Name)
	})
}

func TestProvider_AuthCodeURL(t *testing.T) {
	p := NewGoogleProvider(core.OAuthClientConfig{ClientID: "id"}, "http://localhost:8000/auth/callback")
	u, err := url.Parse(p.AuthCodeURL("st-1"))
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", u.Host)
	assert.Equal(t, "st-1", u.Query().Get("state"))
	assert.Equal(t, "http://localhost:8000/auth/callback", u.Query().Get("redirect_uri"))
	assert.Equal(t, "code", u.Query().Get("response_type"))
}

func TestNewRegistry(t *testing.T) {
	conf := core.NewTestConfig()
	assert.Empty(t, NewRegistry(conf).Names())

	conf.OAuth.Kakao.ClientID = "k"
	conf.OAuth.Google.ClientID = "g"
	reg := NewRegistry(conf)
	assert.Equal(t, []string{Google, Kakao}, reg.Names())

	_, err := reg.Get("github")
	assert.Error(t, err)
}

func TestMemoryStateStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStateStore()

	key, err := store.Save(ctx, State{Provider: Google, ReturnTo: "/start?course=go"})
	require.NoError(t, err)

	st, err := store.Take(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "/start?course=go", st.ReturnTo)

	_, err = store.Take(ctx, key)
	assert.Equal(t, ErrInvalidState, err)

	key, err = store.Save(ctx, State{Provider: Kakao})
	require.NoError(t, err)
	nowFunc = func() time.Time { return time.Now().Add(StateTTL + time.Second) }
	defer func() { nowFunc = time.Now }()
	_, err = store.Take(ctx, key)
	assert.Equal(t, ErrInvalidState, err)
}
