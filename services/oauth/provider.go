// Package oauthsvc signs people in through external OAuth providers (authorization code flow).
package oauthsvc

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

// Callback is the route providers redirect back to.
const Callback = "/auth/callback"

var (
	ErrUnknownProvider = errors.New("unknown sign-in provider")

	// MsgSignInFailed is shown when the provider could not be reached or refused the code.
	MsgSignInFailed = "Social sign-in failed. Please try again."

	userInfoTimeout = 10 * time.Second
)

type (
	// Provider is one OAuth identity provider.
	Provider interface {
		Name() string
		// AuthCodeURL is the consent page the person is sent to; state comes back on the callback.
		AuthCodeURL(state string) string
		// Exchange trades the authorization code for the person's identity.
		Exchange(ctx context.Context, code string) (user.ExternalUser, error)
	}

	// userInfoFunc fetches the identity of the access token's owner.
	userInfoFunc func(ctx context.Context, client *resty.Client, url string) (user.ExternalUser, error)

	provider struct {
		name        string
		conf        *oauth2.Config
		userInfoURL string
		userInfo    userInfoFunc
	}

	// Registry holds the configured providers by name.
	Registry map[string]Provider
)

var _ Provider = (*provider)(nil)

func newProvider(name string, cc core.OAuthClientConfig, redirectURL string, endpoint oauth2.Endpoint, scopes []string, userInfoURL string, fn userInfoFunc) *provider {
	return &provider{
		name: name,
		conf: &oauth2.Config{
			ClientID:     cc.ClientID,
			ClientSecret: cc.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  redirectURL,
			Scopes:       scopes,
		},
		userInfoURL: userInfoURL,
		userInfo:    fn,
	}
}

func (p *provider) Name() string { return p.name }

func (p *provider) AuthCodeURL(state string) string {
	return p.conf.AuthCodeURL(state)
}

// Exchange errors are *core.RemoteError.
func (p *provider) Exchange(ctx context.Context, code string) (user.ExternalUser, error) {
	tok, err := p.conf.Exchange(ctx, code)
	if err != nil {
		return user.ExternalUser{}, core.NewRemoteError(errors.Wrapf(err, "exchanging %s code", p.name), MsgSignInFailed)
	}

	client := resty.NewWithClient(p.conf.Client(ctx, tok)).SetTimeout(userInfoTimeout)
	ext, err := p.userInfo(ctx, client, p.userInfoURL)
	if err != nil {
		return user.ExternalUser{}, core.NewRemoteError(errors.Wrapf(err, "fetching %s user info", p.name), MsgSignInFailed)
	}
	ext.Provider = p.name
	if ext.Subject == "" {
		return user.ExternalUser{}, core.NewRemoteError(errors.Errorf("%s user info has no subject", p.name), MsgSignInFailed)
	}
	return ext, nil
}

// getJSON decodes a successful JSON response into result.
func getJSON(ctx context.Context, client *resty.Client, url string, result interface{}) error {
	res, err := client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetResult(result).
		Get(url)
	if err != nil {
		return err
	}
	if res.StatusCode() != http.StatusOK {
		return errors.Errorf("unexpected status %d: %s", res.StatusCode(), res.String())
	}
	return nil
}

// NewRegistry registers every provider with a client ID in conf.
func NewRegistry(conf *core.Config) Registry {
	redirectURL := conf.FrontendBaseURL + Callback
	reg := make(Registry)
	if conf.OAuth.Google.ClientID != "" {
		reg.Add(NewGoogleProvider(conf.OAuth.Google, redirectURL))
	}
	if conf.OAuth.Kakao.ClientID != "" {
		reg.Add(NewKakaoProvider(conf.OAuth.Kakao, redirectURL))
	}
	return reg
}

func (r Registry) Add(p Provider) { r[p.Name()] = p }

func (r Registry) Get(name string) (Provider, error) {
	if p, ok := r[name]; ok {
		return p, nil
	}
	return nil, errors.Wrap(ErrUnknownProvider, fmt.Sprintf("%q", name))
}

// Names returns the registered provider names, sorted.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
