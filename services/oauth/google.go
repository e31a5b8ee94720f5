package oauthsvc

import (
	"context"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

const Google = "google"

var (
	googleEndpoint = oauth2.Endpoint{
		AuthURL:   "https://accounts.google.com/o/oauth2/v2/auth",
		TokenURL:  "https://oauth2.googleapis.com/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

func NewGoogleProvider(cc core.OAuthClientConfig, redirectURL string) Provider {
	return newProvider(Google, cc, redirectURL, googleEndpoint, []string{"openid", "email", "profile"}, googleUserInfoURL, googleUser)
}

func googleUser(ctx context.Context, client *resty.Client, url string) (user.ExternalUser, error) {
	var info googleUserInfo
	if err := getJSON(ctx, client, url, &info); err != nil {
		return user.ExternalUser{}, err
	}
	ext := user.ExternalUser{Subject: info.Sub, Name: info.Name}
	if info.EmailVerified {
		ext.Email = info.Email
	}
	return ext, nil
}
