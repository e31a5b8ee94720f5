package oauthsvc

import (
	"context"
	"strconv"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

const Kakao = "kakao"

var (
	kakaoEndpoint = oauth2.Endpoint{
		AuthURL:   "https://kauth.kakao.com/oauth/authorize",
		TokenURL:  "https://kauth.kakao.com/oauth/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	kakaoUserInfoURL = "https://kapi.kakao.com/v2/user/me"
)

type kakaoUserInfo struct {
	ID      int64 `json:"id"`
	Account struct {
		Email           string `json:"email"`
		IsEmailVerified bool   `json:"is_email_verified"`
		Profile         struct {
			Nickname string `json:"nickname"`
		} `json:"profile"`
	} `json:"kakao_account"`
}

func NewKakaoProvider(cc core.OAuthClientConfig, redirectURL string) Provider {
	return newProvider(Kakao, cc, redirectURL, kakaoEndpoint, []string{"account_email", "profile_nickname"}, kakaoUserInfoURL, kakaoUser)
}

func kakaoUser(ctx context.Context, client *resty.Client, url string) (user.ExternalUser, error) {
	var info kakaoUserInfo
	if err := getJSON(ctx, client, url, &info); err != nil {
		return user.ExternalUser{}, err
	}
	ext := user.ExternalUser{Name: info.Account.Profile.Nickname}
	if info.ID != 0 {
		ext.Subject = strconv.FormatInt(info.ID, 10)
	}
	if info.Account.IsEmailVerified {
		ext.Email = info.Account.Email
	}
	return ext, nil
}
