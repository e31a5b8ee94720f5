package echoweb

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

const (
	ctxClaimsKey = "sessionClaims"
	ctxViewerKey = "viewer"
	audience     = "campus-web"
)

var (
	errInvalidSession = errors.New("invalid session")
	errRefreshExpired = errors.New("session refresh has expired")
)

// Claims represents the session claims carried by the session cookie.
type Claims struct {
	jwt.RegisteredClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Email        string `json:"email,omitempty"`
}

// sessions issues and verifies session cookies.
type sessions struct {
	conf core.SessionConfig
	key  []byte
	iss  string
}

func newSessions(conf *core.Config) *sessions {
	return &sessions{conf: conf.Session, key: []byte(conf.SecretKey), iss: conf.AppName}
}

// newClaims returns fresh claims for usr. The original issue time is kept across refreshes.
func (ss *sessions) newClaims(usr user.User, origIat ...int64) *Claims {
	now := nowFunc()
	oriat := now.Unix()
	if len(origIat) > 0 && origIat[0] > 0 {
		oriat = origIat[0]
	}
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ss.iss,
			Subject:   usr.ID,
			Audience:  jwt.ClaimStrings{audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ss.conf.ExpirationDelta)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OrigIssuedAt: oriat,
		Email:        usr.Email,
	}
}

// generateToken signs claims with HS256.
func (ss *sessions) generateToken(claims *Claims) (string, error) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ss.key)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return token, nil
}

func (ss *sessions) parseToken(raw string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := new(Claims)
	token, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return ss.key, nil
	})
	if err != nil || !token.Valid {
		return nil, errInvalidSession
	}
	if !claims.VerifyAudience(audience, true) || claims.Subject == "" {
		return nil, errInvalidSession
	}
	return claims, nil
}

// needsRefresh reports whether claims are old enough to be reissued.
// errRefreshExpired means the session may not be extended any further.
func (ss *sessions) needsRefresh(claims *Claims) (bool, error) {
	now := nowFunc()
	if claims.IssuedAt == nil || now.Sub(claims.IssuedAt.Time) < ss.conf.RefreshDelta {
		return false, nil
	}
	if now.After(time.Unix(claims.OrigIssuedAt, 0).Add(ss.conf.RefreshExpirationDelta)) {
		return false, errRefreshExpired
	}
	return true, nil
}

// signIn starts a session for usr.
func (ss *sessions) signIn(ctx echo.Context, usr user.User, origIat ...int64) error {
	claims := ss.newClaims(usr, origIat...)
	token, err := ss.generateToken(claims)
	if err != nil {
		return err
	}
	ctx.SetCookie(&http.Cookie{
		Name:     ss.conf.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  claims.ExpiresAt.Time,
		HttpOnly: true,
		Secure:   ss.conf.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	ctx.Set(ctxClaimsKey, claims)
	return nil
}

func (ss *sessions) signOut(ctx echo.Context) {
	ctx.SetCookie(&http.Cookie{
		Name:     ss.conf.CookieName,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   ss.conf.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	ctx.Set(ctxClaimsKey, nil)
	ctx.Set(ctxViewerKey, nil)
}

func getContextClaims(ctx echo.Context) (*Claims, bool) {
	claims, ok := ctx.Get(ctxClaimsKey).(*Claims)
	return claims, ok && claims != nil
}

// contextUserID is "" for anonymous requests.
func contextUserID(ctx echo.Context) string {
	if claims, ok := getContextClaims(ctx); ok {
		return claims.Subject
	}
	return ""
}
