package echoweb

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

func TestSessions_ParseToken(t *testing.T) {
	conf := core.NewTestConfig()
	ss := newSessions(conf)
	usr := user.User{ID: "u-1", Email: "ada@test.cd"}

	valid, err := ss.generateToken(ss.newClaims(usr))
	require.NoError(t, err)

	otherKey := newSessions(conf)
	otherKey.key = []byte("another-secret")
	forged, err := otherKey.generateToken(otherKey.newClaims(usr))
	require.NoError(t, err)

	wrongAud := ss.newClaims(usr)
	wrongAud.Audience = jwt.ClaimStrings{"someone-else"}
	wrongAudToken, err := ss.generateToken(wrongAud)
	require.NoError(t, err)

	noSubject, err := ss.generateToken(ss.newClaims(user.User{}))
	require.NoError(t, err)

	expired := ss.newClaims(usr)
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	expiredToken, err := ss.generateToken(expired)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, ss.newClaims(usr)).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{name: "valid", token: valid},
		{name: "garbage", token: "a.b.c", wantErr: true},
		{name: "other key", token: forged, wantErr: true},
		{name: "other audience", token: wrongAudToken, wantErr: true},
		{name: "no subject", token: noSubject, wantErr: true},
		{name: "expired", token: expiredToken, wantErr: true},
		{name: "unsigned", token: none, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ss.parseToken(tt.token)
			if tt.wantErr {
				assert.Equal(t, errInvalidSession, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, usr.ID, claims.Subject)
			assert.Equal(t, usr.Email, claims.Email)
			assert.Equal(t, conf.AppName, claims.Issuer)
		})
	}
}

func TestSessions_NeedsRefresh(t *testing.T) {
	conf := core.NewTestConfig()
	ss := newSessions(conf)
	now := time.Now()

	claims := func(iat time.Time, oriat time.Time) *Claims {
		return &Claims{
			RegisteredClaims: jwt.RegisteredClaims{IssuedAt: jwt.NewNumericDate(iat)},
			OrigIssuedAt:     oriat.Unix(),
		}
	}

	tests := []struct {
		name    string
		claims  *Claims
		want    bool
		wantErr error
	}{
		{name: "fresh", claims: claims(now, now)},
		{name: "old", claims: claims(now.Add(-conf.Session.RefreshDelta-time.Second), now.Add(-2*time.Hour)), want: true},
		{
			name:    "refresh window over",
			claims:  claims(now.Add(-conf.Session.RefreshDelta-time.Second), now.Add(-conf.Session.RefreshExpirationDelta-time.Second)),
			wantErr: errRefreshExpired,
		},
		{name: "no issue time", claims: &Claims{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ss.needsRefresh(tt.claims)
			assert.Equal(t, tt.wantErr, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSessions_NewClaimsKeepsOrigIssuedAt(t *testing.T) {
	ss := newSessions(core.NewTestConfig())
	usr := user.User{ID: "u-1"}

	fresh := ss.newClaims(usr)
	assert.Equal(t, fresh.IssuedAt.Unix(), fresh.OrigIssuedAt)

	orig := time.Now().Add(-48 * time.Hour).Unix()
	refreshed := ss.newClaims(usr, orig)
	assert.Equal(t, orig, refreshed.OrigIssuedAt)
	assert.Equal(t, jwt.ClaimStrings{audience}, refreshed.Audience)
}
