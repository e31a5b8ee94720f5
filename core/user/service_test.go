package user_test

import (
	"context"
	"net/url"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
	appfs "github.com/trezcool/campus/fs"
	emailsvc "github.com/trezcool/campus/services/email"
	inmemdb "github.com/trezcool/campus/storage/database/inmem"
	"github.com/trezcool/campus/testutil"
)

type fixture struct {
	db      *inmemdb.DB
	repo    user.Repository
	mailSvc *emailsvc.ConsoleServiceMock
	svc     user.Service
}

func setup(t *testing.T) fixture {
	t.Helper()
	conf := core.NewTestConfig()
	core.ParseEmailTemplates(appfs.FS, "templates/email", conf, &testutil.Logger{})
	db := inmemdb.NewDB()
	repo := inmemdb.NewUserRepository(db)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	return fixture{db: db, repo: repo, mailSvc: mailSvc, svc: user.NewServiceMock(repo, mailSvc)}
}

func TestService_SignInWithPassword(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	testutil.CreateUser(t, f.repo, "Ada", "ada@test.cd", "s3cret-pwd", "", true)
	testutil.CreateUser(t, f.repo, "Bob", "bob@test.cd", "s3cret-pwd", "", false)

	tests := []struct {
		name    string
		email   string
		pwd     string
		wantErr error
	}{
		{name: "unknown email", email: "nobody@test.cd", pwd: "s3cret-pwd", wantErr: user.ErrInvalidCredentials},
		{name: "wrong password", email: "ada@test.cd", pwd: "nope", wantErr: user.ErrInvalidCredentials},
		{name: "deactivated", email: "bob@test.cd", pwd: "s3cret-pwd", wantErr: user.ErrAccountDeactivated},
		{name: "ok", email: "ada@test.cd", pwd: "s3cret-pwd"},
		{name: "email is case insensitive", email: " ADA@test.cd ", pwd: "s3cret-pwd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr, err := f.svc.SignInWithPassword(ctx, tt.email, tt.pwd)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ada@test.cd", usr.Email)
			assert.False(t, usr.LastLogin.IsZero())
		})
	}

	assert.Equal(t, user.MsgInvalidCredentials, user.TranslateAuthError(user.ErrInvalidCredentials))
}

func TestService_SignUp(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	usr, err := f.svc.SignUp(ctx, user.SignUp{Name: "Ada", Email: "ada@test.cd", Password: "s3cret-pwd"})
	require.NoError(t, err)
	assert.True(t, usr.IsActive)
	prof, err := f.svc.GetProfile(ctx, usr)
	require.NoError(t, err)
	assert.Equal(t, user.RoleStudent, prof.Role)
	assert.Equal(t, "Ada", prof.Name)

	_, err = f.svc.SignUp(ctx, user.SignUp{Name: "Other", Email: "ada@test.cd", Password: "s3cret-pwd"})
	vErr, ok := err.(*core.ValidationError)
	require.True(t, ok)
	assert.Contains(t, vErr.FieldMap(), "email")
}

func TestService_SignInWithExternal(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	existing := testutil.CreateUser(t, f.repo, "Ada", "ada@test.cd", "", "", true)

	// links to the user with the same email
	usr, err := f.svc.SignInWithExternal(ctx, user.ExternalUser{Provider: "google", Subject: "g-1", Email: "Ada@test.cd"})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, usr.ID)

	// then finds it through the identity
	usr, err = f.svc.SignInWithExternal(ctx, user.ExternalUser{Provider: "google", Subject: "g-1", Email: "changed@test.cd"})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, usr.ID)

	// creates a new user otherwise
	usr, err = f.svc.SignInWithExternal(ctx, user.ExternalUser{Provider: "kakao", Subject: "k-1", Email: "new@test.cd", Name: "New"})
	require.NoError(t, err)
	assert.NotEqual(t, existing.ID, usr.ID)
	prof, err := f.svc.GetProfile(ctx, usr)
	require.NoError(t, err)
	assert.Equal(t, "New", prof.Name)

	_, err = f.svc.SignInWithExternal(ctx, user.ExternalUser{Provider: "kakao", Subject: "k-2"})
	assert.Error(t, err)
}

func TestService_PasswordReset(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, f.repo, "Ada", "ada@test.cd", "old-password", "", true)

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "nobody@test.cd", "http://localhost:8000/reset-password/update"))
	assert.Empty(t, f.mailSvc.SentMessages())

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "ada@test.cd", "http://localhost:8000/reset-password/update"))
	sent := f.mailSvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "ada@test.cd", sent[0].To[0].Address)

	link, err := url.Parse(sent[0].TemplateData.(map[string]interface{})["URL"].(string))
	require.NoError(t, err)
	assert.Equal(t, "/reset-password/update", link.Path)
	uid, token := link.Query().Get("uid"), link.Query().Get("token")

	_, err = f.svc.ResetPassword(ctx, user.ResetUserPassword{UID: uid, Token: "bad-token", Password: "new-password"})
	_, ok := err.(*core.ValidationError)
	assert.True(t, ok)

	got, err := f.svc.ResetPassword(ctx, user.ResetUserPassword{UID: uid, Token: token, Password: "new-password"})
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)
	assert.NoError(t, got.CheckPassword("new-password"))

	// the token dies with the old password
	_, err = f.svc.ResetPassword(ctx, user.ResetUserPassword{UID: uid, Token: token, Password: "third-password"})
	assert.Error(t, err)
}

func TestService_GetProfile_createsMissing(t *testing.T) {
	f := setup(t)
	usr := user.User{ID: "c0ffee00-0000-4000-8000-000000000001", Email: "x@test.cd"}
	prof, err := f.svc.GetProfile(context.Background(), usr)
	require.NoError(t, err)
	assert.Equal(t, user.RoleStudent, prof.Role)
	assert.Equal(t, "x@test.cd", prof.DisplayName(usr))
}
