package user

import (
	"context"
	"net/mail"
	"net/url"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("user")
	ErrProfileNotFound    = core.NewNotFoundError("profile")
	ErrIdentityNotFound   = core.NewNotFoundError("identity")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("Invalid login credentials")
	ErrAccountDeactivated = errors.New("this account has been deactivated")
	ErrInvalidResetLink   = errors.New("this password reset link is invalid or has expired")
)

type (
	Repository interface {
		// CreateUser stores the User together with its Profile. ErrEmailExists if the email is taken.
		CreateUser(ctx context.Context, usr User, prof Profile) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		GetProfile(ctx context.Context, userID string) (Profile, error)
		UpsertProfile(ctx context.Context, prof Profile) (Profile, error)
		GetIdentity(ctx context.Context, provider, subject string) (Identity, error)
		CreateIdentity(ctx context.Context, ident Identity) (Identity, error)
	}

	// Service is the identity gateway: it authenticates people and knows who the current user is.
	Service interface {
		SignInWithPassword(ctx context.Context, email, pwd string) (User, error)
		SignUp(ctx context.Context, su SignUp) (User, error)
		SignInWithExternal(ctx context.Context, ext ExternalUser) (User, error)
		RequestPasswordReset(ctx context.Context, email, redirectTo string) error
		ResetPassword(ctx context.Context, rp ResetUserPassword) (User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		GetProfile(ctx context.Context, usr User) (Profile, error)
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) Service {
	secretKey = []byte(conf.SecretKey)
	if conf.PasswordResetTimeoutDelta > 0 {
		passwordResetTimeoutDelta = conf.PasswordResetTimeoutDelta
	}
	return &service{repo: repo, mailSvc: mailSvc}
}

// SignInWithPassword returns ErrInvalidCredentials whether the email is unknown or the password is wrong.
func (svc *service) SignInWithPassword(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}
	return svc.setLastLogin(ctx, usr)
}

// SignUp expects an already validated SignUp.
func (svc *service) SignUp(ctx context.Context, su SignUp) (User, error) {
	now := nowFunc().UTC()
	usr := User{
		Email:     core.CleanString(su.Email, true /* lower */),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: now,
	}
	if err := usr.SetPassword(su.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	prof := Profile{
		Role:      RoleStudent,
		Name:      core.CleanString(su.Name),
		CreatedAt: now,
		UpdatedAt: now,
	}

	usr, err := svc.repo.CreateUser(ctx, usr, prof)
	if err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return User{}, core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return User{}, errors.Wrap(err, "creating user")
	}
	return usr, nil
}

// SignInWithExternal finds the User linked to an OAuth identity.
// Unknown identities are linked to the User with the same email, or to a brand new User.
func (svc *service) SignInWithExternal(ctx context.Context, ext ExternalUser) (User, error) {
	ident, err := svc.repo.GetIdentity(ctx, ext.Provider, ext.Subject)
	switch errors.Cause(err) {
	case nil:
		usr, err := svc.repo.GetUserByID(ctx, ident.UserID)
		if err != nil {
			return User{}, errors.Wrap(err, "finding identity user")
		}
		return svc.checkActiveAndLogin(ctx, usr)
	case ErrIdentityNotFound: // link below
	default:
		return User{}, errors.Wrap(err, "finding identity")
	}

	email := core.CleanString(ext.Email, true /* lower */)
	var usr User
	if email != "" {
		usr, err = svc.repo.GetUserByEmail(ctx, email)
		if err != nil && errors.Cause(err) != ErrNotFound {
			return User{}, errors.Wrap(err, "finding user by email")
		}
	}
	if usr.ID == "" {
		if email == "" {
			return User{}, errors.Errorf("%s account has no email address", ext.Provider)
		}
		now := nowFunc().UTC()
		usr, err = svc.repo.CreateUser(ctx,
			User{Email: email, IsActive: true, CreatedAt: now, UpdatedAt: now},
			Profile{Role: RoleStudent, Name: core.CleanString(ext.Name), CreatedAt: now, UpdatedAt: now},
		)
		if err != nil {
			return User{}, errors.Wrap(err, "creating user")
		}
	}

	if _, err = svc.repo.CreateIdentity(ctx, Identity{
		Provider:  ext.Provider,
		Subject:   ext.Subject,
		UserID:    usr.ID,
		Email:     email,
		CreatedAt: nowFunc().UTC(),
	}); err != nil {
		return User{}, errors.Wrap(err, "linking identity")
	}
	return svc.checkActiveAndLogin(ctx, usr)
}

func (svc *service) checkActiveAndLogin(ctx context.Context, usr User) (User, error) {
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}
	return svc.setLastLogin(ctx, usr)
}

func (svc *service) setLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = nowFunc().UTC()
	usr, err := svc.repo.UpdateUser(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "setting last login")
	}
	return usr, nil
}

// RequestPasswordReset mails a reset link pointing at redirectTo. Unknown emails are silently ignored.
func (svc *service) RequestPasswordReset(ctx context.Context, email, redirectTo string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return nil
		}
		return errors.Wrap(err, "finding user by email")
	}
	if !usr.IsActive {
		return nil
	}
	prof, err := svc.GetProfile(ctx, usr)
	if err != nil {
		return errors.Wrap(err, "getting profile")
	}
	svc.mailSvc.SendMessages(passwordResetMail(usr, prof, redirectTo))
	return nil
}

func passwordResetMail(usr User, prof Profile, redirectTo string) *core.EmailMessage {
	q := make(url.Values)
	q.Set("uid", EncodeUID(usr))
	q.Set("token", makeToken(usr))

	resetURL := redirectTo + "?" + q.Encode()
	if u, err := url.Parse(redirectTo); err == nil {
		u.RawQuery = q.Encode()
		resetURL = u.String()
	}

	return &core.EmailMessage{
		To:           []mail.Address{{Name: prof.Name, Address: usr.Email}},
		Subject:      "Reset your password",
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{
			"Name": prof.DisplayName(usr),
			"URL":  resetURL,
		},
	}
}

// ResetPassword expects an already validated ResetUserPassword.
func (svc *service) ResetPassword(ctx context.Context, rp ResetUserPassword) (User, error) {
	invalid := core.NewValidationError(ErrInvalidResetLink)

	id, err := decodeUID(rp.UID)
	if err != nil {
		return User{}, invalid
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, invalid
		}
		return User{}, errors.Wrap(err, "finding user by id")
	}
	if err = verifyToken(usr, rp.Token); err != nil {
		return User{}, invalid
	}

	if err = usr.SetPassword(rp.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = nowFunc().UTC()
	usr, err = svc.repo.UpdateUser(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "updating user")
	}
	return usr, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

// GetProfile returns the Profile of usr, creating a student one on first access.
func (svc *service) GetProfile(ctx context.Context, usr User) (Profile, error) {
	prof, err := svc.repo.GetProfile(ctx, usr.ID)
	if err == nil {
		return prof, nil
	}
	if errors.Cause(err) != ErrProfileNotFound {
		return Profile{}, errors.Wrap(err, "getting profile")
	}

	now := nowFunc().UTC()
	prof, err = svc.repo.UpsertProfile(ctx, Profile{UserID: usr.ID, Role: RoleStudent, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		return Profile{}, errors.Wrap(err, "creating profile")
	}
	return prof, nil
}
