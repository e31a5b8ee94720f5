package user

import "github.com/pkg/errors"

// MsgInvalidCredentials is shown instead of the raw "Invalid login credentials" error.
const MsgInvalidCredentials = "Incorrect email or password."

// TranslateAuthError turns an authentication error into the message shown on the login form.
func TranslateAuthError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Cause(err) == ErrInvalidCredentials {
		return MsgInvalidCredentials
	}
	return errors.Cause(err).Error()
}
