package echoweb

import (
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core/user"
)

// Policy is the access rule of a path.
type Policy int

const (
	Public Policy = iota
	// Protected paths need a session; anonymous requests are sent to the login page.
	Protected
	// AuthOnly paths are for anonymous people; signed-in requests are sent on.
	AuthOnly
)

// DefaultLanding is where people go when there is nowhere better.
const DefaultLanding = "/dashboard"

var (
	protectedPrefixes = []string{"/dashboard", "/courses", "/lessons", "/announcements", "/start/confirm", "/start/done"}
	authOnlyPrefixes  = []string{"/login", "/signup"}
)

func (p Policy) String() string {
	switch p {
	case Protected:
		return "protected"
	case AuthOnly:
		return "auth-only"
	default:
		return "public"
	}
}

// Classify returns the Policy of path by prefix.
func Classify(path string) Policy {
	for _, prefix := range protectedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return Protected
		}
	}
	for _, prefix := range authOnlyPrefixes {
		if strings.HasPrefix(path, prefix) {
			return AuthOnly
		}
	}
	return Public
}

// SafeReturnTo accepts local paths only; anything else becomes DefaultLanding.
func SafeReturnTo(returnTo string) string {
	if !strings.HasPrefix(returnTo, "/") || strings.HasPrefix(returnTo, "//") || strings.Contains(returnTo, `\`) {
		return DefaultLanding
	}
	return returnTo
}

// loginURL is the login page that comes back to returnTo after signing in.
func loginURL(returnTo string) string {
	if returnTo == "" {
		return "/login"
	}
	q := make(url.Values)
	q.Set("returnTo", returnTo)
	return "/login?" + q.Encode()
}

// requestPath is the path and query of the request, as a returnTo value.
func requestPath(ctx echo.Context) string {
	u := ctx.Request().URL
	if u.RawQuery == "" {
		return u.Path
	}
	return u.Path + "?" + u.RawQuery
}

// loginReturnTo is where to come back after signing in. Posts cannot be replayed by a
// redirect, so they go back to the page that sent them: the local Referer, else the
// parent page when it is protected, else DefaultLanding.
func loginReturnTo(ctx echo.Context) string {
	req := ctx.Request()
	if req.Method == http.MethodGet || req.Method == http.MethodHead {
		return requestPath(ctx)
	}
	if ref, err := url.Parse(req.Referer()); err == nil && ref.Path != "" && (ref.Host == "" || ref.Host == req.Host) {
		back := ref.Path
		if ref.RawQuery != "" {
			back += "?" + ref.RawQuery
		}
		if SafeReturnTo(back) == back && Classify(ref.Path) != AuthOnly {
			return back
		}
	}
	if parent := path.Dir(req.URL.Path); Classify(parent) == Protected {
		return parent
	}
	return DefaultLanding
}

// sessionBoundary loads the session cookie, refreshes or clears it, then applies the Policy of the path.
func (s *Server) sessionBoundary() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if err := s.loadSession(ctx); err != nil {
				return errors.Wrap(err, "loading session")
			}
			signedIn := contextUserID(ctx) != ""

			switch Classify(ctx.Request().URL.Path) {
			case Protected:
				if !signedIn {
					return ctx.Redirect(http.StatusFound, loginURL(loginReturnTo(ctx)))
				}
			case AuthOnly:
				if signedIn {
					return ctx.Redirect(http.StatusFound, SafeReturnTo(ctx.QueryParam("returnTo")))
				}
			}
			return next(ctx)
		}
	}
}

// loadSession only fails when the user store cannot be reached during a refresh.
func (s *Server) loadSession(ctx echo.Context) error {
	cookie, err := ctx.Cookie(s.deps.Conf.Session.CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	claims, err := s.sessions.parseToken(cookie.Value)
	if err != nil {
		s.sessions.signOut(ctx)
		return nil
	}

	refresh, err := s.sessions.needsRefresh(claims)
	if err != nil {
		// still valid until it expires; just not extended
		ctx.Set(ctxClaimsKey, claims)
		return nil
	}
	if !refresh {
		ctx.Set(ctxClaimsKey, claims)
		return nil
	}

	usr, err := s.deps.UserSvc.GetByID(ctx.Request().Context(), claims.Subject)
	switch {
	case err == nil && usr.IsActive:
		return s.sessions.signIn(ctx, usr, claims.OrigIssuedAt)
	case err == nil, errors.Cause(err) == user.ErrNotFound:
		s.sessions.signOut(ctx)
		return nil
	default:
		return errors.Wrap(err, "finding session user")
	}
}
