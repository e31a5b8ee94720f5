package echoweb

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core/user"
)

// currentViewer loads the signed-in person once per request.
// errUnauthorized when the session points at a missing or deactivated user.
func (s *Server) currentViewer(ctx echo.Context) (*viewer, error) {
	if v, ok := ctx.Get(ctxViewerKey).(*viewer); ok && v != nil {
		return v, nil
	}
	id := contextUserID(ctx)
	if id == "" {
		return nil, errUnauthorized
	}

	rctx := ctx.Request().Context()
	usr, err := s.deps.UserSvc.GetByID(rctx, id)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return nil, errUnauthorized
		}
		return nil, errors.Wrap(err, "finding current user")
	}
	if !usr.IsActive {
		return nil, errUnauthorized
	}
	prof, err := s.deps.UserSvc.GetProfile(rctx, usr)
	if err != nil {
		return nil, errors.Wrap(err, "getting profile")
	}

	v := &viewer{
		ID:      usr.ID,
		Email:   usr.Email,
		Name:    prof.DisplayName(usr),
		IsAdmin: prof.IsAdmin(),
	}
	ctx.Set(ctxViewerKey, v)
	return v, nil
}
