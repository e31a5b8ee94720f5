package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

// addUser updates or creates an active user.User with its Profile.
func (cli *commandLine) addUser(ctx context.Context, name, email, pwd string, isAdmin bool) error {
	email = core.CleanString(email, true /* lower */)
	name = core.CleanString(name)
	now := time.Now().UTC()

	role := user.RoleStudent
	if isAdmin {
		role = user.RoleAdmin
	}

	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	switch errors.Cause(err) {
	case nil:
		usr.IsActive = true
		usr.UpdatedAt = now
		if err = usr.SetPassword(pwd); err != nil {
			return err
		}
		if usr, err = cli.usrRepo.UpdateUser(ctx, usr); err != nil {
			return err
		}
		prof, err := cli.usrRepo.GetProfile(ctx, usr.ID)
		if err != nil && errors.Cause(err) != user.ErrProfileNotFound {
			return err
		}
		if prof.CreatedAt.IsZero() {
			prof.CreatedAt = now
		}
		prof.UserID = usr.ID
		prof.Role = role
		prof.UpdatedAt = now
		if name != "" {
			prof.Name = name
		}
		_, err = cli.usrRepo.UpsertProfile(ctx, prof)
		return err

	case user.ErrNotFound:
		usr = user.User{Email: email, IsActive: true, CreatedAt: now, UpdatedAt: now}
		if err = usr.SetPassword(pwd); err != nil {
			return err
		}
		_, err = cli.usrRepo.CreateUser(ctx, usr, user.Profile{Role: role, Name: name, CreatedAt: now, UpdatedAt: now})
		return err

	default:
		return err
	}
}
