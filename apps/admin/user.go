package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/academia/sims/core"
	"github.com/academia/sims/core/user"
)

// addUser updates or creates an active user.User. Admins get every admin role.
func (cli *commandLine) addUser(uname, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	var roles []string
	if isAdmin {
		roles = user.AdminRoles
	}

	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		if err = cli.usrSvc.CheckUniqueness(ctx, uname, email); err != nil {
			return err
		}
		_, err = cli.usrSvc.Create(ctx, user.NewUser{
			Name:     uname,
			Username: uname,
			Email:    email,
			Password: pwd,
			Roles:    roles,
		})
		return err
	}

	active := true
	uu := user.UpdateUser{
		Name:     usr.Name,
		Username: usr.Username,
		Email:    email,
		Password: pwd,
		IsActive: &active,
	}
	if isAdmin {
		uu.Roles = roles
	}
	if err = cli.usrSvc.CheckUniqueness(ctx, uu.Username, uu.Email, usr); err != nil {
		return err
	}
	_, err = cli.usrSvc.Update(ctx, usr, uu)
	return err
}

func (cli *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	uu := user.UpdateUser{
		Name:     usr.Name,
		Username: usr.Username,
		Email:    usr.Email,
		Password: pwd,
	}
	_, err = cli.usrSvc.Update(ctx, usr, uu)
	return err
}
