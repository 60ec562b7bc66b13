package main

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/charlesacademy/portal/core"
	"github.com/charlesacademy/portal/core/user"
)

type newUserArgs struct {
	username, email, role string
	firstName, lastName   string
	password              string
}

// addUser updates or creates an active user.User
func (cli *commandLine) addUser(args newUserArgs) error {
	ctx := context.Background()
	uname := core.CleanString(args.username, true /* lower */)
	email := core.CleanString(args.email, true /* lower */)
	role := strings.ToUpper(core.CleanString(args.role))
	if !user.IsValidRole(role) {
		return errors.Errorf("invalid role %q", args.role)
	}

	now := time.Now().UTC()
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: uname})
	if errors.Cause(err) == user.ErrNotFound {
		usr, err = cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email})
	}
	exists := err == nil
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		usr = user.User{CreatedAt: now}
	}

	usr.Username = uname
	usr.Email = email
	usr.Role = role
	if fn := core.CleanString(args.firstName); fn != "" {
		usr.FirstName = fn
	}
	if ln := core.CleanString(args.lastName); ln != "" {
		usr.LastName = ln
	}
	usr.IsActive = true
	usr.UpdatedAt = now
	if err = usr.SetPassword(args.password); err != nil {
		return err
	}

	if exists {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	}
	return err
}
