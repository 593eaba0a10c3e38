package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/classboard/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(email, name, pwd string, isAdmin bool) error {
	nu := user.NewUser{Name: name, Email: email, Password: pwd}
	usr, err := cli.usrSvc.AddOrUpdate(context.Background(), cli.validate, nu, isAdmin)
	if err != nil {
		if vErrs, ok := errors.Cause(err).(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(vErrs))
			for _, fe := range vErrs {
				msgs = append(msgs, fe.Field()+": "+fe.Translate(cli.translator))
			}
			return errors.New("invalid user: " + strings.Join(msgs, ", "))
		}
		return err
	}
	fmt.Printf("user %s <%s> saved (admin: %t)\n", usr.ID, usr.Email, usr.IsAdmin)
	return nil
}
