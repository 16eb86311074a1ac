package main

import (
	"context"
	"flag"
	"fmt"
	"sort"
	"strings"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/schooloffice/core/student"
	"github.com/trezcool/schooloffice/core/user"
	"github.com/trezcool/schooloffice/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	migrateFunc      = database.Migrate  // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db         *sqlx.DB
	usrSvc     *user.Service
	stdSvc     *student.Service
	validate   *validator.Validate
	translator ut.Translator
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose command (up, up-by-one, up-to, down, down-to, redo, reset, status, version, create, fix)")
	fmt.Println("  adduser -username USERNAME [-email EMAIL] [-name NAME] - create (or reset) an admin; the password is prompted")
	fmt.Println("  resetpassword -username USERNAME|EMAIL - reset user's password; the password is prompted")
	fmt.Println("  backfill - create the delivery statuses & results students are missing")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserUname := addUserCmd.String("username", "", "The admin's username.")
	addUserEmail := addUserCmd.String("email", "", "The admin's email.")
	addUserName := addUserCmd.String("name", "", "The admin's full name.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(user.NewAdmin{
			Username: *addUserUname,
			Email:    *addUserEmail,
			Name:     *addUserName,
			Password: pwd,
		})

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(user.PasswordReset{Username: *resetPasswordUname, Password: pwd})

	case "backfill":
		return cli.backfill()

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", errors.Wrap(err, "reading password")
	}
	return string(pwd), nil
}

func (cli *commandLine) migrate(args []string) error {
	return migrateFunc(cli.db, args[0], args[1:]...)
}

// addUser creates a superuser, or resets the existing one.
func (cli *commandLine) addUser(na user.NewAdmin) error {
	if err := na.Validate(cli.validate); err != nil {
		return cli.validationErr(err)
	}
	usr, err := cli.usrSvc.SaveAdmin(context.Background(), na)
	if err != nil {
		return err
	}
	fmt.Printf("admin %q saved\n", usr.Username)
	return nil
}

func (cli *commandLine) resetPassword(pr user.PasswordReset) error {
	if err := pr.Validate(cli.validate); err != nil {
		return cli.validationErr(err)
	}
	return cli.usrSvc.ResetPassword(context.Background(), pr.Username, pr.Password)
}

func (cli *commandLine) backfill() error {
	n, err := cli.stdSvc.BackfillStatuses(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("%d missing rows created\n", n)
	return nil
}

// validationErr flattens validator errors into a single readable error.
func (cli *commandLine) validationErr(err error) error {
	vErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(vErrs))
	for _, vErr := range vErrs {
		msgs = append(msgs, vErr.Field()+": "+vErr.Translate(cli.translator))
	}
	sort.Strings(msgs)
	return errors.New(strings.Join(msgs, "; "))
}
