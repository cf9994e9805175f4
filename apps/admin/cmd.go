package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/darien/gradebook/core"
	"github.com/darien/gradebook/core/account"
	"github.com/darien/gradebook/core/center"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db       *sql.DB
	centers  *center.Service
	accounts *account.Service

	// ensureSchema brings the database to the current shape.
	ensureSchema func(ctx context.Context) error
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate [up] - create missing tables, retrofit older ones & insert the default rows")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose command: status, version, down, down-to N, redo, up-to N, up-by-one")
	fmt.Println("  addowner -email EMAIL -name NAME - create a platform owner")
	fmt.Println("  addadmin -email EMAIL -name NAME [-center ID] - create an admin of a center")
	fmt.Println("  resetpassword -email EMAIL [-center ID] - reset a staff member's password")
}

// promptPassword reads a password without echoing it. An empty password prints usage.
func promptPassword(fs *flag.FlagSet) (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		fs.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addOwnerCmd := flag.NewFlagSet("addowner", flag.ContinueOnError)
	addOwnerEmail := addOwnerCmd.String("email", "", "The owner's email. The password will be prompted next.")
	addOwnerName := addOwnerCmd.String("name", "", "The owner's full name.")

	addAdminCmd := flag.NewFlagSet("addadmin", flag.ContinueOnError)
	addAdminEmail := addAdminCmd.String("email", "", "The admin's email. The password will be prompted next.")
	addAdminName := addAdminCmd.String("name", "", "The admin's full name.")
	addAdminCenter := addAdminCmd.Int64("center", core.DefaultCenterID, "The center the admin manages.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The staff member's email. The password will be prompted next.")
	resetPasswordCenter := resetPasswordCmd.Int64("center", core.DefaultCenterID, "The staff member's center.")

	ctx := context.Background()

	switch args[1] {
	case "migrate":
		return cli.migrate(ctx, args[2:])

	case "addowner":
		if err := addOwnerCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addOwnerEmail == "" || *addOwnerName == "" {
			addOwnerCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword(addOwnerCmd)
		if err != nil {
			return err
		}
		_, err = cli.accounts.CreateOwner(ctx, account.NewOwner{
			FullName: *addOwnerName,
			Email:    *addOwnerEmail,
			Password: pwd,
		})
		return err

	case "addadmin":
		if err := addAdminCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addAdminEmail == "" || *addAdminName == "" {
			addAdminCmd.Usage()
			return errHelp
		}
		if _, err := cli.centers.Get(ctx, *addAdminCenter); err != nil {
			return err
		}
		pwd, err := promptPassword(addAdminCmd)
		if err != nil {
			return err
		}
		_, err = cli.accounts.CreateStaff(ctx, *addAdminCenter, account.NewStaff{
			FullName: *addAdminName,
			Email:    *addAdminEmail,
			Role:     account.RoleAdmin,
			Password: pwd,
		})
		return err

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword(resetPasswordCmd)
		if err != nil {
			return err
		}
		_, err = cli.accounts.ResetStaffPassword(ctx, *resetPasswordCenter, *resetPasswordEmail, pwd)
		return err

	default:
		cli.printUsage()
		return errHelp
	}
}
