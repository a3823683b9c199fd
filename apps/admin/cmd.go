package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/analytics"
	"github.com/trezcool/alama/core/student"
	"github.com/trezcool/alama/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db           *sql.DB
	conf         *core.Config
	logger       core.Logger
	out          io.Writer
	usrSvc       *user.Service
	studentSvc   *student.Service
	analyticsSvc *analytics.Service
	mailSvc      core.EmailService
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  adduser -username USERNAME -email EMAIL [-admin] - create or update an active user")
	fmt.Fprintln(cli.out, "  resetpassword -username USERNAME|EMAIL - reset user's password")
	fmt.Fprintln(cli.out, "  importstudents -file FILE - import students from a CSV file")
	fmt.Fprintln(cli.out, "  exportstudents [-file FILE] [-class ID] - export students as CSV")
	fmt.Fprintln(cli.out, "  createaccounts - create the missing student accounts")
	fmt.Fprintln(cli.out, "  riskreport [-to EMAIL,...] - print the at-risk report and optionally email it")
}

// promptPassword reads a password from the terminal without echoing it.
func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserUname := addUserCmd.String("username", "", "The user's username.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Grant the admin role. The password will be prompted next.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	importCmd := flag.NewFlagSet("importstudents", flag.ExitOnError)
	importFile := importCmd.String("file", "", "CSV file laid out as code,name,birth_date,gender,class,gpa.")

	exportCmd := flag.NewFlagSet("exportstudents", flag.ExitOnError)
	exportFile := exportCmd.String("file", "", "Destination CSV file. Defaults to stdout.")
	exportClass := exportCmd.Int("class", 0, "Only export the students of this class ID.")

	reportCmd := flag.NewFlagSet("riskreport", flag.ExitOnError)
	reportTo := reportCmd.String("to", "", "Comma separated recipients of the report.")

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
		if *addUserUname == "" && *addUserEmail == "" {
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
		return cli.addUser(*addUserUname, *addUserEmail, pwd, *addUserAdmin)

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
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "importstudents":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importFile == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importStudents(*importFile)

	case "exportstudents":
		if err := exportCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.exportStudents(*exportFile, *exportClass)

	case "createaccounts":
		return cli.createAccounts()

	case "riskreport":
		if err := reportCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.riskReport(splitRecipients(*reportTo))

	default:
		cli.printUsage()
		return errHelp
	}
}

func splitRecipients(s string) []string {
	var out []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
