package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"volunteerhub/api/internal/apiclient"
	"volunteerhub/api/internal/session"
)

// readPassword is swapped out in tests.
var readPassword = func() (string, error) {
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	return string(pw), err
}

const usage = `usage: client [--api URL] <command> [flags]

commands:
  register --name NAME --email EMAIL
  login    --email EMAIL
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(zerolog.WarnLevel).
		With().Timestamp().Logger()

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, logger))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer, logger zerolog.Logger) int {
	global := pflag.NewFlagSet("client", pflag.ContinueOnError)
	global.SetInterspersed(false)
	global.SetOutput(stdout)
	apiURL := global.String("api", envOr("VOLUNTEER_API_URL", "http://localhost:5000"), "base URL of the API")
	if err := global.Parse(args); err != nil {
		return 2
	}
	if global.NArg() == 0 {
		fmt.Fprint(stdout, usage)
		return 2
	}

	nav := session.NavigatorFunc(func(route string) {
		fmt.Fprintf(stdout, "-> %s\n", route)
	})
	store := session.New(apiclient.New(*apiURL), nav, session.WithLogger(logger))
	defer store.Close()

	reader := bufio.NewReader(stdin)
	var err error
	switch cmd, rest := global.Arg(0), global.Args()[1:]; cmd {
	case "register":
		err = register(ctx, store, rest, reader, stdout)
	case "login":
		err = login(ctx, store, rest, reader, stdout)
	default:
		fmt.Fprintf(stdout, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}
	if err != nil {
		fmt.Fprintf(stdout, "Error: %v\n", err)
		return 1
	}
	return 0
}

func register(ctx context.Context, store *session.Store, args []string, reader *bufio.Reader, stdout io.Writer) error {
	fs := pflag.NewFlagSet("register", pflag.ContinueOnError)
	fs.SetOutput(stdout)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var err error
	if *name == "" {
		if *name, err = prompt(reader, stdout, "Name: "); err != nil {
			return err
		}
	}
	if *email == "" {
		if *email, err = prompt(reader, stdout, "Email: "); err != nil {
			return err
		}
	}
	password, err := promptPassword(stdout, "Password: ")
	if err != nil {
		return err
	}
	confirm, err := promptPassword(stdout, "Confirm password: ")
	if err != nil {
		return err
	}
	if *name == "" || *email == "" || password == "" {
		return errors.New("please fill in all fields")
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}

	user, err := store.Register(ctx, *name, *email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Account created for %s. Log in to continue.\n", user.Email)
	return nil
}

func login(ctx context.Context, store *session.Store, args []string, reader *bufio.Reader, stdout io.Writer) error {
	fs := pflag.NewFlagSet("login", pflag.ContinueOnError)
	fs.SetOutput(stdout)
	email := fs.String("email", "", "email address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var err error
	if *email == "" {
		if *email, err = prompt(reader, stdout, "Email: "); err != nil {
			return err
		}
	}
	password, err := promptPassword(stdout, "Password: ")
	if err != nil {
		return err
	}
	if *email == "" || password == "" {
		return errors.New("please enter both email and password")
	}

	if err := store.Login(ctx, *email, password); err != nil {
		return err
	}

	user, err := store.Profile(ctx)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	fmt.Fprintf(stdout, "Signed in as %s <%s>\n", user.Name, user.Email)
	if target, ok := session.Redirect(store.Snapshot(), session.LoginRoute); ok {
		fmt.Fprintf(stdout, "-> %s\n", target)
	}
	return nil
}

func prompt(reader *bufio.Reader, w io.Writer, label string) (string, error) {
	fmt.Fprint(w, label)
	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func promptPassword(w io.Writer, label string) (string, error) {
	fmt.Fprint(w, label)
	pw, err := readPassword()
	fmt.Fprintln(w)
	return pw, err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
