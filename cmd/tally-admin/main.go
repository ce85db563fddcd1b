// Command tally-admin creates user accounts from the terminal, bypassing
// the HTTP registration flow. Useful for bootstrapping and for operators
// who need to mint an admin without going through role grants by hand.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"tally/internal/config"
	"tally/internal/core"
	"tally/internal/services"
	"tally/internal/storage"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("tally-admin", flag.ContinueOnError)
	fs.SetOutput(stderr)

	username := fs.String("user", "", "Username")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	admin := fs.Bool("admin", false, "Also grant the Admin role")
	dbPath := fs.String("db", "", "Path to database file (defaults to SQLITE_DB_PATH)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *username == "" {
		fmt.Fprintln(stdout, "Usage: tally-admin -user <username> [-password <password>] [-admin] [-db <db_path>]")
		fs.PrintDefaults()
		return fmt.Errorf("missing required flag: user")
	}

	password := *passwordFlag
	if password == "" {
		fmt.Fprint(stdout, "Password: ")
		var err error
		password, err = readPassword(stdin)
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		fmt.Fprintln(stdout)
	}
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("password cannot be empty")
	}

	path := *dbPath
	if path == "" {
		path = config.Load().SQLiteDBPath
	}

	store, err := storage.NewSQLiteRepository(path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	accounts := services.NewAccountService(store, 0, bcrypt.DefaultCost, logger)
	user, err := accounts.Register(ctx, *username, password)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	if *admin {
		role, err := store.EnsureRole(ctx, core.RoleAdmin)
		if err != nil {
			return fmt.Errorf("ensure admin role: %w", err)
		}
		if err := store.GrantRole(ctx, user.ID, role.ID); err != nil {
			return fmt.Errorf("grant admin role: %w", err)
		}
	}

	fmt.Fprintf(stdout, "User %s created with ID %d", user.Username, user.ID)
	if *admin {
		fmt.Fprint(stdout, " (admin)")
	}
	fmt.Fprintln(stdout)
	return nil
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	// Non-terminal stdin (tests, pipes).
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
