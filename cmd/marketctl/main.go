// Command marketctl holds operator utilities for the marketplace backend:
// applying database migrations and minting session tokens for local testing.
//
//	marketctl migrate [-d dsn]
//	marketctl token -user <id> [-name n] [-email e] [-ttl 24h] [-prompt]
//	marketctl secret
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/bazaar/internal/buildinfo"
	"github.com/dmitrijs2005/bazaar/internal/common"
	"github.com/dmitrijs2005/bazaar/internal/server/auth"
	"github.com/dmitrijs2005/bazaar/internal/server/config"
	"github.com/dmitrijs2005/bazaar/internal/server/repositories/repomanager"
	"golang.org/x/term"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// migrate is a test seam; the real one opens the configured database.
var migrate = func(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		return err
	}
	return rm.RunMigrations(ctx, db)
}

var errUsage = errors.New("usage: marketctl <migrate|token|secret|version> [flags]")

func main() {
	if err := run(context.Background(), os.Args[1:], config.LoadConfig(), os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, cfg *config.Config, w io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "migrate":
		if err := migrate(ctx, cfg.DatabaseDSN); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		fmt.Fprintln(w, "migrations applied")
		return nil
	case "token":
		return issueToken(args[1:], cfg, w)
	case "secret":
		key, err := common.MakeRandHexString(32)
		if err != nil {
			return fmt.Errorf("secret: %w", err)
		}
		fmt.Fprintln(w, key)
		return nil
	case "version":
		buildinfo.PrintBuildData(w)
		return nil
	default:
		return errUsage
	}
}

func issueToken(args []string, cfg *config.Config, w io.Writer) error {
	var (
		s      auth.Session
		ttl    time.Duration
		prompt bool
	)

	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&s.UserID, "user", "", "user id placed in the token subject")
	fs.StringVar(&s.Name, "name", "", "display name claim")
	fs.StringVar(&s.Email, "email", "", "email claim")
	fs.DurationVar(&ttl, "ttl", 24*time.Hour, "token validity")
	fs.BoolVar(&prompt, "prompt", false, "read the signing secret from the terminal")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if s.UserID == "" {
		return errors.New("token: -user is required")
	}

	secret := []byte(cfg.SessionSecretKey)
	if prompt {
		fmt.Fprint(w, "Enter signing secret: ")
		pw, err := readPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(w)
		if err != nil {
			return fmt.Errorf("token: read secret: %w", err)
		}
		secret = pw
	}

	tok, err := auth.GenerateToken(s, cfg.SessionIssuer, secret, ttl)
	if err != nil {
		return fmt.Errorf("token: %w", err)
	}
	fmt.Fprintln(w, tok)
	return nil
}
