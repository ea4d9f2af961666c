// Package main is a small operational CLI that provisions staff accounts
// (admins and mentors) for Bilim Points Hub. Passwords are hashed with
// bcrypt before they touch the database; plaintext is never stored.
//
// Usage:
//
//	adduser -username aliya -role admin
//	adduser -username marat -role mentor -password s3cret
//
// When -password is omitted the password is read from stdin, which keeps
// it out of shell history.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/bilim-hub/bilim-points-hub/config"
	"github.com/bilim-hub/bilim-points-hub/internal/infrastructure/persistence/postgres"
)

const (
	roleAdmin  = "admin"
	roleMentor = "mentor"

	// bcryptCost trades hashing speed for resistance to offline cracking.
	bcryptCost = 12

	opTimeout = 10 * time.Second
)

func main() {
	username := flag.String("username", "", "login name for the new account (required)")
	password := flag.String("password", "", "password; read from stdin when omitted")
	role := flag.String("role", roleMentor, "account role: admin or mentor")
	flag.Parse()

	if err := run(*username, *password, *role); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(username, password, role string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("-username is required")
	}
	if role != roleAdmin && role != roleMentor {
		return fmt.Errorf("invalid role %q: must be %q or %q", role, roleAdmin, roleMentor)
	}

	if password == "" {
		var err error
		password, err = readPassword()
		if err != nil {
			return err
		}
	}
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	conn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close()

	var id string
	err = conn.QueryRow(ctx, `
		INSERT INTO staff_accounts (username, password_hash, role)
		VALUES ($1, $2, $3)
		RETURNING id`,
		username, string(hash), role,
	).Scan(&id)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("account %q already exists", username)
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	fmt.Printf("created %s account %q (id %s)\n", role, username, id)
	return nil
}

// readPassword prompts for a password on stdin and requires it twice.
func readPassword() (string, error) {
	reader := bufio.NewReader(os.Stdin)

	fmt.Fprint(os.Stderr, "password: ")
	first, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	fmt.Fprint(os.Stderr, "repeat password: ")
	second, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	first = strings.TrimRight(first, "\r\n")
	second = strings.TrimRight(second, "\r\n")
	if first != second {
		return "", fmt.Errorf("passwords do not match")
	}
	return first, nil
}
