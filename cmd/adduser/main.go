// Command adduser creates an account from the terminal, for
// provisioning without the web registration form.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"findata/internal/auth"
	"findata/internal/cli"
)

func main() {
	email := flag.String("email", "", "email address of the new account")
	flag.Parse()

	logger := cli.SetupLogger()
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	if *email == "" {
		fmt.Print("Email: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Fprintln(os.Stderr, "read email:", err)
			os.Exit(1)
		}
		*email = strings.TrimSpace(line)
	}

	password, err := readPassword()
	if err != nil {
		fmt.Fprintln(os.Stderr, "read password:", err)
		os.Exit(1)
	}

	svc := auth.NewService(repo, cfg.SessionTTL, cfg.BcryptCost, cfg.DemoEmail)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := svc.Register(ctx, *email, password)
	if err != nil {
		fmt.Fprintln(os.Stderr, "create user:", err)
		os.Exit(1)
	}
	fmt.Printf("Created user %s (id %d)\n", user.Email, user.ID)
}

func readPassword() (string, error) {
	fmt.Print("Password: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	fmt.Print("Repeat password: ")
	confirm, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	if string(raw) != string(confirm) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(raw), nil
}
