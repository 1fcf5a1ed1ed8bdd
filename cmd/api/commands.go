package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BradenHooton/muscuscope/internal/config"
	"github.com/BradenHooton/muscuscope/internal/models"
	"github.com/BradenHooton/muscuscope/internal/services"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbCfg, err := config.LoadDatabase()
			if err != nil {
				return err
			}
			logger := newLogger(os.Getenv("LOG_LEVEL"))

			st, err := openStore(cmd.Context(), dbCfg, true, logger)
			if err != nil {
				return err
			}
			st.close()

			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func createUserCmd() *cobra.Command {
	var (
		username      string
		email         string
		roles         []string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a user account",
		Long: `Create a user account. The password is read from the MUSCUSCOPE_PASSWORD
environment variable, or from the first line of stdin with --password-stdin.
ROLE_USER is always granted; --role adds more (e.g. --role admin).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd.InOrStdin(), passwordStdin)
			if err != nil {
				return err
			}

			dbCfg, err := config.LoadDatabase()
			if err != nil {
				return err
			}
			logger := newLogger(os.Getenv("LOG_LEVEL"))

			st, err := openStore(cmd.Context(), dbCfg, false, logger)
			if err != nil {
				return err
			}
			defer st.close()

			return createUser(cmd.Context(), cmd.OutOrStdout(), services.NewUserService(st.users, logger),
				username, email, password, roles)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username (required)")
	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "Additional role, repeatable")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

type userCreator interface {
	CreateUser(ctx context.Context, username, email, password string, roles []string) (*models.User, error)
}

func createUser(ctx context.Context, out io.Writer, svc userCreator, username, email, password string, roles []string) error {
	user, err := svc.CreateUser(ctx, username, email, password, roles)
	switch {
	case errors.Is(err, models.ErrConflict):
		return fmt.Errorf("a user with that username or email already exists")
	case err != nil:
		return err
	}

	fmt.Fprintf(out, "created user %d (%s) with roles %s\n", user.ID, user.Username, strings.Join(user.Roles, ","))
	return nil
}

func readPassword(in io.Reader, fromStdin bool) (string, error) {
	if !fromStdin {
		if password := os.Getenv("MUSCUSCOPE_PASSWORD"); password != "" {
			return password, nil
		}
		return "", fmt.Errorf("set MUSCUSCOPE_PASSWORD or pass --password-stdin")
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", fmt.Errorf("empty password on stdin")
	}
	return password, nil
}

