package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"ulasan/internal/models"
	"ulasan/internal/repositories"
	"ulasan/internal/services"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

func newUserCmd() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	userCmd.AddCommand(newUserCreateCmd())
	return userCmd
}

func newUserCreateCmd() *cobra.Command {
	var (
		username string
		password string
		admin    bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Long: `Create a user.

Without --password the password is read from the terminal. With --admin
the user is created with the admin role, or promoted if it already exists.

Example:
  ulasan user create --username alice
  ulasan user create --username root --admin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				return errors.New("--username is required")
			}
			if password == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Password: ")
				raw, err := readPassword(int(os.Stdin.Fd()))
				fmt.Fprintln(cmd.OutOrStdout())
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimSpace(string(raw))
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			authService := services.NewAuthService(repositories.NewGORMUserRepository(db), cfg.SessionSecret, time.Hour)

			role := models.RoleUser
			if admin {
				role = models.RoleAdmin
				err = authService.EnsureAdmin(username, password)
			} else {
				err = authService.RegisterUser(&models.User{Username: username, Password: password})
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %s saved with role %s\n", username, role)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when empty)")
	cmd.Flags().BoolVar(&admin, "admin", false, "grant the admin role")
	return cmd
}
