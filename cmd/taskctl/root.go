package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"task-manager-api/internal/app"
	"task-manager-api/internal/core/config"
	"task-manager-api/internal/core/logger"
	"task-manager-api/internal/domain"
)

type rootOpts struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	o := &rootOpts{}
	root := &cobra.Command{
		Use:           "taskctl",
		Short:         "Operations tool for the task manager",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&o.configPath, "config", "", "config file (default $CONFIG_PATH or ./configs/config.local.yaml)")

	root.AddCommand(newMigrateCmd(o), newUserCmd(o), newTokenCmd(o))
	return root
}

// open builds the app without the HTTP layer. migrate forces table migration.
func (o *rootOpts) open(migrate bool) (*app.App, func(), error) {
	path := o.configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "./configs/config.local.yaml"
	}
	cfg, err := config.Read(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if migrate {
		cfg.DB.AutoMigrate = true
	}
	log, cleanup := logger.FromConfig(cfg.Log)
	a, err := app.New(cfg, log)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return a, func() { a.Close(); cleanup() }, nil
}

func newMigrateCmd(o *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the users, tasks and user_tasks tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, done, err := o.open(true)
			if err != nil {
				return err
			}
			defer done()
			fmt.Fprintln(cmd.OutOrStdout(), "migrated")
			return nil
		},
	}
}

func newUserCmd(o *rootOpts) *cobra.Command {
	userCmd := &cobra.Command{Use: "user", Short: "Manage users"}

	var email, password, role string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user, typically the first admin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, ok := domain.ParseRole(role)
			if !ok {
				return fmt.Errorf("unknown role %q", role)
			}
			a, done, err := o.open(false)
			if err != nil {
				return err
			}
			defer done()
			u, err := a.Users.CreateUser(cmd.Context(), email, password, r)
			if err != nil {
				return err
			}
			a.Log.Info("user created from cli", zap.Int64("user_id", u.ID))
			fmt.Fprintf(cmd.OutOrStdout(), "created user %d %s %s\n", u.ID, u.Email, u.Role)
			return nil
		},
	}
	create.Flags().StringVar(&email, "email", "", "login email")
	create.Flags().StringVar(&password, "password", "", "password, at least 6 characters")
	create.Flags().StringVar(&role, "role", string(domain.RoleUser), "USER or ADMIN")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("password")

	userCmd.AddCommand(create)
	return userCmd
}

func newTokenCmd(o *rootOpts) *cobra.Command {
	tokenCmd := &cobra.Command{Use: "token", Short: "Work with access tokens"}

	var userID int64
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Print a signed access token for an existing user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, done, err := o.open(false)
			if err != nil {
				return err
			}
			defer done()
			tok, err := a.Users.IssueToken(cmd.Context(), userID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	issue.Flags().Int64Var(&userID, "user-id", 0, "user id")
	_ = issue.MarkFlagRequired("user-id")

	tokenCmd.AddCommand(issue)
	return tokenCmd
}
