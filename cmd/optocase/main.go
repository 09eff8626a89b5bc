package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/yungbote/optocase-backend/internal/app"
	"github.com/yungbote/optocase-backend/internal/data/db"
	types "github.com/yungbote/optocase-backend/internal/domain"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
)

func main() {
	var envFile string

	rootCmd := &cobra.Command{
		Use:   "optocase",
		Short: "OptoCase - clinical case backend for optometry education",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				if err := godotenv.Load(envFile); err != nil {
					return fmt.Errorf("load env file %q: %w", envFile, err)
				}
				return nil
			}
			// Best effort on the default; a missing .env is not an error.
			_ = godotenv.Load()
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "env file to load before running")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(useraddCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	a, err := app.New()
	if err != nil {
		return err
	}
	defer a.Close()

	a.Start()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return a.Run(ctx)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations and raw indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newCLILogger()
			if err != nil {
				return err
			}
			defer log.Sync()

			pg, err := db.NewPostgresService(log)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			if err := pg.AutoMigrateAll(); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Printf("%s schema migrated\n", color.New(color.FgGreen).Sprint("✓"))
			return nil
		},
	}
}

func useraddCmd() *cobra.Command {
	var (
		email     string
		username  string
		password  string
		role      string
		firstName string
		lastName  string
	)
	cmd := &cobra.Command{
		Use:   "useradd",
		Short: "Provision a user (professors and admins are created here, not via the API)",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newCLILogger()
			if err != nil {
				return err
			}
			defer log.Sync()

			email = strings.ToLower(strings.TrimSpace(email))
			username = strings.ToLower(strings.TrimSpace(username))
			if email == "" || username == "" {
				return fmt.Errorf("--email and --username are required")
			}
			r := types.Role(strings.ToLower(strings.TrimSpace(role)))
			if !r.Valid() {
				return fmt.Errorf("invalid role %q (want student, professor or admin)", role)
			}
			if password == "" {
				password, err = promptPassword()
				if err != nil {
					return err
				}
			}
			if len(password) < 8 {
				return fmt.Errorf("password must be at least 8 characters")
			}

			pg, err := db.NewPostgresService(log)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			if err := pg.AutoMigrateAll(); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			user := &types.User{
				Email:        email,
				Username:     username,
				PasswordHash: string(hash),
				Role:         r,
				FirstName:    strings.TrimSpace(firstName),
				LastName:     strings.TrimSpace(lastName),
			}

			gdb := pg.DB().WithContext(cmd.Context())
			var existing types.User
			if err := gdb.Where("email = ?", email).First(&existing).Error; err == nil {
				return fmt.Errorf("user with email %s already exists", email)
			}
			if err := gdb.Create(user).Error; err != nil {
				return fmt.Errorf("create user: %w", err)
			}

			fmt.Printf("%s created %s %s (%s)\n",
				color.New(color.FgGreen).Sprint("✓"),
				color.New(color.FgCyan).Sprint(r),
				username, email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address (required)")
	cmd.Flags().StringVar(&username, "username", "", "username (required)")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	cmd.Flags().StringVar(&role, "role", "student", "role: student, professor or admin")
	cmd.Flags().StringVar(&firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name")
	return cmd
}

func promptPassword() (string, error) {
	fmt.Print("password: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newCLILogger() (*logger.Logger, error) {
	mode := os.Getenv("LOG_MODE")
	if mode == "" {
		mode = "development"
	}
	log, err := logger.New(mode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}
