package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"skillswap/internal/models"
	"skillswap/internal/repositories"
	"skillswap/pkg/config"
	"skillswap/pkg/database"
	appErr "skillswap/pkg/errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema (sqlite and postgres stores)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()

			if cfg.StoreDriver != config.DriverSQLite && cfg.StoreDriver != config.DriverPostgres {
				return fmt.Errorf("migrate needs a SQL store driver, STORE_DRIVER is %q", cfg.StoreDriver)
			}
			db, err := database.Open(cmd.Context(), cfg.StoreDriver, cfg.DatabaseDSN, log, database.LogLevelFor(cfg.AppEnv))
			if err != nil {
				return err
			}
			store := repositories.NewGORMStore(db)
			defer store.Close()

			if err := database.Migrate(db); err != nil {
				return err
			}
			log.Info("migrations applied", zap.String("driver", cfg.StoreDriver))
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

// withStore runs fn against the configured store.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, store *repositories.Store) error) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	store, err := repositories.Open(cmd.Context(), cfg, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	return fn(cmd.Context(), store)
}

func newSeedCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert demo users and one admin account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(ctx context.Context, store *repositories.Store) error {
				n, err := seedUsers(ctx, store.Users, password, cmd.OutOrStdout())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d users\n", n)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&password, "password", "password123", "password for every seeded account")
	return cmd
}

func newAdminCmd() *cobra.Command {
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Manage administrator accounts",
	}
	admin.AddCommand(
		adminRoleCmd("grant <email>", "Give a user admin rights", true),
		adminRoleCmd("revoke <email>", "Remove a user's admin rights", false),
	)
	return admin
}

func adminRoleCmd(use, short string, grant bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, store *repositories.Store) error {
				u, err := setAdmin(ctx, store.Users, args[0], grant)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s isAdmin=%t\n", u.Email, u.IsAdmin)
				return nil
			})
		},
	}
}

func setAdmin(ctx context.Context, users repositories.UserRepository, email string, admin bool) (*models.User, error) {
	u, err := users.FindByEmail(ctx, models.NormalizeEmail(email))
	if err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, fmt.Errorf("no user with email %s", email)
		}
		return nil, err
	}
	return users.Update(ctx, u.ID, models.UserPatch{IsAdmin: models.Bool(admin)})
}

type demoUser struct {
	name, email, location, bio string
	offered, wanted            []models.Skill
	availability               models.Availability
	admin                      bool
}

var demoUsers = []demoUser{
	{
		name: "Admin", email: "admin@skillswap.local", location: "Remote",
		bio:   "Platform administrator",
		admin: true,
	},
	{
		name: "Alice Johnson", email: "alice@skillswap.local", location: "Seattle, WA",
		bio: "Frontend developer who plays guitar on weekends",
		offered: []models.Skill{
			{Name: "JavaScript", Level: "Expert"},
			{Name: "Guitar", Level: "Intermediate"},
		},
		wanted:       []models.Skill{{Name: "Spanish", Priority: "High"}},
		availability: models.Availability{Weekends: true, Evenings: true},
	},
	{
		name: "Bob Martinez", email: "bob@skillswap.local", location: "Portland, OR",
		bio: "Native Spanish speaker learning to code",
		offered: []models.Skill{
			{Name: "Spanish", Level: "Expert"},
			{Name: "Cooking", Level: "Advanced"},
		},
		wanted:       []models.Skill{{Name: "JavaScript", Priority: "High"}, {Name: "Photography", Priority: "Low"}},
		availability: models.Availability{Weekdays: true, Evenings: true},
	},
	{
		name: "Carol Chen", email: "carol@skillswap.local", location: "Seattle, WA",
		bio:          "Photographer and amateur baker",
		offered:      []models.Skill{{Name: "Photography", Level: "Advanced"}},
		wanted:       []models.Skill{{Name: "Guitar", Priority: "Medium"}},
		availability: models.Availability{Weekends: true, Mornings: true},
	},
}

// seedUsers creates the demo accounts that do not exist yet and returns how
// many were created.
func seedUsers(ctx context.Context, users repositories.UserRepository, password string, out io.Writer) (int, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("failed to hash password: %w", err)
	}

	created := 0
	for _, d := range demoUsers {
		if _, err := users.FindByEmail(ctx, d.email); err == nil {
			fmt.Fprintf(out, "skipping %s: already exists\n", d.email)
			continue
		} else if !appErr.IsCode(err, appErr.CodeNotFound) {
			return created, err
		}

		u := &models.User{
			Name:          d.name,
			Email:         d.email,
			PasswordHash:  string(hash),
			Bio:           d.bio,
			Location:      d.location,
			Availability:  d.availability,
			SkillsOffered: d.offered,
			SkillsWanted:  d.wanted,
		}
		u.PrepareCreate(time.Now())
		if err := users.Create(ctx, u); err != nil {
			return created, fmt.Errorf("seed %s: %w", d.email, err)
		}
		if d.admin {
			if _, err := users.Update(ctx, u.ID, models.UserPatch{IsAdmin: models.Bool(true)}); err != nil {
				return created, fmt.Errorf("seed %s: %w", d.email, err)
			}
		}
		created++
	}
	return created, nil
}
