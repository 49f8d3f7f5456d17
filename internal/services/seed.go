package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/usermanager/internal/models"
)

// SeedConfig describes the initial data created on an empty database
type SeedConfig struct {
	SuperAdminUserName string
	AdminPassword      string
	UserPassword       string
	DemoUserName       string
}

// Seeder ensures the built-in roles exist and, on an empty account table,
// creates the super admin and a demo user
type Seeder struct {
	store   AccountStore
	hasher  PasswordHasher
	logger  *slog.Logger
	bounded boundedStore
}

func NewSeeder(store AccountStore, hasher PasswordHasher, logger *slog.Logger, storeTimeout time.Duration) *Seeder {
	return &Seeder{store: store, hasher: hasher, logger: logger, bounded: boundedStore{timeout: storeTimeout}}
}

func (s *Seeder) Seed(ctx context.Context, cfg SeedConfig) error {
	sctx, cancel := s.bounded.ctx(ctx)
	defer cancel()

	for _, role := range []string{models.RoleAdmin, models.RoleUser} {
		if err := s.store.CreateRole(sctx, role); err != nil {
			return fmt.Errorf("failed to create role %s: %w", role, s.bounded.err(sctx, err))
		}
	}

	count, err := s.store.Count(sctx)
	if err != nil {
		return fmt.Errorf("failed to count accounts: %w", s.bounded.err(sctx, err))
	}
	if count > 0 {
		s.logger.Debug("accounts present, skipping seed", slog.Int64("count", count))
		return nil
	}

	demo := cfg.DemoUserName
	if demo == "" {
		demo = "user@example.com"
	}

	seeds := []struct {
		userName  string
		firstName string
		lastName  string
		password  string
		roles     []string
	}{
		{normalize(cfg.SuperAdminUserName), "admin", "administrator", cfg.AdminPassword, []string{models.RoleAdmin, models.RoleUser}},
		{normalize(demo), "user", "user", cfg.UserPassword, []string{models.RoleUser}},
	}

	for _, seed := range seeds {
		hash, err := s.hasher.Hash(seed.password)
		if err != nil {
			return fmt.Errorf("failed to hash seed password: %w", err)
		}

		account, err := s.store.Create(sctx, &models.Account{
			UserName:     seed.userName,
			Email:        seed.userName,
			PasswordHash: hash,
			FirstName:    seed.firstName,
			LastName:     seed.lastName,
			CreatedAt:    time.Now().UTC(),
			Roles:        seed.roles,
		})
		if err != nil {
			return fmt.Errorf("failed to seed account: %w", s.bounded.err(sctx, err))
		}

		s.logger.Info("seeded account", slog.String("account_id", account.ID), slog.Any("roles", account.Roles))
	}

	return nil
}
