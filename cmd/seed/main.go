// seed registers development accounts for local testing.
// Idempotent: accounts whose handle or email already exist are skipped.
package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"videotube/backend/internal/account/domain"
	"videotube/backend/internal/account/repository"
	"videotube/backend/internal/apperr"
	"videotube/backend/internal/config"
	"videotube/backend/internal/db"
	"videotube/backend/internal/identity/service"
	"videotube/backend/internal/logging"
	"videotube/backend/internal/security"
)

const devPassword = "password123"

var devAccounts = []service.RegisterInput{
	{Handle: "devuser", Email: "dev@example.com", FullName: "Dev User", Password: devPassword},
	{Handle: "member", Email: "member@example.com", FullName: "Member User", Password: devPassword},
}

// Registerer creates accounts.
type Registerer interface {
	Register(ctx context.Context, in service.RegisterInput) (*domain.Profile, error)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "seed",
		Short:        "Register development accounts",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return oops.Code("CONFIG_INVALID").Wrap(err)
			}
			if cfg.DatabaseURL == "" {
				return oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
			}
			ctx := cmd.Context()
			pool, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return oops.Code("DB_CONNECT_FAILED").Wrap(err)
			}
			defer pool.Close()

			tokens, err := security.NewTokenIssuer(security.TokenConfig{
				AccessSecret:  cfg.AccessTokenSecret,
				RefreshSecret: cfg.RefreshTokenSecret,
				AccessTTL:     cfg.AccessTTL(),
				RefreshTTL:    cfg.RefreshTTL(),
			})
			if err != nil {
				return err
			}
			logger := logging.New("videotube-seed", cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
			svc := service.NewAuthService(repository.NewPostgresRepository(pool),
				security.NewHasher(cfg.BcryptCost), tokens, service.Options{Logger: logger})
			return seed(ctx, svc, cmd.OutOrStdout())
		},
	}
}

func seed(ctx context.Context, reg Registerer, out io.Writer) error {
	logger := slog.New(slog.NewTextHandler(out, nil))
	for _, in := range devAccounts {
		p, err := reg.Register(ctx, in)
		if errors.Is(err, apperr.ErrConflict) {
			logger.Info("account exists, skipping", "handle", in.Handle)
			continue
		}
		if err != nil {
			return oops.With("handle", in.Handle).Wrapf(err, "register dev account")
		}
		logger.Info("account registered", "handle", p.Handle, "id", p.ID)
	}
	return nil
}
