package main

import (
	"context"
	"fmt"
	"os"

	"github.com/VPRamon/TSI-sub000/internal/app"
	"github.com/VPRamon/TSI-sub000/internal/cli"
	"github.com/VPRamon/TSI-sub000/internal/service"
	"github.com/VPRamon/TSI-sub000/pkg/config"
	"github.com/VPRamon/TSI-sub000/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logr, err := logger.New(cfg, "tsi-admin")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logr.Sync() //nolint:errcheck

	load := func(ctx context.Context) (*cli.Services, error) {
		a, err := app.New(ctx, cfg, logr)
		if err != nil {
			return nil, err
		}
		return &cli.Services{
			Schedules: a.Schedules,
			Analytics: a.Analytics,
			Exports:   a.Exports,
			Logger:    logr,
			Start:     a.Start,
			Close:     a.Close,
		}, nil
	}
	auth := func() (cli.TokenIssuer, error) {
		if cfg.JWT.Secret == "" {
			return nil, fmt.Errorf("JWT_SECRET is not set")
		}
		return service.NewAuthService(service.AuthConfig{
			Secret: cfg.JWT.Secret,
			Issuer: cfg.JWT.Issuer,
			TTL:    cfg.JWT.Expiration,
		}, logr), nil
	}

	if err := cli.RootCmd(load, auth).Execute(); err != nil {
		os.Exit(1)
	}
}
