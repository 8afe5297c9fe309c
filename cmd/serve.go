package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/edufarma/edufarma/internal/cache"
	"github.com/edufarma/edufarma/internal/diagnosis"
	"github.com/edufarma/edufarma/internal/observability"
	"github.com/edufarma/edufarma/internal/server"
	"github.com/edufarma/edufarma/internal/translate"
	"github.com/edufarma/edufarma/internal/weather"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log, err := newLogger(cmd)
		if err != nil {
			return err
		}
		defer log.Sync()

		otelCfg := observability.ConfigFromEnv()
		otelCfg.Version = version
		shutdownTracing, err := observability.Init(ctx, log, otelCfg)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(flushCtx); err != nil {
				log.Warn("tracing shutdown failed", "error", err)
			}
		}()

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		provider, err := buildProvider(ctx, cmd, s.EventRepo(), log)
		if err != nil {
			return err
		}
		filter, err := loadFilter(cmd)
		if err != nil {
			return err
		}
		dcfg, err := resolveDiagnoserConfig()
		if err != nil {
			return err
		}
		diagnoser := diagnosis.NewDiagnoser(provider, dcfg,
			diagnosis.WithFilter(filter),
			diagnosis.WithRecorder(s.EventRepo()),
			diagnosis.WithLogger(log),
		)

		c, err := cache.New(ctx, cache.ConfigFromEnv())
		if err != nil {
			return fmt.Errorf("init cache: %w", err)
		}
		defer c.Close()

		cfg := server.ConfigFromEnv()
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Addr = addr
		}
		if mode, _ := cmd.Flags().GetString("log-mode"); mode == "prod" {
			gin.SetMode(gin.ReleaseMode)
		}

		log.Info("starting edufarma",
			"version", version,
			"model", provider.ModelID(),
			"policy_mode", filter.Mode(),
		)
		srv := server.New(cfg, server.Deps{
			Diagnoser:  diagnoser,
			Weather:    weather.NewClient(weather.ConfigFromEnv(), c, log),
			Translator: translate.NewClient(translate.ConfigFromEnv(), c, log),
			ModelID:    provider.ModelID(),
			Log:        log,
		})
		return srv.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides PORT env var)")
}
