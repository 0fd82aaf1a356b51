// Command server exposes a DocQL engine over TCP and HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/nickyhof/DocQL"
	"github.com/nickyhof/DocQL/config"
	"github.com/nickyhof/DocQL/core"
	"github.com/nickyhof/DocQL/logger"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "Path to a config file (yaml, json or toml)")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("DocQL Server v%s\n", Version)
		return
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "docql-server: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(config.EnvPrefix, configPath)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		AddSource: cfg.Log.AddSource,
	})

	if !strings.EqualFold(cfg.Log.Level, "DEBUG") {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	instance, err := DocQL.OpenConfigured(ctx, cfg)
	if err != nil {
		return err
	}
	defer instance.Close(context.Background())
	instance.Logger = log
	log.Info("store opened", "backend", cfg.Store.Backend, "version", Version)

	opts := []Option{
		WithLogger(log),
		WithRateLimit(cfg.Server.RateLimit, cfg.Server.Burst),
		WithBatchConcurrency(cfg.Batch.Concurrency),
	}
	if cfg.Server.JWTSecret != "" {
		opts = append(opts, WithAuth(&AuthConfig{
			Enabled:   true,
			JWTSecret: cfg.Server.JWTSecret,
			Issuer:    cfg.Server.Issuer,
			Audience:  cfg.Server.Audience,
		}))
	}

	identity := core.Identity{Name: cfg.Identity.Name, Email: cfg.Identity.Email}
	server := NewServer(instance, identity, opts...)

	if cfg.Server.TLSCert != "" {
		err = server.StartTLS(cfg.Server.Addr, cfg.Server.TLSCert, cfg.Server.TLSKey)
	} else {
		err = server.Start(cfg.Server.Addr)
	}
	if err != nil {
		return err
	}

	if cfg.Server.HTTPAddr != "" {
		if err := server.StartHTTP(cfg.Server.HTTPAddr); err != nil {
			server.Stop()
			return err
		}
	}

	<-ctx.Done()
	log.Info("shutting down")
	return server.Stop()
}
