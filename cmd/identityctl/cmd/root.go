package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	goIdentity "github.com/MrEthical07/goIdentity"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "identityctl",
	Short: "Operate a goIdentity deployment",
	Long: `Administrative commands for the goIdentity store, sessions and runtime settings.
Connection details come from the GOIDENTITY_* environment variables.`,
	SilenceUsage: true,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log engine warnings to stderr")
}

func logger() *slog.Logger {
	level := slog.LevelError
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func loadConfig() (goIdentity.Config, error) {
	return goIdentity.LoadConfigFromEnv()
}

func openEngine(ctx context.Context) (*goIdentity.Engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := logger()
	return goIdentity.Open(ctx, cfg, func(b *goIdentity.Builder) { b.WithLogger(log) })
}

func redisClient(cfg goIdentity.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}
