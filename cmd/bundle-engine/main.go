package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kctmenswear/bundle-engine/internal/profile"
	"github.com/kctmenswear/bundle-engine/server"
	"github.com/kctmenswear/bundle-engine/server/scoring"
	"github.com/kctmenswear/bundle-engine/store/cache"
)

const (
	greetingBanner = `Bundle scoring engine for KCT Menswear.`
)

var (
	version = "0.1.0"

	rootCmd = &cobra.Command{
		Use:   "bundle-engine",
		Short: "Bundle scoring and caching service",
		Run: func(_ *cobra.Command, _ []string) {
			instanceProfile := &profile.Profile{
				Mode:    viper.GetString("mode"),
				Addr:    viper.GetString("addr"),
				Port:    viper.GetInt("port"),
				Version: version,
			}
			instanceProfile.FromEnv()
			if err := instanceProfile.Validate(); err != nil {
				slog.Error("invalid configuration", slog.Any("error", err))
				return
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			backend := newCacheBackend(instanceProfile)
			cacheLayer := cache.New(backend, &cache.Config{
				KeyPrefix:            instanceProfile.CachePrefix,
				CompressionThreshold: instanceProfile.CompressionThreshold,
			})

			advisory := scoring.NewAdvisoryClient(&scoring.AdvisoryConfig{
				Enabled: instanceProfile.IsAdvisoryEnabled(),
				BaseURL: instanceProfile.AdvisoryBaseURL,
				APIKey:  instanceProfile.AdvisoryAPIKey,
				Timeout: instanceProfile.AdvisoryTimeout,
			})

			engine, err := scoring.NewEngine(cacheLayer, scoring.DefaultEvaluators(advisory))
			if err != nil {
				slog.Error("failed to create scoring engine", slog.Any("error", err))
				return
			}

			s, err := server.NewServer(ctx, instanceProfile, cacheLayer, engine)
			if err != nil {
				slog.Error("failed to create server", slog.Any("error", err))
				return
			}

			if err := s.Start(ctx); err != nil {
				slog.Error("failed to start server", slog.Any("error", err))
				return
			}

			printGreetings(instanceProfile)

			c := make(chan os.Signal, 1)
			signal.Notify(c, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-c
				s.Shutdown(ctx)
				cancel()
			}()

			<-ctx.Done()
		},
	}
)

// newCacheBackend connects to Redis when it is reachable. Outside prod mode a
// connection failure falls back to the in-memory backend so the engine stays
// usable without infrastructure.
func newCacheBackend(instanceProfile *profile.Profile) cache.Backend {
	backend, err := cache.NewRedisBackend(&cache.RedisBackendConfig{
		Addr:     instanceProfile.RedisAddr,
		Password: instanceProfile.RedisPassword,
		DB:       instanceProfile.RedisDB,
		PoolSize: instanceProfile.RedisPoolSize,
	})
	if err == nil {
		return backend
	}
	if !instanceProfile.IsDev() {
		slog.Error("redis backend unavailable, cache will run degraded", slog.Any("error", err))
		return cache.NewFailingBackend(err)
	}
	slog.Warn("redis backend unavailable, falling back to in-memory cache", slog.Any("error", err))
	return cache.NewMemoryBackend()
}

func printGreetings(instanceProfile *profile.Profile) {
	fmt.Println(greetingBanner)
	fmt.Printf("Version %s has been started on %s in %s mode\n", instanceProfile.Version, instanceProfile.ListenAddr(), instanceProfile.Mode)
}

func init() {
	rootCmd.PersistentFlags().String("mode", "demo", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8081, "port of server")

	if err := viper.BindPFlag("mode", rootCmd.PersistentFlags().Lookup("mode")); err != nil {
		panic(err)
	}
	if err := viper.BindPFlag("addr", rootCmd.PersistentFlags().Lookup("addr")); err != nil {
		panic(err)
	}
	if err := viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port")); err != nil {
		panic(err)
	}

	viper.SetDefault("mode", "demo")
	viper.SetDefault("addr", "")
	viper.SetDefault("port", 8081)
	viper.SetEnvPrefix("kct")
	viper.AutomaticEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("failed to execute command", slog.Any("error", err))
		os.Exit(1)
	}
}
