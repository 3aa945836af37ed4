package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/beanvault/beanvault/internal/config"
	"github.com/beanvault/beanvault/internal/infra/database"
	"github.com/beanvault/beanvault/internal/infra/repository"
	"github.com/beanvault/beanvault/internal/infra/telemetry"
	"github.com/beanvault/beanvault/internal/present/rest"
	authmiddleware "github.com/beanvault/beanvault/internal/present/rest/middleware"
	"github.com/beanvault/beanvault/internal/service"
	"github.com/beanvault/beanvault/internal/usecase"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "beanvault",
		Short: "Coffee catalog and container assignment service",
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := config.Load(configPath)
			if err != nil {
				return err
			}

			db, err := database.NewPostgres(conf.PostgresDsn)
			if err != nil {
				return err
			}

			return database.MigratePostgres(db)
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			conf, err := config.Load(configPath)
			if err != nil {
				return err
			}

			db, err := database.NewPostgres(conf.PostgresDsn)
			if err != nil {
				return err
			}
			if err := database.MigratePostgres(db); err != nil {
				return err
			}

			var rdb *redis.Client
			if conf.RedisAddr != "" {
				rdb = database.NewRedis(conf.RedisAddr, "", conf.RedisDB)
			}

			var mc *memcache.Client
			if conf.MemcachedAddr != "" {
				mc = database.NewMemcached(conf.MemcachedAddr)
			}

			if conf.EnableTrace {
				shutdown, err := telemetry.SetupTraceProvider(ctx, conf.TraceEndpoint, conf.ServiceName)
				if err != nil {
					return err
				}
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := shutdown(shutdownCtx); err != nil {
						slog.Error("trace provider shutdown failed", slog.String("error", err.Error()))
					}
				}()
			}

			userRepo := repository.NewUserRepository(db)
			catalogRepo := repository.NewCatalogRepository(db, mc)
			coffeeRepo := repository.NewCoffeeRepository(db)
			containerRepo := repository.NewContainerRepository(db)
			shopRepo := repository.NewShopRepository(db)
			favoriteRepo := repository.NewFavoriteRepository(db)

			authService := service.NewAuthService(conf, userRepo)
			signalService := service.NewSignalService(rdb)
			broker := service.NewConfirmationBroker()

			go func() {
				ticker := time.NewTicker(time.Minute)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						broker.Sweep()
					}
				}
			}()

			assignmentUC := usecase.NewAssignmentUsecase(catalogRepo, broker, signalService, authService)
			coffeeUC := usecase.NewCoffeeUsecase(coffeeRepo, authService)
			containerUC := usecase.NewContainerUsecase(containerRepo, authService)
			shopUC := usecase.NewShopUsecase(shopRepo, authService)
			favoriteUC := usecase.NewFavoriteUsecase(favoriteRepo, authService)

			handler := rest.NewHandler(
				conf,
				coffeeUC,
				containerUC,
				shopUC,
				favoriteUC,
				assignmentUC,
				authService,
				signalService,
				broker,
			)

			e := echo.New()
			e.Use(middleware.Logger())
			e.Use(middleware.Recover())
			e.Use(middleware.CORS())
			if conf.EnableTrace {
				e.Use(otelecho.Middleware(conf.ServiceName))
			}

			authMW := authmiddleware.NewAuthMiddleware(authService, conf)
			e.Use(authMW.IdentifyIdentity)

			handler.RegisterRoutes(e)

			e.Logger.Fatal(e.Start(conf.ListenAddr))
			return nil
		},
	}
}
