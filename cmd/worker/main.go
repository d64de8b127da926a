package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"relnet/internal/config"
	"relnet/internal/db"
	opshttp "relnet/internal/http"
	"relnet/internal/jobs"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "worker",
		Short:        "Relationship network metrics, insights and goal matching",
		SilenceUsage: true,
	}

	var workspace, goal string

	metricsCmd := &cobra.Command{
		Use:   "metrics",
		Short: "Recompute graph metrics for a workspace",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				res, err := a.metrics.Recompute(ctx, workspace)
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			})
		},
	}

	insightsCmd := &cobra.Command{
		Use:   "insights",
		Short: "Regenerate insights for a workspace",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				out, err := a.insights.Regenerate(ctx, workspace)
				if err != nil {
					return err
				}
				return printJSON(cmd, out)
			})
		},
	}

	matchCmd := &cobra.Command{
		Use:   "match",
		Short: "Rank connection candidates for a goal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				out, err := a.matcher.Match(ctx, workspace, goal)
				if err != nil {
					return err
				}
				return printJSON(cmd, out)
			})
		},
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Consume jobs from Redis and expose the ops listener",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), serve)
		},
	}

	for _, c := range []*cobra.Command{metricsCmd, insightsCmd, matchCmd} {
		c.Flags().StringVar(&workspace, "workspace", "", "workspace id")
		_ = c.MarkFlagRequired("workspace")
	}
	matchCmd.Flags().StringVar(&goal, "goal", "", "goal id")
	_ = matchCmd.MarkFlagRequired("goal")

	root.AddCommand(metricsCmd, insightsCmd, matchCmd, serveCmd)
	return root
}

// withApp carga config, logger y dependencias, y corta con SIGINT/SIGTERM.
func withApp(parent context.Context, fn func(ctx context.Context, a *app) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return err
	}
	defer a.close()

	return fn(ctx, a)
}

func serve(ctx context.Context, a *app) error {
	if a.queue == nil {
		return errors.New("serve requires REDIS_ADDR for the job queue")
	}

	consumer := jobs.NewConsumer(a.queue, a.metrics, a.insights, a.matcher, a.collector, a.logger)
	router := opshttp.NewRouter(
		a.logger,
		opshttp.NewHealthHandler(a.logger, healthChecks(a.pool, a.redis)),
		opshttp.NewJobHandler(a.logger, a.queue),
		a.collector.Registry(),
	)
	server := &http.Server{
		Addr:              ":" + a.cfg.OpsPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.Run(gctx)
	})
	g.Go(func() error {
		a.logger.Info("starting ops listener", zap.String("port", a.cfg.OpsPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func healthChecks(pool *pgxpool.Pool, redisClient *redis.Client) map[string]opshttp.Check {
	checks := map[string]opshttp.Check{
		"postgres": func(ctx context.Context) error { return db.Ping(ctx, pool) },
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	return checks
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
