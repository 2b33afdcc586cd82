package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appcfg "github.com/kapu/gridblink/internal/config"
	"github.com/kapu/gridblink/internal/gameday"
	"github.com/kapu/gridblink/internal/gateway"
	"github.com/kapu/gridblink/internal/httpapi"
	"github.com/kapu/gridblink/internal/leaderboard"
	"github.com/kapu/gridblink/internal/obslog"
	"github.com/kapu/gridblink/internal/scales"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis url error: %v", err)
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		cancel()
		log.Fatalf("redis ping error: %v", err)
	}
	cancel()

	loc := gameday.Location(cfg.Timezone)
	lb := leaderboard.NewManager(rdb, loc, cfg.DailyResetHour,
		leaderboard.WithMaxEntries(cfg.LeaderboardMaxEntries),
		leaderboard.WithDailyTTL(time.Duration(cfg.DailyTTLSec)*time.Second),
	)

	// Score archive is optional; ranking reads never depend on it.
	var repo *leaderboard.Repository
	if cfg.DatabaseURL != "" {
		repo, err = leaderboard.NewRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("score archive init error: %v", err)
		}
		lb.AttachRepository(repo)
	}

	catalog, err := scales.New(os.Getenv("SCALE_FILE"))
	if err != nil {
		log.Fatalf("scale catalog error: %v", err)
	}

	api := httpapi.NewServer(lb, catalog, nil)
	gw := gateway.New(lb)

	go func() {
		obslog.L().Info("api_listen", zap.String("addr", cfg.HTTPAddr))
		if err := api.ListenAndServe(cfg.HTTPAddr); err != nil {
			obslog.L().Fatal("api_serve", zap.Error(err))
		}
	}()
	go func() {
		obslog.L().Info("gateway_listen", zap.String("addr", cfg.WSAddr))
		if err := gw.ListenAndServe(cfg.WSAddr); err != nil {
			obslog.L().Error("gateway_serve", zap.Error(err))
		}
	}()

	obslog.L().Info("gridblink_up",
		zap.String("timezone", cfg.Timezone),
		zap.Int("reset_hour", cfg.DailyResetHour),
		zap.String("game_day", lb.Day()),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = gw.Shutdown(shutdownCtx)
	_ = api.Shutdown()
	if repo != nil {
		_ = repo.Close()
	}
	_ = rdb.Close()
}
