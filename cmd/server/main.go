package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/XR-stb/GMatch/internal/analytics"
	"github.com/XR-stb/GMatch/internal/config"
	"github.com/XR-stb/GMatch/internal/logging"
	"github.com/XR-stb/GMatch/internal/match"
	"github.com/XR-stb/GMatch/internal/server"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err == nil {
		fmt.Println("Loaded .env file")
	}

	configPath := flag.String("config", "", "path to config.ini")
	addr := flag.String("addr", "", "TCP bind address")
	port := flag.Int("port", 0, "TCP bind port")
	httpAddr := flag.String("http-addr", "", "HTTP admin/WebSocket listen address (empty disables)")
	playersPerRoom := flag.Int("players-per-room", 0, "players grouped into each room")
	maxRatingDiff := flag.Int("max-rating-diff", 0, "default strategy rating threshold")
	forceMatch := flag.Bool("force-match-on-timeout", true, "force a match when the head waiter times out")
	matchTimeout := flag.Int64("match-timeout-ms", 0, "head-waiter deadline for forced matches")
	logFile := flag.String("log-file", "", "log file path (empty for stdout)")
	logLevel := flag.Int("log-level", -1, "log level: 0=DEBUG 1=INFO 2=WARN 3=ERROR")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		if err := cfg.LoadFile(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	cfg.ApplyEnv()

	// CLI flags win over file and environment, but only when given.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Address = *addr
		case "port":
			cfg.Port = *port
		case "http-addr":
			cfg.HTTPAddress = *httpAddr
		case "players-per-room":
			cfg.PlayersPerRoom = *playersPerRoom
		case "max-rating-diff":
			cfg.MaxRatingDiff = *maxRatingDiff
		case "force-match-on-timeout":
			cfg.ForceMatchOnTimeout = *forceMatch
		case "match-timeout-ms":
			cfg.MatchTimeoutMs = *matchTimeout
		case "log-file":
			cfg.LogFile = *logFile
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})

	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFile)
	defer logger.Sync()

	manager := match.NewManager(logger)
	manager.Init(cfg.PlayersPerRoom)
	manager.SetMaxRatingDifference(cfg.MaxRatingDiff)
	manager.SetForceMatchOnTimeout(cfg.ForceMatchOnTimeout)
	manager.SetMatchTimeoutThreshold(cfg.MatchTimeoutMs)

	analyticsSvc := analytics.NewService(nil, false)
	if cfg.AnalyticsEnabled {
		producer := analytics.NewProducer(cfg.KafkaBrokers, cfg.AnalyticsTopic, logger)
		defer producer.Close()
		analyticsSvc = analytics.NewService(producer, true)
		logger.Info("analytics enabled",
			zap.String("brokers", strings.Join(cfg.KafkaBrokers, ",")),
			zap.String("topic", cfg.AnalyticsTopic))
	}

	srv := server.New(cfg, logger, manager, analyticsSvc)
	if err := srv.Start(); err != nil {
		logger.Error("server failed to start", zap.Error(err))
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
	manager.Shutdown()
	logger.Info("server exited")
}
