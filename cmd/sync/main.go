package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"runtime"
	"strings"
	"time"

	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/joho/godotenv/autoload"

	"maktaba/internal/logger"
	"maktaba/internal/storage/authors"
	"maktaba/internal/storage/books"
	"maktaba/internal/storage/empires"
	"maktaba/internal/storage/genres"
	"maktaba/internal/storage/regions"
	"maktaba/internal/storage/syncfails"
	"maktaba/internal/sync"
)

func getEnvOrDefault(key, default_ string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}

	return default_
}

func getBoolEnv(key string) bool {
	if val := strings.ToLower(os.Getenv(key)); val == "yes" || val == "on" || val == "true" {
		return true
	}

	return false
}

var (
	sourceURL   = os.Getenv("SOURCE_URL")
	sourceToken = os.Getenv("SOURCE_TOKEN")
	logLevel    = strings.ToLower(getEnvOrDefault("LOG_LEVEL", "debug"))
	dbConnStr   = os.Getenv("DATABASE_URL")
	dryRun      = getBoolEnv("DRY_RUN")
)

func main() {
	_, thisFile, _, _ := runtime.Caller(0)

	var lvl slog.Level
	err := lvl.UnmarshalText([]byte(logLevel))
	if err != nil {
		lvl = slog.LevelDebug
	}
	logger.SetupSLog(lvl, path.Dir(path.Dir(path.Dir(thisFile))), struct{}{})

	if err != nil {
		slog.Error("Invalid log level specified in LOG_LEVEL, one of debug, info, warn or error expected")
		os.Exit(1)
	}

	if sourceURL == "" {
		slog.Error("You need to specify SOURCE_URL env var")
		os.Exit(1)
	}

	baseURL, err := url.Parse(sourceURL)
	if err != nil {
		slog.Error("Invalid URL in SOURCE_URL: " + err.Error())
		os.Exit(1)
	}

	cfg, err := pgxpool.ParseConfig(dbConnStr)
	if err != nil {
		slog.Error("Failed to parse DATABASE_URL: " + err.Error())
		os.Exit(1)
	}

	cfg.ConnConfig.Tracer = logger.NewPGXTracer()

	pg, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to create postgres pool: " + err.Error())
		os.Exit(1)
	}

	startTime := time.Now()
	fails := syncfails.NewPGXRepository(pg, slog.Default())

	source := sync.HTTPSource{
		BaseURL: baseURL,
		Token:   sourceToken,
		Client:  http.DefaultClient,
		Logger:  slog.Default(),
		Errors: &sync.StoringHandler{
			StartTime: &startTime,
			Logger:    slog.Default(),
			Fails:     fails,
		},
	}

	var consumer sync.Consumer = &sync.StoringConsumer{
		Logger:  slog.Default(),
		Books:   books.NewPGXRepository(pg, slog.Default()),
		Authors: authors.NewPGXRepository(pg, slog.Default()),
		Genres:  genres.NewPGXRepository(pg, slog.Default()),
		Regions: regions.NewPGXRepository(pg, slog.Default()),
		Empires: empires.NewPGXRepository(pg, slog.Default()),
	}
	if dryRun {
		consumer = &sync.LoggerConsumer{Logger: slog.Default()}
	}

	if !dryRun {
		if err := source.Replay(context.Background(), fails, consumer, &startTime); err != nil {
			slog.Error("Replay of recorded fails failed: " + err.Error())
			os.Exit(1)
		}
	}

	if err := source.Fetch(context.Background(), consumer); err != nil {
		slog.Error("Sync failed: " + err.Error())
		os.Exit(1)
	}
}
