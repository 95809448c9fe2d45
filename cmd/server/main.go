package main

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Elliot-Adinortey/ErpBankingSystem-sub001/internal/archive"
	"github.com/Elliot-Adinortey/ErpBankingSystem-sub001/internal/audit"
	"github.com/Elliot-Adinortey/ErpBankingSystem-sub001/internal/httpapi"
	"github.com/Elliot-Adinortey/ErpBankingSystem-sub001/internal/ledger"
)

func mustEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func mustIntEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func main() {
	start := time.Now()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	addr := mustEnv("BANK_HTTP_ADDR", ":8080")
	archiveDSN := os.Getenv("BANK_ARCHIVE_DSN")
	migrate := mustEnv("BANK_ARCHIVE_MIGRATE", "0") == "1"

	log.Infow("startup begin", "addr", addr, "archive", archiveDSN != "", "migrate", migrate)

	// Startup context
	startCtx, startCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer startCancel()

	var arch *archive.Archive
	if archiveDSN != "" {
		cpu := runtime.GOMAXPROCS(0)
		defMaxConns := clamp(cpu*4, 4, 50)
		maxConns := mustIntEnv("BANK_ARCHIVE_MAX_CONNS", defMaxConns)

		cfg, err := pgxpool.ParseConfig(archiveDSN)
		if err != nil {
			log.Fatalw("parse archive dsn failed", "err", err)
		}
		cfg.MaxConns = int32(maxConns)
		cfg.MinConns = 1
		cfg.HealthCheckPeriod = 10 * time.Second
		cfg.MaxConnLifetime = 30 * time.Minute
		cfg.MaxConnIdleTime = 5 * time.Minute

		pool, err := pgxpool.NewWithConfig(startCtx, cfg)
		if err != nil {
			log.Fatalw("archive connect failed", "err", err)
		}
		defer pool.Close()

		if err := pool.Ping(startCtx); err != nil {
			log.Fatalw("archive ping failed", "err", err)
		}
		if migrate {
			if err := archive.Migrate(startCtx, pool); err != nil {
				log.Fatalw("archive migrations failed", "err", err)
			}
			log.Infow("archive migrations complete")
		}
		arch = archive.New(pool)
	}

	set, err := ledger.NewSet()
	if err != nil {
		log.Fatalw("account set init failed", "err", err)
	}
	transfers := ledger.NewTransferManager(set)
	history := ledger.NewTransactionManager(set)
	trail := audit.NewTrail()

	h := httpapi.NewHandlers(set, transfers, history, trail, arch, log)

	srv := &http.Server{
		Addr:    addr,
		Handler: httpapi.Router(h, log),

		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Infow("ready",
		"elapsed", time.Since(start).Truncate(time.Millisecond),
		"addr", addr,
	)
	log.Fatal(srv.ListenAndServe())
}
