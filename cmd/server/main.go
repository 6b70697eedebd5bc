package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"matchbook/api/ws"
	"matchbook/domain/tape"
	"matchbook/engine"
	"matchbook/feed"
	"matchbook/infra/kafka"
	"matchbook/infra/outbox"
	"matchbook/jobs/broadcaster"
)

func main() {
	_ = godotenv.Load()
	cfg := loadConfig()

	logger, err := newLogger()
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---------------- Engine ----------------

	eng := engine.New(engine.Config{Symbol: cfg.Symbol, TickSize: cfg.TickSize}, logger)

	// ---------------- Trade outbox ----------------

	box, err := outbox.Open(cfg.OutboxDir)
	if err != nil {
		logger.Fatal("outbox open failed", zap.Error(err))
	}
	defer box.Close()

	eng.SetTradeHook(func(e tape.Entry) {
		payload, err := json.Marshal(e)
		if err != nil {
			logger.Error("trade encode failed", zap.Uint64("seq", e.Seq), zap.Error(err))
			return
		}
		if err := box.Put(e.Seq, payload); err != nil {
			logger.Error("outbox write failed", zap.Uint64("seq", e.Seq), zap.Error(err))
		}
	})

	// ---------------- Kafka jobs ----------------

	quoteCh := make(chan engine.Quote, 64)
	if len(cfg.Brokers) > 0 {
		bc, err := broadcaster.New(box, cfg.Brokers, cfg.TradesTopic, 250*time.Millisecond, logger)
		if err != nil {
			logger.Fatal("broadcaster init failed", zap.Error(err))
		}
		defer bc.Close()
		go bc.Run(ctx)

		qp := kafka.NewQuotePublisher(cfg.Brokers, cfg.QuotesTopic, logger)
		defer qp.Close()
		go qp.Run(ctx, quoteCh)
	} else {
		logger.Info("no kafka brokers configured, publishing disabled")
	}

	// ---------------- Market data ----------------

	srv := ws.NewServer(eng, logger)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case q := <-eng.Updates():
				srv.BroadcastQuote(q)
				select {
				case quoteCh <- q:
				default:
				}
			}
		}
	}()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case tr := <-eng.TradeStream():
				srv.BroadcastTrade(tr)
			}
		}
	}()

	httpSrv := &http.Server{Addr: cfg.ListenAddr, Handler: srv.Routes()}
	go func() {
		logger.Info("market data server listening",
			zap.String("addr", cfg.ListenAddr),
			zap.String("symbol", cfg.Symbol),
		)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server exited", zap.Error(err))
		}
	}()

	// ---------------- Simulated feed ----------------

	if cfg.FeedEnabled {
		go feed.New(eng, cfg.FeedInterval, logger).Run(ctx)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
}

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
