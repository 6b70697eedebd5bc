package main

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type config struct {
	ListenAddr   string
	Symbol       string
	TickSize     int64
	Brokers      []string // empty disables all Kafka publishing
	TradesTopic  string
	QuotesTopic  string
	OutboxDir    string
	FeedEnabled  bool
	FeedInterval time.Duration
}

func loadConfig() config {
	return config{
		ListenAddr:   getEnv("LISTEN_ADDR", ":8080"),
		Symbol:       getEnv("SYMBOL", "ACME"),
		TickSize:     getInt64Env("TICK_SIZE", 1),
		Brokers:      splitList(os.Getenv("KAFKA_BROKERS")),
		TradesTopic:  getEnv("TRADES_TOPIC", "trades.executed"),
		QuotesTopic:  getEnv("QUOTES_TOPIC", "quotes.l1"),
		OutboxDir:    getEnv("OUTBOX_DIR", "./data/outbox"),
		FeedEnabled:  getBoolEnv("FEED", true),
		FeedInterval: getDurationEnv("FEED_INTERVAL", 250*time.Millisecond),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt64Env(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getBoolEnv(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
