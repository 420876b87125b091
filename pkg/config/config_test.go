package config

import (
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	if c.Server.Port != 8080 {
		t.Fatalf("port: got %d", c.Server.Port)
	}
	if c.Market.VolatilityScale != 5 || c.Market.VolumeFloor != 1000 || c.Market.MaxSymbolLength != 10 {
		t.Fatalf("market defaults: %+v", c.Market.Config)
	}
	if c.Encoder.TrendPolicy != "five_bucket" || c.Encoder.NeutralBandWidth != 0 {
		t.Fatalf("encoder defaults: %+v", c.Encoder)
	}
	if c.News.Interval != 60*time.Second || c.News.BlendWeight != 0.8 || c.News.HistorySize != 20 {
		t.Fatalf("news defaults: %+v", c.News)
	}
	if !c.Server.CORS || !c.Refresh.Enabled {
		t.Fatalf("bool defaults not applied")
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	c, err := Load("testdata/config.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Environment != "test" || c.Server.Port != 9090 {
		t.Fatalf("unexpected server config: %s %d", c.Environment, c.Server.Port)
	}
	if len(c.Market.Symbols) != 3 || c.Market.Symbols[2] != "AMD" {
		t.Fatalf("symbols: %v", c.Market.Symbols)
	}
	if c.Market.VolatilityScale != 2 || c.Market.MaxSymbolLength != 8 || c.Market.VolumeFloor != 1000 {
		t.Fatalf("market: %+v", c.Market.Config)
	}
	if c.Encoder.TrendPolicy != "four_bucket" || c.Encoder.NeutralBandWidth != 0.1 {
		t.Fatalf("encoder: %+v", c.Encoder)
	}
	if c.Refresh.DriftInterval != time.Second || c.Refresh.QuoteInterval != 30*time.Second {
		t.Fatalf("refresh: %+v", c.Refresh)
	}
	if c.News.Enabled {
		t.Fatalf("news should be disabled")
	}
	if c.Log.Level != "debug" || c.Log.Format != "json" || c.Log.Output != "stdout" {
		t.Fatalf("log: %+v", c.Log)
	}
	if c.Kafka.FramesTopic != "stockholo.frames" {
		t.Fatalf("frames topic: %s", c.Kafka.FramesTopic)
	}
}

func TestLoadRejectsMissingAPIKey(t *testing.T) {
	if _, err := Load("testdata/bad.yaml"); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("testdata/nope.yaml"); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestApplyEnv(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	env := map[string]string{
		"FINNHUB_API_KEY": "secret",
		"SYMBOLS":         "aapl, msft,,tsla",
		"KAFKA_BROKERS":   "k1:9092,k2:9092",
		"HTTP_PORT":       "7070",
	}
	c.applyEnv(func(k string) string { return env[k] })

	if !c.Finnhub.Enabled || c.Finnhub.APIKey != "secret" {
		t.Fatalf("finnhub env not applied: %+v", c.Finnhub)
	}
	if len(c.Market.Symbols) != 3 || c.Market.Symbols[1] != "msft" {
		t.Fatalf("symbols: %v", c.Market.Symbols)
	}
	if !c.Kafka.Enabled || len(c.Kafka.Brokers) != 2 {
		t.Fatalf("kafka: %+v", c.Kafka.Brokers)
	}
	if c.Server.Port != 7070 {
		t.Fatalf("port: %d", c.Server.Port)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}
