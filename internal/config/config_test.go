package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleYAML = `
engine:
  refresh_interval: 30s
  start_assets: [usdt, btc]
venues:
  - id: alpha
    kind: cex
    markets:
      - pair: btc-usdt
        bid: 50000
        ask: 50010
    withdrawal_fees:
      btc: 0.0004
  - id: beta
    kind: dex
    network: ethereum
    fee: 0
    markets:
      - pair: ETH-USDT
        bid: 3500
        ask: 3501
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crossarb.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Engine.RefreshInterval != 30*time.Second {
		t.Errorf("refresh_interval = %s, want 30s", cfg.Engine.RefreshInterval)
	}
	if cfg.Engine.MaxCycleLength != 5 || cfg.Engine.MaxCycles != 100 {
		t.Errorf("cycle defaults = %d/%d, want 5/100", cfg.Engine.MaxCycleLength, cfg.Engine.MaxCycles)
	}
	if got := strings.Join(cfg.Engine.StartAssets, ","); got != "USDT,BTC" {
		t.Errorf("start_assets = %s, want USDT,BTC", got)
	}
	if len(cfg.Venues) != 2 {
		t.Fatalf("venues = %d, want 2", len(cfg.Venues))
	}
	if cfg.Venues[0].Markets[0].Pair != "BTC-USDT" {
		t.Errorf("pair = %s, want BTC-USDT", cfg.Venues[0].Markets[0].Pair)
	}
	if fee := cfg.Venues[0].WithdrawalFees["BTC"]; fee != 0.0004 {
		t.Errorf("withdrawal fee BTC = %v, want 0.0004", fee)
	}
	if cfg.Venues[0].Fee != nil {
		t.Errorf("unset fee = %v, want nil", *cfg.Venues[0].Fee)
	}
	if f := cfg.Venues[1].Fee; f == nil || *f != 0 {
		t.Errorf("zero fee = %v, want explicit 0", f)
	}
	if cfg.Transfer.Fees["ETH"] != 0.0005 {
		t.Errorf("transfer fee ETH = %v, want 0.0005", cfg.Transfer.Fees["ETH"])
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Engine: EngineConfig{
				MaxCycleLength:  5,
				MaxCycles:       100,
				RefreshWorkers:  4,
				StartAssets:     []string{"USDT"},
				DefaultTradeFee: 0.001,
			},
			Venues: []VenueConfig{{ID: "a", Kind: "cex", Markets: []MarketConfig{{Pair: "BTC-USDT"}}}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"short cycles", func(c *Config) { c.Engine.MaxCycleLength = 2 }, "max_cycle_length"},
		{"no start assets", func(c *Config) { c.Engine.StartAssets = nil }, "start_assets"},
		{"bad kind", func(c *Config) { c.Venues[0].Kind = "otc" }, "kind"},
		{"duplicate venue", func(c *Config) { c.Venues = append(c.Venues, c.Venues[0]) }, "duplicate"},
		{"execution without amount", func(c *Config) { c.Execution.Enabled = true }, "trade_amount"},
		{"zero venue fee", func(c *Config) { zero := 0.0; c.Venues[0].Fee = &zero }, ""},
		{"venue fee out of range", func(c *Config) { f := 1.5; c.Venues[0].Fee = &f }, "fee must be"},
		{"market fee negative", func(c *Config) { f := -0.1; c.Venues[0].Markets[0].Fee = &f }, "fee must be"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
