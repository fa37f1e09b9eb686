package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server:  ServerConfig{Port: "8080"},
		MongoDB: MongoDBConfig{URI: "mongodb://localhost:27017/?replicaSet=rs0", DBName: "nailstock"},
		Auth:    AuthConfig{JWTSecret: "secret", TokenTTL: 24 * time.Hour},
		Jobs:    JobsConfig{LowStockCron: "0 8 * * *", MonthlyReportCron: "0 6 1 * *"},
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load("testdata/absent.env")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("port = %q, want default 8080", cfg.Server.Port)
	}
	if cfg.MongoDB.DBName != "nailstock" {
		t.Errorf("db name = %q, want default nailstock", cfg.MongoDB.DBName)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("token ttl = %v, want 24h", cfg.Auth.TokenTTL)
	}
	if cfg.Jobs.LowStockCron != "0 8 * * *" {
		t.Errorf("low stock cron = %q", cfg.Jobs.LowStockCron)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("JWT_TTL_HOURS", "2")

	cfg, err := Load("testdata/absent.env")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("port = %q, want 9090", cfg.Server.Port)
	}
	if cfg.Auth.TokenTTL != 2*time.Hour {
		t.Errorf("token ttl = %v, want 2h", cfg.Auth.TokenTTL)
	}
}

func TestLoadRejectsBadTTL(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("JWT_TTL_HOURS", "soon")

	if _, err := Load("testdata/absent.env"); err == nil {
		t.Fatal("Load() accepted non-numeric JWT_TTL_HOURS")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing secret", func(c *Config) { c.Auth.JWTSecret = "" }, true},
		{"missing mongo uri", func(c *Config) { c.MongoDB.URI = "" }, true},
		{"missing db name", func(c *Config) { c.MongoDB.DBName = "" }, true},
		{"zero ttl", func(c *Config) { c.Auth.TokenTTL = 0 }, true},
		{"sheets credentials without spreadsheet", func(c *Config) { c.Sheets.CredentialsPath = "/tmp/creds.json" }, true},
		{"sheets fully configured", func(c *Config) {
			c.Sheets.CredentialsPath = "/tmp/creds.json"
			c.Sheets.SpreadsheetID = "sheet-id"
		}, false},
		{"alerts optional", func(c *Config) { c.Alerts.WebhookURL = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
