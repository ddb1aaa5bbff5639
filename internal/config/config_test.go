package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.StoreDriver != DriverPostgres {
		t.Errorf("StoreDriver = %q, want %q", cfg.StoreDriver, DriverPostgres)
	}
	if cfg.LockTimeout != 5*time.Second {
		t.Errorf("LockTimeout = %v, want 5s", cfg.LockTimeout)
	}
	if cfg.TxnRetries != 3 {
		t.Errorf("TxnRetries = %d, want 3", cfg.TxnRetries)
	}
	if cfg.DB.Host != "localhost" || cfg.DB.Port != "5432" {
		t.Errorf("DB = %s:%s, want localhost:5432", cfg.DB.Host, cfg.DB.Port)
	}
	if cfg.RabbitURL != "" {
		t.Errorf("RabbitURL = %q, want empty", cfg.RabbitURL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("LOCK_TIMEOUT", "250ms")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_MAX_CONNS", "50")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StoreDriver != DriverMemory {
		t.Errorf("StoreDriver = %q", cfg.StoreDriver)
	}
	if cfg.LockTimeout != 250*time.Millisecond {
		t.Errorf("LockTimeout = %v", cfg.LockTimeout)
	}
	if cfg.DB.Host != "db.internal" || cfg.DB.MaxConns != 50 {
		t.Errorf("DB = %+v", cfg.DB)
	}
	if !strings.Contains(cfg.DB.DSN(), "host=db.internal") {
		t.Errorf("DSN = %q", cfg.DB.DSN())
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing secret", map[string]string{}, "JWT_SECRET"},
		{"bad driver", map[string]string{"JWT_SECRET": "s", "STORE_DRIVER": "mysql"}, "STORE_DRIVER"},
		{"zero retries", map[string]string{"JWT_SECRET": "s", "TXN_RETRIES": "0"}, "TXN_RETRIES"},
		{"negative lock timeout", map[string]string{"JWT_SECRET": "s", "LOCK_TIMEOUT": "-1s"}, "LOCK_TIMEOUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %s", err, tt.want)
			}
		})
	}
}

func TestLoad_ServerPortDoesNotLeakIntoDB(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" || cfg.DB.Port != "5432" {
		t.Errorf("Port = %q, DB.Port = %q", cfg.Port, cfg.DB.Port)
	}
}
