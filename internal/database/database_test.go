package database

import (
	"strings"
	"testing"
)

func TestDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: "5433", User: "u", Password: "p", Name: "n", SSLMode: "require"}
	got := cfg.DSN()
	for _, part := range []string{"host=db", "port=5433", "user=u", "password=p", "dbname=n", "sslmode=require"} {
		if !strings.Contains(got, part) {
			t.Errorf("DSN %q missing %q", got, part)
		}
	}

	cfg.URL = "postgres://x@y/z"
	if cfg.DSN() != cfg.URL {
		t.Errorf("DSN = %q, want URL", cfg.DSN())
	}
}
