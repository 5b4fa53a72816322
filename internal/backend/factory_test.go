package backend

import (
	"context"
	"path/filepath"
	"testing"

	"emitrack/internal/config"
)

func TestFromAppConfig(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		wantErr bool
	}{
		{"sqlite", "sqlite", false},
		{"memory", "memory", false},
		{"sheets is not a store", "sheets", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := FromAppConfig(&config.Config{DataBackend: tt.backend, SQLiteDBPath: "x.db"})
			if (err != nil) != tt.wantErr {
				t.Fatalf("FromAppConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && cfg.Type.String() != tt.backend {
				t.Errorf("Type = %s, want %s", cfg.Type, tt.backend)
			}
		})
	}

	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"amqp without queue", Config{Type: MemoryBackend, AMQPURL: "amqp://localhost", AMQPExchange: "x"}, true},
		{"unknown type", Config{Type: "postgres"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateMemoryBackend(t *testing.T) {
	ctx := context.Background()
	res, err := NewFactory(nil).Create(ctx, Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer res.Close()

	if res.Publisher() != nil {
		t.Error("publisher should be nil without AMQP")
	}
	if err := res.Store.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestCreateSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "emitrack.db")

	res, err := NewFactory(nil).Create(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer res.Close()

	u, err := res.Store.EnsureUser(ctx, "sub-1")
	if err != nil || u.ID == "" {
		t.Fatalf("EnsureUser() = %+v, %v", u, err)
	}
}
