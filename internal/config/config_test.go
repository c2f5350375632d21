package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var keys = []string{
	"HTTP_ADDR", "POSTGRES_DSN", "STORE_BACKEND", "REDIS_ADDR", "KAFKA_BROKERS",
	"SERVICE_NAME", "IMAGE_DIR", "ALLOWED_ORIGINS", "VIEW_CACHE_TTL_SEC", "AUTO_MIGRATE",
	"PROJECTOR_GROUP", "PROJECTOR_WORKERS", "LOG_LEVEL", "SHUTDOWN_TIMEOUT", "CONFIG_FILE",
}

func clearEnv(t *testing.T) {
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.HTTPAddr != ":8081" || c.StoreBackend != BackendPostgres {
		t.Fatalf("addr/backend defaults: %q %q", c.HTTPAddr, c.StoreBackend)
	}
	if c.RedisAddr != "" || len(c.KafkaBrokers) != 0 {
		t.Fatalf("redis and kafka should be off by default")
	}
	if c.ViewCacheTTL != 30*time.Second || c.ShutdownTimeout != 10*time.Second {
		t.Fatalf("durations: %v %v", c.ViewCacheTTL, c.ShutdownTimeout)
	}
	if !c.AutoMigrate || c.ProjectorWorkers != 4 {
		t.Fatalf("migrate/workers defaults")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_BACKEND", "MEMORY")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("VIEW_CACHE_TTL_SEC", "5")
	t.Setenv("AUTO_MIGRATE", "false")
	t.Setenv("PROJECTOR_WORKERS", "not-a-number")
	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.StoreBackend != BackendMemory {
		t.Fatalf("backend = %q", c.StoreBackend)
	}
	if len(c.KafkaBrokers) != 2 || c.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("brokers = %v", c.KafkaBrokers)
	}
	if len(c.AllowedOrigins) != 2 || c.ViewCacheTTL != 5*time.Second || c.AutoMigrate {
		t.Fatalf("overrides not applied: %+v", c)
	}
	if c.ProjectorWorkers != 4 {
		t.Fatalf("bad int should fall back to default, got %d", c.ProjectorWorkers)
	}
}

func TestLoadYAMLOverlay(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_ADDR", ":7000")
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
store_backend: memory
redis_addr: redis:6379
kafka_brokers: [kafka:9092]
view_cache_ttl: 1m
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.HTTPAddr != ":7000" {
		t.Fatalf("keys missing from the file must keep env values, got %q", c.HTTPAddr)
	}
	if c.StoreBackend != BackendMemory || c.RedisAddr != "redis:6379" || c.KafkaBrokers[0] != "kafka:9092" {
		t.Fatalf("overlay not applied: %+v", c)
	}
	if c.ViewCacheTTL != time.Minute {
		t.Fatalf("ttl = %v", c.ViewCacheTTL)
	}
}

func TestLoadRejectsBadBackend(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_BACKEND", "sqlite")
	if _, err := Load(); err == nil {
		t.Fatal("expected error")
	}
}
