package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
port: "8080"
logLevel: "debug"
databaseURL: "postgres://localhost/market"
jwtSecret: "s3cret"
sessionTTL: "12h"
adminIdentities:
  - admin-1
  - admin-2
amqpURL: "amqp://localhost:5672"
amqpExchange: "settlement"
minioEndpoint: "localhost:9000"
minioBucket: "artifacts"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" || cfg.DatabaseURL != "postgres://localhost/market" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if len(cfg.AdminIdentities) != 2 || cfg.AdminIdentities[0] != "admin-1" {
		t.Fatalf("admins = %v", cfg.AdminIdentities)
	}
	if cfg.AMQPExchange != "settlement" || cfg.MinioBucket != "artifacts" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
port: "8080"
databaseURL: "postgres://file/db"
jwtSecret: "file-secret"
`)
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("ADMIN_IDENTITIES", "a1, a2 ,a3")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseURL != "postgres://env/db" {
		t.Fatalf("databaseURL = %s", cfg.DatabaseURL)
	}
	if cfg.JWTSecret != "env-secret" {
		t.Fatalf("jwtSecret = %s", cfg.JWTSecret)
	}
	if len(cfg.AdminIdentities) != 3 || cfg.AdminIdentities[1] != "a2" {
		t.Fatalf("admins = %v", cfg.AdminIdentities)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name, yaml string
	}{
		{"missing port", `
databaseURL: "postgres://localhost/db"
jwtSecret: "s"
`},
		{"missing database", `
port: "8080"
jwtSecret: "s"
`},
		{"no session backend", `
port: "8080"
databaseURL: "postgres://localhost/db"
`},
		{"amqp without exchange", `
port: "8080"
databaseURL: "postgres://localhost/db"
jwtSecret: "s"
amqpURL: "amqp://localhost"
amqpExchange: ""
`},
		{"minio without bucket", `
port: "8080"
databaseURL: "postgres://localhost/db"
jwtSecret: "s"
minioEndpoint: "localhost:9000"
`},
	}
	for _, c := range cases {
		path := writeConfig(t, c.yaml)
		if _, err := Load(path); err == nil {
			t.Fatalf("%s: Load succeeded", c.name)
		}
	}
}

func TestLoadRedisOnlySessions(t *testing.T) {
	path := writeConfig(t, `
port: "8080"
databaseURL: "postgres://localhost/db"
redisAddr: "localhost:6379"
`)
	if _, err := Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestParseSessionTTL(t *testing.T) {
	if d, err := ParseSessionTTL(""); err != nil || d != 0 {
		t.Fatalf("empty ttl = (%v, %v)", d, err)
	}
	if d, err := ParseSessionTTL("36h"); err != nil || d != 36*time.Hour {
		t.Fatalf("36h ttl = (%v, %v)", d, err)
	}
	if _, err := ParseSessionTTL("never"); err == nil {
		t.Fatal("invalid ttl accepted")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("missing file accepted")
	}
}
