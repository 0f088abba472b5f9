package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", `addr: :9999
service:
  kind: ranker
  url: https://rr.example
  username: u
instance:
  name: docs
  max_instances: 2
  poll_interval_seconds: 5
  save_training_data: false
ranker:
  cluster_id: sc1
  collection: c
store:
  driver: postgres
  dsn: postgres://localhost/mk
cors:
  enabled: true
  allowed_origins: ["*"]
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.Service.Kind != "ranker" || cfg.Service.URL != "https://rr.example" || cfg.Service.Username != "u" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.Instance.Name != "docs" || cfg.Instance.MaxInstances != 2 || cfg.Instance.PollInterval() != 5*time.Second {
		t.Fatalf("unexpected instance cfg: %+v", cfg.Instance)
	}
	if cfg.Instance.SaveTrainingData == nil || *cfg.Instance.SaveTrainingData {
		t.Fatalf("save_training_data=false not honored")
	}
	if cfg.Ranker.ClusterID != "sc1" || cfg.Store.Driver != "postgres" || !cfg.CORS.Enabled || len(cfg.CORS.AllowedOrigins) != 1 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if err := cfg.WithDefaults().Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","service":{"kind":"classifier","url":"http://nlc"},"instance":{"name":"faq","language":"es"}}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.Service.URL != "http://nlc" || cfg.Instance.Name != "faq" || cfg.Instance.Language != "es" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\n[service]\nkind=\"classifier\"\nurl=\"http://nlc\"\n[claims]\nenabled=true\nttl_seconds=30\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.Service.URL != "http://nlc" || !cfg.Claims.Enabled || cfg.Claims.ClaimTTL() != 30*time.Second {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
	if _, err := Load("/definitely/not/a/real/file-12345.yaml"); err == nil {
		t.Fatalf("expected error for nonexistent file")
	}
	bad := map[string]string{
		"bad.yaml": "addr: :8080\n: broken\n",
		"bad.json": `{ "addr": ":8080", "service": }`,
		"bad.toml": "addr=:8080\nservice\n",
	}
	for name, content := range bad {
		if _, err := Load(writeTempFile(t, d, name, content)); err == nil {
			t.Fatalf("%s: expected unmarshal error", name)
		}
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"MODELKEEPER_SERVICE_URL":                 "http://env",
		"MODELKEEPER_INSTANCE_NAME":               "from-env",
		"MODELKEEPER_INSTANCE_MAX_INSTANCES":      "7",
		"MODELKEEPER_INSTANCE_SAVE_TRAINING_DATA": "false",
		"MODELKEEPER_STORE_DSN":                   "postgres://env",
	}
	cfg := Config{Addr: ":1", Service: ServiceConfig{URL: "http://file"}}
	if err := ApplyEnv(&cfg, func(k string) string { return env[k] }); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.Addr != ":1" || cfg.Service.URL != "http://env" || cfg.Instance.Name != "from-env" || cfg.Instance.MaxInstances != 7 || cfg.Store.DSN != "postgres://env" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.Instance.SaveTrainingData == nil || *cfg.Instance.SaveTrainingData {
		t.Fatalf("save flag not applied")
	}

	env["MODELKEEPER_INSTANCE_POLL_INTERVAL_SECONDS"] = "soon"
	if err := ApplyEnv(&cfg, func(k string) string { return env[k] }); err == nil {
		t.Fatalf("expected error for non-numeric interval")
	}
}

func TestDefaultsAndValidate(t *testing.T) {
	cfg := Config{Service: ServiceConfig{URL: "http://nlc"}}.WithDefaults()
	if cfg.Addr != ":8080" || cfg.Service.Kind != "classifier" || cfg.Store.Driver != "memory" || !*cfg.Instance.SaveTrainingData {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	cases := []Config{
		{Service: ServiceConfig{Kind: "speech", URL: "x"}},
		{Service: ServiceConfig{Kind: "classifier"}},
		{Service: ServiceConfig{Kind: "classifier", URL: "x"}, Store: StoreConfig{Driver: "postgres"}},
		{Service: ServiceConfig{Kind: "classifier", URL: "x"}, Store: StoreConfig{Driver: "memory"}, Instance: InstanceConfig{RetentionFailure: "maybe"}},
	}
	for i, c := range cases {
		if err := c.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}
