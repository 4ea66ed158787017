package config

import (
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.ServerPort != "8080" {
		t.Errorf("port = %s, want 8080", cfg.ServerPort)
	}
	if cfg.StoreBackend != StoreBackendRedis {
		t.Errorf("backend = %s, want redis", cfg.StoreBackend)
	}
	if cfg.BusChannel != "clix:realtime:sync" {
		t.Errorf("channel = %s", cfg.BusChannel)
	}
	if cfg.UploadFailureRate != 0.05 {
		t.Errorf("failure rate = %v, want 0.05", cfg.UploadFailureRate)
	}
	if cfg.UsernameDebounce != 400*time.Millisecond {
		t.Errorf("debounce = %v, want 400ms", cfg.UsernameDebounce)
	}
	if cfg.CommitLatency != 500*time.Millisecond {
		t.Errorf("commit latency = %v, want 500ms", cfg.CommitLatency)
	}
	if cfg.MediaSinkConfigured() {
		t.Error("media sink should be unconfigured by default")
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORE_BACKEND", StoreBackendPostgres)
	t.Setenv("UPLOAD_FAILURE_RATE", "0.5")
	t.Setenv("USERNAME_DEBOUNCE", "150ms")
	t.Setenv("CONTEXT_NAME", "ctx-test")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ServerPort != "9090" || cfg.StoreBackend != StoreBackendPostgres {
		t.Errorf("port=%s backend=%s", cfg.ServerPort, cfg.StoreBackend)
	}
	if cfg.UploadFailureRate != 0.5 {
		t.Errorf("failure rate = %v", cfg.UploadFailureRate)
	}
	if cfg.UsernameDebounce != 150*time.Millisecond {
		t.Errorf("debounce = %v", cfg.UsernameDebounce)
	}
	if cfg.ContextName != "ctx-test" {
		t.Errorf("context name = %s", cfg.ContextName)
	}
}

func TestLoadConfig_BadValuesFallBack(t *testing.T) {
	t.Setenv("UPLOAD_FAILURE_RATE", "1.7") // out of range
	t.Setenv("USERNAME_DEBOUNCE", "soon")  // not a duration
	t.Setenv("ACCESS_TOKEN_MAX_AGE", "-5") // non-positive

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.UploadFailureRate != 0.05 {
		t.Errorf("failure rate = %v, want the default", cfg.UploadFailureRate)
	}
	if cfg.UsernameDebounce != 400*time.Millisecond {
		t.Errorf("debounce = %v, want the default", cfg.UsernameDebounce)
	}
	if cfg.AccessTokenMaxAge != 86400 {
		t.Errorf("max age = %d, want the default", cfg.AccessTokenMaxAge)
	}
}

func TestConfig_MediaSinkConfigured(t *testing.T) {
	t.Setenv("R2_ACCOUNT_ID", "acct")
	t.Setenv("R2_ACCESS_KEY_ID", "key")
	t.Setenv("R2_SECRET_ACCESS_KEY", "secret")
	t.Setenv("R2_BUCKET_NAME", "bucket")
	t.Setenv("R2_PUBLIC_URL", "https://cdn.example.com")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.MediaSinkConfigured() {
		t.Error("sink should be configured with all five values set")
	}
}
