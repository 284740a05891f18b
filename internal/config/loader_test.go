package config

import (
	"testing"

	"github.com/spf13/viper"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("READER_TEST_HOST", "redis.internal")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"env_set", "host: ${READER_TEST_HOST}", "host: redis.internal"},
		{"env_set_ignores_default", "host: ${READER_TEST_HOST:localhost}", "host: redis.internal"},
		{"default_used", "port: ${READER_TEST_PORT:6379}", "port: 6379"},
		{"empty_default", "password: ${READER_TEST_PASSWORD:}", "password: "},
		{"unset_without_default_kept", "key: ${READER_TEST_MISSING}", "key: ${READER_TEST_MISSING}"},
		{"no_placeholder", "name: sherry-reader", "name: sherry-reader"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := expandEnv(tt.in); got != tt.want {
				t.Errorf("expandEnv(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSetDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		t.Fatalf("unmarshal defaults: %v", err)
	}

	if cfg.App.Name != "sherry-reader" {
		t.Errorf("app.name = %q, want sherry-reader", cfg.App.Name)
	}
	if cfg.Server.HTTP.Port != 3001 {
		t.Errorf("server.http.port = %d, want 3001", cfg.Server.HTTP.Port)
	}
	if cfg.Storage.NovelsDir != "data/novels" {
		t.Errorf("storage.novels_dir = %q, want data/novels", cfg.Storage.NovelsDir)
	}
	if cfg.Cache.Enabled {
		t.Error("cache.enabled should default to false")
	}
	if got := cfg.Reader.TypingDelay.Milliseconds(); got != 1500 {
		t.Errorf("reader.typing_delay = %dms, want 1500ms", got)
	}
	if !cfg.Observability.Metrics.Enabled {
		t.Error("observability.metrics.enabled should default to true")
	}
	if cfg.Observability.Tracing.Enabled {
		t.Error("observability.tracing.enabled should default to false")
	}
}
