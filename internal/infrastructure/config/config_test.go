package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Server.Port != 8080 || cfg.Server.MaxBodyBytes != 64<<10 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Matching.Scorer != "token_set" || cfg.Matching.Threshold != 65 {
		t.Errorf("matching = %+v", cfg.Matching)
	}
	if cfg.Conversation.Flow != "order_first" || cfg.Conversation.MaxHistory != 50 {
		t.Errorf("conversation = %+v", cfg.Conversation)
	}
	if cfg.Session.Store != "memory" || cfg.Session.TTL != 2*time.Hour {
		t.Errorf("session = %+v", cfg.Session)
	}
	if cfg.OrderLog.Sink != "csv" || cfg.OrderLog.CSVPath != "orders.csv" {
		t.Errorf("order log = %+v", cfg.OrderLog)
	}
	if !cfg.RateLimit.Enabled || cfg.RateLimit.Window != time.Minute || cfg.DedupWindow != time.Second {
		t.Errorf("rate limit = %+v dedup = %v", cfg.RateLimit, cfg.DedupWindow)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CONVERSATION_FLOW", "district_first")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("ORDER_LOG_SINK", "none")
	t.Setenv("RATE_LIMIT_ENABLED", "false")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Conversation.Flow != "district_first" {
		t.Errorf("flow = %q", cfg.Conversation.Flow)
	}
	if cfg.Session.TTL != 30*time.Minute {
		t.Errorf("ttl = %v", cfg.Session.TTL)
	}
	if cfg.OrderLog.Sink != "none" || cfg.RateLimit.Enabled {
		t.Errorf("sink = %q rate limit = %v", cfg.OrderLog.Sink, cfg.RateLimit.Enabled)
	}
}

func TestScorerThreshold(t *testing.T) {
	t.Setenv("MATCHING_SCORER", "partial_ratio")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Matching.Threshold != 75 {
		t.Errorf("partial_ratio threshold = %d, want 75", cfg.Matching.Threshold)
	}

	t.Setenv("MATCHING_THRESHOLD", "80")
	cfg, err = LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Matching.Threshold != 80 {
		t.Errorf("explicit threshold = %d, want 80", cfg.Matching.Threshold)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unknown scorer", map[string]string{"MATCHING_SCORER": "levenshtein"}, "scorer"},
		{"threshold out of range", map[string]string{"MATCHING_THRESHOLD": "100"}, "threshold"},
		{"unknown flow", map[string]string{"CONVERSATION_FLOW": "menu_first"}, "flow"},
		{"unknown store", map[string]string{"SESSION_STORE": "etcd"}, "session store"},
		{"postgres without dsn", map[string]string{"ORDER_LOG_SINK": "postgres"}, "postgres dsn"},
		{"invalid queue", map[string]string{"ORDER_LOG_WORKERS": "-1"}, "queue"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("LoadConfig error = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestDefaultThreshold(t *testing.T) {
	if DefaultThreshold("partial_ratio") != 75 || DefaultThreshold("token_set") != 65 {
		t.Fatal("unexpected default thresholds")
	}
}
