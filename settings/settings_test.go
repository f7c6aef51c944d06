package settings

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lookrank.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	s, err := load("", nil)
	if err != nil {
		t.Fatal(err)
	}
	if s.Server.Addr != ":8080" || s.Store.Backend != "memory" || s.Policy.HalfLifeDays != 14 || s.Policy.Epsilon != 0.08 {
		t.Errorf("defaults = %+v", s)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeFile(t, `
server:
  addr: ":9000"
  read_timeout: 2s
store:
  backend: sqlite
  path: /tmp/look.db
log:
  level: debug
policy:
  half_life_days: 7
  epsilon: 0.2
  weights:
    trend: 0.3
kafka:
  topic: look.events
`)
	env := []string{
		"LOOKRANK_POLICY__EPSILON=0",
		"LOOKRANK_LOG__FORMAT=json",
		"LOOKRANK_KAFKA__BROKERS=k1:9092,k2:9092",
		"OTHER=ignored",
	}
	s, err := load(path, env)
	if err != nil {
		t.Fatal(err)
	}
	if s.Server.Addr != ":9000" || s.Server.ReadTimeout != 2*time.Second {
		t.Errorf("server = %+v", s.Server)
	}
	if s.Server.WriteTimeout != 10*time.Second {
		t.Errorf("default write timeout lost: %v", s.Server.WriteTimeout)
	}
	if s.Store.Backend != "sqlite" || s.Store.Path != "/tmp/look.db" {
		t.Errorf("store = %+v", s.Store)
	}
	if s.Log.Level != "debug" || s.Log.Format != "json" {
		t.Errorf("log = %+v", s.Log)
	}
	if s.Policy.HalfLifeDays != 7 || s.Policy.Epsilon != 0 {
		t.Errorf("policy = %+v", s.Policy)
	}
	if s.Policy.Weights["trend"] != 0.3 || s.Policy.Weights["category"] != 0.9 {
		t.Errorf("weights = %v", s.Policy.Weights)
	}
	if len(s.Kafka.Brokers) != 2 || s.Kafka.Topic != "look.events" {
		t.Errorf("kafka = %+v", s.Kafka)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad level", "log:\n  level: loud\n", "Level"},
		{"bad backend", "store:\n  backend: etcd\n", "Backend"},
		{"redis without addr", "store:\n  backend: redis\n", "store.addr"},
		{"bad epsilon", "policy:\n  epsilon: 2\n", "Epsilon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(writeFile(t, tt.yaml), nil)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := load(filepath.Join(t.TempDir(), "nope.yaml"), nil); err == nil {
		t.Error("expected error")
	}
}
