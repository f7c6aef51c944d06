package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/matheusschuckar/look-pro/core"
)

func TestBackends_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}

	tests := []struct {
		name    string
		backend core.Store
	}{
		{name: "memory", backend: NewMemoryStore()},
		{name: "sqlite", backend: sqlite},
		{name: "namespace", backend: NewNamespace(NewMemoryStore(), "user:1:")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.backend
			defer s.Close()

			if _, err := s.Get(ctx, "missing"); !core.IsStoreNotFound(err) {
				t.Fatalf("Get(missing) err = %v, want not found", err)
			}
			if err := s.Set(ctx, "k", []byte(`{"a":1}`)); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if err := s.Set(ctx, "k", []byte(`{"a":2}`)); err != nil {
				t.Fatalf("Set overwrite: %v", err)
			}
			got, err := s.Get(ctx, "k")
			if err != nil || string(got) != `{"a":2}` {
				t.Fatalf("Get = %q, %v", got, err)
			}
			batch, err := s.BatchGet(ctx, []string{"k", "missing"})
			if err != nil {
				t.Fatalf("BatchGet: %v", err)
			}
			if len(batch) != 1 || string(batch["k"]) != `{"a":2}` {
				t.Fatalf("BatchGet = %v", batch)
			}
			if err := s.Delete(ctx, "k"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := s.Get(ctx, "k"); !core.IsStoreNotFound(err) {
				t.Fatalf("Get after delete err = %v", err)
			}
		})
	}
}

func TestMemoryStore_ValueIsCopied(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	v := []byte("abc")
	_ = s.Set(ctx, "k", v)
	v[0] = 'x'
	got, _ := s.Get(ctx, "k")
	if string(got) != "abc" {
		t.Fatalf("stored value mutated: %q", got)
	}
}

func TestMemoryStore_Watch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	var mu sync.Mutex
	var seen []string
	done := make(chan struct{})
	stop, err := s.Watch(ctx, "k", func(v []byte) {
		mu.Lock()
		defer mu.Unlock()
		if v == nil {
			seen = append(seen, "<deleted>")
		} else {
			seen = append(seen, string(v))
		}
		if len(seen) == 3 {
			close(done)
		}
	})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer stop()

	_ = s.Set(ctx, "other", []byte("ignored"))
	_ = s.Set(ctx, "k", []byte("1"))
	_ = s.Set(ctx, "k", []byte("2"))
	_ = s.Delete(ctx, "k")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notifications")
	}
	mu.Lock()
	defer mu.Unlock()
	want := []string{"1", "2", "<deleted>"}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("notifications = %v, want %v", seen, want)
		}
	}
}

func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	_ = s.Set(ctx, "k", []byte("v"), 1)
	if _, err := s.Get(ctx, "k"); err != nil {
		t.Fatalf("Get before expiry: %v", err)
	}
	s.mu.Lock()
	s.data["k"].expire = time.Now().Add(-time.Second)
	s.mu.Unlock()
	if _, err := s.Get(ctx, "k"); !core.IsStoreNotFound(err) {
		t.Fatalf("Get after expiry err = %v", err)
	}
}

func TestUnavailable(t *testing.T) {
	ctx := context.Background()
	var s core.Store = Unavailable{}
	if _, err := s.Get(ctx, "k"); !core.IsUnavailable(err) {
		t.Errorf("Get err = %v", err)
	}
	if err := s.Set(ctx, "k", nil); !core.IsUnavailable(err) {
		t.Errorf("Set err = %v", err)
	}
}

func TestNamespace_WatchRequiresWatcher(t *testing.T) {
	ns := NewNamespace(Unavailable{}, "p:")
	if _, err := ns.Watch(context.Background(), "k", func([]byte) {}); !core.IsStoreNotSupported(err) {
		t.Fatalf("Watch err = %v, want not supported", err)
	}
}

func TestOpen(t *testing.T) {
	tests := []struct {
		backend string
		want    string
		wantErr bool
	}{
		{backend: "", want: "memory"},
		{backend: "memory", want: "memory"},
		{backend: "none", want: "unavailable"},
		{backend: "cassandra", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			s, err := Open(Config{Backend: tt.backend})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Open err = %v", err)
			}
			if err != nil {
				return
			}
			defer s.Close()
			if s.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", s.Name(), tt.want)
			}
		})
	}
}
