package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if c.HTTPAddr != ":8080" {
		t.Errorf("expected default addr :8080, got %q", c.HTTPAddr)
	}
	if c.Storage != "memory" {
		t.Errorf("expected default storage memory, got %q", c.Storage)
	}
	if c.SendTimeout != 15*time.Second {
		t.Errorf("expected default send timeout 15s, got %v", c.SendTimeout)
	}
	if c.EmailEnabled {
		t.Errorf("expected email disabled by default")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("STORAGE", "mongo")
	t.Setenv("MONGODB_URL", "mongodb://localhost:27017")
	t.Setenv("DISPATCH_WORKERS", "8")
	t.Setenv("SEND_TIMEOUT", "30s")

	c, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if c.Storage != "mongo" {
		t.Errorf("expected mongo storage, got %q", c.Storage)
	}
	if c.MongoURL != "mongodb://localhost:27017" {
		t.Errorf("unexpected mongo url %q", c.MongoURL)
	}
	if c.DispatchWorkers != 8 {
		t.Errorf("expected 8 workers, got %d", c.DispatchWorkers)
	}
	if c.SendTimeout != 30*time.Second {
		t.Errorf("expected 30s send timeout, got %v", c.SendTimeout)
	}
}
