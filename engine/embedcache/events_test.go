package embedcache

import (
	"context"
	"testing"
	"time"

	"github.com/opencircuit/core/pkg/eventbus"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

func startTestNATS(t *testing.T) *nats.Conn {
	t.Helper()
	opts := &natsserver.Options{Port: -1}
	srv, err := natsserver.NewServer(opts)
	if err != nil {
		t.Fatal(err)
	}
	srv.Start()
	if !srv.ReadyForConnections(3 * time.Second) {
		t.Fatal("nats not ready")
	}
	nc, err := nats.Connect(srv.ClientURL())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		nc.Close()
		srv.Shutdown()
	})
	return nc
}

func TestCache_Clear(t *testing.T) {
	cache := NewCache(1 << 20)
	cache.Put("text", "m1", []float32{0.5, 0.5}, false)
	cache.Put("other", "m1", []float32{0.1, 0.2}, false)

	if cache.Len() != 2 {
		t.Fatalf("expected 2 entries before clear, got %d", cache.Len())
	}

	cache.Clear()

	if cache.Len() != 0 {
		t.Fatalf("expected empty cache after Clear, got %d entries", cache.Len())
	}
	if _, _, ok := cache.Get("text", "m1"); ok {
		t.Fatal("expected entry to be gone after Clear")
	}

	// cache should still be usable after Clear
	cache.Put("text", "m1", []float32{1, 1}, false)
	if cache.Len() != 1 {
		t.Fatalf("expected cache to accept new entries after Clear, got %d", cache.Len())
	}
}

func TestService_SubscribeInvalidation_ClearsCacheOnEvent(t *testing.T) {
	nc := startTestNATS(t)

	cache := NewCache(1 << 20)
	cache.Put("text", "m1", []float32{0.5, 0.5}, false)

	svc := NewService(cache, stubEmbedder{vector: []float32{1, 1}}, nil)

	sub, err := svc.SubscribeInvalidation(nc)
	if err != nil {
		t.Fatalf("SubscribeInvalidation: %v", err)
	}
	defer sub.Unsubscribe()

	if err := eventbus.Publish(context.Background(), nc, eventbus.SubjectEmbeddingModelChanged, eventbus.EmbeddingModelChanged{
		PreviousModel: "m1",
		CurrentModel:  "m2",
		ChangedAt:     time.Now(),
	}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		if cache.Len() == 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for cache to clear")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
