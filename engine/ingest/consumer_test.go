package ingest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/opencircuit/core/engine/embedcache"

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

func TestStartConsumer_SkipsDuplicate(t *testing.T) {
	nc := startTestNATS(t)
	s := newTestStore(t)
	svc := embedcache.NewService(embedcache.NewCache(1<<20), fakeEmbedder{}, nil)

	var dedupCalls int
	sub, err := StartConsumer(nc, Deps{
		Store:          s,
		Embedder:       svc,
		EmbeddingModel: "test-model",
		DeduplicateF: func(_ context.Context, partNumber string) (bool, error) {
			dedupCalls++
			return true, nil
		},
	})
	if err != nil {
		t.Fatalf("StartConsumer: %v", err)
	}
	defer sub.Unsubscribe()

	raw := RawComponent{PartNumber: "LM317T", Manufacturer: "TI", Category: "Voltage Regulator"}
	data, _ := json.Marshal(raw)
	if err := nc.Publish(IngestSubject, data); err != nil {
		t.Fatal(err)
	}
	nc.Flush()
	time.Sleep(100 * time.Millisecond)

	if dedupCalls != 1 {
		t.Fatalf("expected dedup to be checked once, got %d calls", dedupCalls)
	}
	if _, err := s.GetByPartNumber(context.Background(), "LM317T"); err == nil {
		t.Fatal("expected duplicate row to be skipped, but it was stored")
	}
}

func TestStartConsumer_SendsToDLQAfterMaxRetries(t *testing.T) {
	nc := startTestNATS(t)
	s := newTestStore(t)
	svc := embedcache.NewService(embedcache.NewCache(1<<20), fakeEmbedder{}, nil)

	dlq := make(chan dlqMessage, 1)
	dlqSub, err := nc.Subscribe(DLQSubject, func(msg *nats.Msg) {
		var m dlqMessage
		if err := json.Unmarshal(msg.Data, &m); err == nil {
			dlq <- m
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	defer dlqSub.Unsubscribe()

	sub, err := StartConsumer(nc, Deps{Store: s, Embedder: svc, EmbeddingModel: "test-model"})
	if err != nil {
		t.Fatalf("StartConsumer: %v", err)
	}
	defer sub.Unsubscribe()

	// Missing manufacturer/category fails validation on every retry.
	raw := RawComponent{PartNumber: "BAD-PART"}
	data, _ := json.Marshal(raw)
	if err := nc.Publish(IngestSubject, data); err != nil {
		t.Fatal(err)
	}

	select {
	case m := <-dlq:
		if m.Raw.PartNumber != "BAD-PART" {
			t.Fatalf("unexpected DLQ message: %+v", m)
		}
		if m.Retries != MaxRetries {
			t.Fatalf("expected %d retries, got %d", MaxRetries, m.Retries)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for DLQ message")
	}
}
