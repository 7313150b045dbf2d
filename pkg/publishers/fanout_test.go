package publishers

import (
	"context"
	"errors"
	"testing"
)

type stubPublisher struct {
	id     string
	typ    string
	err    error
	calls  int
	closed bool
}

func (s *stubPublisher) ID() string   { return s.id }
func (s *stubPublisher) Type() string { return s.typ }
func (s *stubPublisher) Publish(context.Context, Event) error {
	s.calls++
	return s.err
}
func (s *stubPublisher) Close() error {
	s.closed = true
	return nil
}

func TestFanoutPublishAggregatesErrors(t *testing.T) {
	fanout := NewFanout([]Publisher{
		&stubPublisher{id: "ok", typ: "http"},
		&stubPublisher{id: "bad", typ: "http", err: errors.New("failed")},
		nil,
	})

	count, err := fanout.Publish(context.Background(), Event{})
	if count != 1 {
		t.Fatalf("expected 1 success, got %d", count)
	}
	if err == nil {
		t.Fatalf("expected aggregated error")
	}
	if fanout.Size() != 2 {
		t.Fatalf("nil publisher should be skipped, size=%d", fanout.Size())
	}
}

func TestFanoutCloseClosesPublishers(t *testing.T) {
	stub := &stubPublisher{id: "s", typ: "pubsub"}
	if err := NewFanout([]Publisher{stub}).Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !stub.closed {
		t.Fatalf("publisher not closed")
	}
}

func TestBuildAllWithDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry()
	pubs, err := BuildAll(context.Background(), reg, []PublisherConfig{
		{ID: "http", Type: TypeHTTP, HTTP: &HTTPPublisherConfig{URL: "https://example.com"}},
	}, nil)
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if len(pubs) != 1 {
		t.Fatalf("expected 1 publisher, got %d", len(pubs))
	}
}

func TestBuildAllUnknownType(t *testing.T) {
	_, err := BuildAll(context.Background(), DefaultRegistry(), []PublisherConfig{{ID: "x", Type: "kafka"}}, nil)
	if err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestRegistryCustomType(t *testing.T) {
	reg := DefaultRegistry()
	stub := &stubPublisher{id: "k", typ: "kafka"}
	reg.Register(" Kafka ", func(context.Context, PublisherConfig, Logger) (Publisher, error) { return stub, nil })

	if types := reg.Types(); len(types) != 5 || types[1] != "kafka" {
		t.Fatalf("types = %v", types)
	}
	pubs, err := BuildAll(context.Background(), reg, []PublisherConfig{{ID: "k", Type: "kafka"}}, nil)
	if err != nil || len(pubs) != 1 || pubs[0] != stub {
		t.Fatalf("BuildAll = %v, %v", pubs, err)
	}
}

func TestBuildAllClosesBuiltOnFailure(t *testing.T) {
	built := &stubPublisher{id: "a", typ: "stub"}
	reg := NewRegistry(map[string]Builder{
		"stub": func(context.Context, PublisherConfig, Logger) (Publisher, error) { return built, nil },
	})
	_, err := BuildAll(context.Background(), reg, []PublisherConfig{{ID: "a", Type: "stub"}, {ID: "b", Type: "missing"}}, nil)
	if err == nil {
		t.Fatalf("expected unknown type error")
	}
	if !built.closed {
		t.Fatalf("already built publisher should be closed")
	}
}
