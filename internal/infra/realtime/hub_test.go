package realtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/boddenberg/financio-bfa-go/internal/domain"
	"github.com/boddenberg/financio-bfa-go/internal/infra/realtime"

	"go.uber.org/zap"
)

func TestHub_FanOut(t *testing.T) {
	hub := realtime.NewHub(zap.NewNop())
	ctx := context.Background()

	a, cancelA := hub.Subscribe(ctx)
	defer cancelA()
	b, cancelB := hub.Subscribe(ctx)
	defer cancelB()

	ev := domain.NewChangeEvent("db", domain.CollectionTransactions, "t1", domain.ActionCreate, "u1")
	if err := hub.Publish(ctx, ev); err != nil {
		t.Fatalf("publish: %v", err)
	}

	for name, ch := range map[string]<-chan domain.ChangeEvent{"a": a, "b": b} {
		select {
		case got := <-ch:
			if got.OwnerID() != "u1" {
				t.Errorf("%s: expected owner u1, got %s", name, got.OwnerID())
			}
		case <-time.After(time.Second):
			t.Fatalf("%s: expected event", name)
		}
	}
}

func TestHub_UnsubscribeOnContextDone(t *testing.T) {
	hub := realtime.NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	ch, _ := hub.Subscribe(ctx)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("expected channel to close")
	}
	if n := hub.Subscribers(); n != 0 {
		t.Errorf("expected no subscribers, got %d", n)
	}
}

func TestHub_FullSubscriberDoesNotBlock(t *testing.T) {
	hub := realtime.NewHub(zap.NewNop())
	_, cancel := hub.Subscribe(context.Background())
	defer cancel()

	ev := domain.NewChangeEvent("db", domain.CollectionCategories, "c1", domain.ActionUpdate, "u1")
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			_ = hub.Publish(context.Background(), ev)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestRoutingKey(t *testing.T) {
	ev := domain.NewChangeEvent("db", domain.CollectionTransactions, "t1", domain.ActionDelete, "u1")
	if got := realtime.RoutingKey(ev); got != "transactions.delete" {
		t.Errorf("expected transactions.delete, got %s", got)
	}
	if got := realtime.RoutingKey(domain.ChangeEvent{}); got != "unknown.other" {
		t.Errorf("expected unknown.other, got %s", got)
	}
}
