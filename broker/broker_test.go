package broker

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"taskpulse/domain"
)

func newTestBroker(queueSize int) *Broker {
	logger, _ := test.NewNullLogger()
	return New(logger, queueSize)
}

func recvEvent(t *testing.T, sub *Subscriber) domain.Event {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		if !ok {
			t.Fatal("subscriber queue closed unexpectedly")
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return domain.Event{}
}

func TestPublishDeliversInOrder(t *testing.T) {
	b := newTestBroker(0)
	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	b.Publish(domain.EventNewTask, map[string]int{"id": 1})
	b.Publish(domain.EventTaskCompleted, map[string]int{"task_id": 1})

	first := recvEvent(t, sub)
	if first.Type != domain.EventNewTask {
		t.Fatalf("expected %s first, got %s", domain.EventNewTask, first.Type)
	}
	second := recvEvent(t, sub)
	if second.Type != domain.EventTaskCompleted {
		t.Fatalf("expected %s second, got %s", domain.EventTaskCompleted, second.Type)
	}
}

func TestPublishPrunesStalledSubscriber(t *testing.T) {
	b := newTestBroker(1)

	live := []*Subscriber{b.Subscribe(), b.Subscribe(), b.Subscribe()}
	stalled := b.Subscribe()

	// Fill the stalled subscriber's queue so the next publish overflows it.
	b.Publish(domain.EventNewTask, map[string]int{"id": 1})
	for _, sub := range live {
		recvEvent(t, sub)
	}

	b.Publish(domain.EventNewTask, map[string]int{"id": 2})

	for i, sub := range live {
		ev := recvEvent(t, sub)
		if ev.Type != domain.EventNewTask {
			t.Fatalf("live subscriber %d got %s", i, ev.Type)
		}
	}
	if got := b.Len(); got != 3 {
		t.Fatalf("expected 3 registered subscribers, got %d", got)
	}

	// The stalled queue still holds the first event, then closes.
	recvEvent(t, stalled)
	select {
	case _, ok := <-stalled.Events():
		if ok {
			t.Fatal("expected stalled subscriber queue to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for queue close")
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	b := newTestBroker(0)
	sub := b.Subscribe()

	b.Unsubscribe(sub)
	b.Unsubscribe(sub)
	b.Unsubscribe(nil)

	if got := b.Len(); got != 0 {
		t.Fatalf("expected empty registry, got %d", got)
	}

	// Publishing after removal must not deliver or panic.
	b.Publish(domain.EventNewTask, nil)
	select {
	case ev, ok := <-sub.Events():
		if ok {
			t.Fatalf("unexpected event after unsubscribe: %+v", ev)
		}
	default:
		t.Fatal("expected closed queue after unsubscribe")
	}
}

func TestSubscribersAreIndependent(t *testing.T) {
	b := newTestBroker(0)
	a := b.Subscribe()
	c := b.Subscribe()
	defer b.Unsubscribe(a)
	defer b.Unsubscribe(c)

	b.Publish(domain.EventNewTask, map[string]int{"id": 7})

	evA := recvEvent(t, a)
	evC := recvEvent(t, c)
	if evA.Type != domain.EventNewTask || evC.Type != domain.EventNewTask {
		t.Fatalf("expected both subscribers to receive the event, got %s / %s", evA.Type, evC.Type)
	}
	if a.ID() == c.ID() {
		t.Fatal("expected distinct subscriber identities")
	}
}
