package broadcaster

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/vli777/feedback-analyzer/internal/models"
)

type fakeSubscriber struct {
	name   string
	fail   bool
	sent   [][]byte
}

func (f *fakeSubscriber) Send(data []byte) error {
	if f.fail {
		return fmt.Errorf("%s: send failed", f.name)
	}
	f.sent = append(f.sent, data)
	return nil
}

func TestBroadcaster_ConnectAndBroadcast(t *testing.T) {
	b := New()
	sub := &fakeSubscriber{name: "s1"}
	b.Connect(sub)

	if err := b.Broadcast(models.Event{JobID: "jobA", Seq: 1, Type: models.EventItemAnalyzed}); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if len(sub.sent) != 1 {
		t.Fatalf("expected subscriber to receive 1 message, got %d", len(sub.sent))
	}
}

func TestBroadcaster_DeadSubscriberReaped(t *testing.T) {
	b := New()
	good1 := &fakeSubscriber{name: "good1"}
	good2 := &fakeSubscriber{name: "good2"}
	bad := &fakeSubscriber{name: "bad", fail: true}
	b.Connect(good1)
	b.Connect(good2)
	b.Connect(bad)

	if err := b.Broadcast(models.Event{JobID: "jobA", Seq: 1}); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}

	if b.ClientCount() != 2 {
		t.Fatalf("expected 2 survivors after reap, got %d", b.ClientCount())
	}
	if len(good1.sent) != 1 || len(good2.sent) != 1 {
		t.Errorf("expected both survivors to have received the message")
	}
}

func TestBroadcaster_DisconnectRemovesSubscriber(t *testing.T) {
	b := New()
	sub := &fakeSubscriber{name: "s1"}
	b.Connect(sub)
	b.Disconnect(sub)

	if b.ClientCount() != 0 {
		t.Errorf("expected 0 subscribers after disconnect, got %d", b.ClientCount())
	}
}

func TestBroadcaster_OrderPreservedPerSubscriber(t *testing.T) {
	b := New()
	sub := &fakeSubscriber{name: "s1"}
	b.Connect(sub)

	for i := int64(1); i <= 3; i++ {
		if err := b.Broadcast(models.Event{JobID: "jobA", Seq: i}); err != nil {
			t.Fatalf("Broadcast seq=%d: %v", i, err)
		}
	}

	if len(sub.sent) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(sub.sent))
	}
	for i, data := range sub.sent {
		var ev models.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("decoding message %d: %v", i, err)
		}
		if ev.Seq != int64(i+1) {
			t.Errorf("message %d: expected seq %d, got %d", i, i+1, ev.Seq)
		}
	}
}
