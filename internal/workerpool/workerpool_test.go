package workerpool

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/vli777/feedback-analyzer/internal/models"
)

type fakeRecords struct {
	mu      sync.Mutex
	records []models.FeedbackRecord
}

func (f *fakeRecords) Append(record models.FeedbackRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, record)
	return nil
}

func (f *fakeRecords) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

type fakeCursor struct {
	mu      sync.Mutex
	cursors map[string]int64
}

func newFakeCursor(seed map[string]int64) *fakeCursor {
	c := &fakeCursor{cursors: map[string]int64{}}
	for k, v := range seed {
		c.cursors[k] = v
	}
	return c
}

func (f *fakeCursor) Get(jobID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cursors[jobID], nil
}

func (f *fakeCursor) Update(jobID string, seq int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cursors[jobID] = seq
	return nil
}

func (f *fakeCursor) get(jobID string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cursors[jobID]
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []models.Event
}

func (f *fakeBroadcaster) Broadcast(event models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeBroadcaster) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func itemAnalyzed(jobID string, seq int64) models.Event {
	return models.Event{
		JobID: jobID,
		Seq:   seq,
		Type:  models.EventItemAnalyzed,
		Payload: map[string]any{
			"text":      "feedback text",
			"sentiment": "positive",
		},
	}
}

func TestPool_DedupSkipsAlreadyProcessedSeqs(t *testing.T) {
	records := &fakeRecords{}
	cursors := newFakeCursor(map[string]int64{"jobA": 5})
	bc := &fakeBroadcaster{}
	pool := New(16, 2, records, cursors, bc)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	defer func() {
		cancel()
		pool.Wait()
	}()

	for _, seq := range []int64{3, 4, 5, 6, 7} {
		pool.Inbound() <- itemAnalyzed("jobA", seq)
	}

	waitFor(t, func() bool { return records.count() == 2 && bc.count() == 2 })

	if cursors.get("jobA") != 7 {
		t.Errorf("expected final cursor 7, got %d", cursors.get("jobA"))
	}
}

func TestPool_DuplicateDeliveryIsIdempotent(t *testing.T) {
	records := &fakeRecords{}
	cursors := newFakeCursor(nil)
	bc := &fakeBroadcaster{}
	pool := New(16, 1, records, cursors, bc)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	defer func() {
		cancel()
		pool.Wait()
	}()

	event := itemAnalyzed("jobA", 1)
	pool.Inbound() <- event
	waitFor(t, func() bool { return records.count() == 1 })
	pool.Inbound() <- event
	time.Sleep(50 * time.Millisecond)

	if records.count() != 1 {
		t.Errorf("expected at most 1 record after duplicate delivery, got %d", records.count())
	}
	if bc.count() != 1 {
		t.Errorf("expected at most 1 broadcast after duplicate delivery, got %d", bc.count())
	}
}

func TestPool_AllEventTypesBroadcastIncludingLifecycle(t *testing.T) {
	records := &fakeRecords{}
	cursors := newFakeCursor(nil)
	bc := &fakeBroadcaster{}
	pool := New(16, 1, records, cursors, bc)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	defer func() {
		cancel()
		pool.Wait()
	}()

	pool.Inbound() <- models.Event{JobID: "jobA", Seq: 1, Type: models.EventJobStarted}
	pool.Inbound() <- itemAnalyzed("jobA", 2)
	pool.Inbound() <- models.Event{JobID: "jobA", Seq: 3, Type: models.EventJobCompleted}

	waitFor(t, func() bool { return bc.count() == 3 })
	if records.count() != 1 {
		t.Errorf("expected only item.analyzed to persist a record, got %d", records.count())
	}
}

func TestPool_StopDrainsInFlightAndExits(t *testing.T) {
	records := &fakeRecords{}
	cursors := newFakeCursor(nil)
	bc := &fakeBroadcaster{}
	pool := New(4, 2, records, cursors, bc)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	pool.Inbound() <- itemAnalyzed("jobA", 1)
	waitFor(t, func() bool { return bc.count() == 1 })

	cancel()
	done := make(chan struct{})
	go func() {
		pool.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pool did not stop after context cancellation")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
