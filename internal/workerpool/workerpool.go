// Package workerpool drains the inbound event queue, deduplicates by
// cursor, persists item.analyzed records, advances cursors, and
// broadcasts every event type. Re-expressed from the Python original's
// event_queue.py EventWorkerPool/_process_event as a Go channel-backed
// bounded queue with N worker goroutines, matching the teacher's
// CheckpointCommitter background-loop idiom for cancellation.
package workerpool

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vli777/feedback-analyzer/internal/models"
)

// RecordAppender is the subset of the record store the pool needs.
type RecordAppender interface {
	Append(record models.FeedbackRecord) error
}

// Cursor is the subset of the cursor store the pool needs.
type Cursor interface {
	Get(jobID string) (int64, error)
	Update(jobID string, seq int64) error
}

// Broadcaster is the subset of the broadcaster the pool needs.
type Broadcaster interface {
	Broadcast(event models.Event) error
}

// Pool owns a bounded FIFO queue of inbound events and N worker
// goroutines, each running dequeue -> process -> acknowledge until
// canceled.
type Pool struct {
	queue       chan models.Event
	workerCount int
	records     RecordAppender
	cursors     Cursor
	broadcaster Broadcaster

	wg sync.WaitGroup
}

// New returns a Pool with a bounded inbound queue of the given size.
// Callers send events into Inbound(); the bridge is the expected
// producer.
func New(queueSize, workerCount int, records RecordAppender, cursors Cursor, b Broadcaster) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Pool{
		queue:       make(chan models.Event, queueSize),
		workerCount: workerCount,
		records:     records,
		cursors:     cursors,
		broadcaster: b,
	}
}

// Inbound returns the channel producers (the bridge) should send events
// into. Sends should be non-blocking (select with a default branch) so a
// saturated queue drops rather than stalls the producer.
func (p *Pool) Inbound() chan<- models.Event {
	return p.queue
}

// Start launches the worker goroutines. Canceling ctx stops them; Wait
// then blocks on the WaitGroup until every worker has finished its
// in-flight event and exited.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		workerID := i
		go p.runWorker(ctx, workerID)
	}
}

// Wait blocks until every worker goroutine has exited.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) runWorker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			log.Printf("[WorkerPool] worker %d stopping", id)
			return
		case event := <-p.queue:
			p.processEvent(event)
		}
	}
}

func (p *Pool) processEvent(event models.Event) {
	cursor, err := p.cursors.Get(event.JobID)
	if err != nil {
		log.Printf("[WorkerPool] cursor read failed for job %s: %v", event.JobID, err)
		cursor = 0
	}

	if event.Seq <= cursor {
		return
	}

	if event.Type == models.EventItemAnalyzed {
		record := models.FeedbackRecord{
			ID:             uuid.NewString(),
			Text:           event.PayloadString("text"),
			UserID:         event.PayloadString("userId"),
			Sentiment:      models.NormalizeSentiment(event.PayloadString("sentiment")),
			KeyTopics:      event.PayloadStringSlice("keyTopics"),
			ActionRequired: event.PayloadBool("actionRequired"),
			Summary:        event.PayloadString("summary"),
			CreatedAt:      time.Now().UTC(),
		}
		if err := p.records.Append(record); err != nil {
			log.Printf("[WorkerPool] persistence failed for job %s seq %d: %v", event.JobID, event.Seq, err)
		}
	}

	if err := p.cursors.Update(event.JobID, event.Seq); err != nil {
		log.Printf("[WorkerPool] cursor update failed for job %s seq %d: %v", event.JobID, event.Seq, err)
	}

	if err := p.broadcaster.Broadcast(event); err != nil {
		log.Printf("[WorkerPool] broadcast failed for job %s seq %d: %v", event.JobID, event.Seq, err)
	}
}
