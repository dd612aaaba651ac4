// Package bridge implements the persistent client to the upstream event
// source: connect, send a resume cursor, receive events, and enqueue them
// for the worker pool. Re-expressed from the Python original's
// ws_bridge.py _connect_loop/_receive_loop state machine using
// gorilla/websocket's Dialer, with the doubling-backoff idiom already
// present in the teacher's internal/flow/client.go withRetry.
package bridge

import (
	"context"
	"encoding/json"
	"log"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vli777/feedback-analyzer/internal/errs"
	"github.com/vli777/feedback-analyzer/internal/models"
)

// Config configures one Bridge instance.
type Config struct {
	URL               string
	InitialCursors    map[string]int64
	BaseReconnectSecs float64
	MaxReconnectSecs  float64
}

// Bridge dials the upstream WS source and forwards received events into
// Inbound. Inbound is a non-blocking, drop-on-full send: the bridge never
// stalls its receive loop waiting on a full queue.
type Bridge struct {
	cfg     Config
	inbound chan<- models.Event
	dialer  *websocket.Dialer

	lastSeqByJob map[string]int64
	dropped      atomic.Int64
}

// DroppedCount reports how many events have been dropped because the
// inbound queue was full at receive time — the only intentional
// data-loss path in the pipeline.
func (b *Bridge) DroppedCount() int64 {
	return b.dropped.Load()
}

// New returns a Bridge that forwards events into inbound.
func New(cfg Config, inbound chan<- models.Event) *Bridge {
	lastSeq := make(map[string]int64, len(cfg.InitialCursors))
	for k, v := range cfg.InitialCursors {
		lastSeq[k] = v
	}
	return &Bridge{
		cfg:          cfg,
		inbound:      inbound,
		dialer:       websocket.DefaultDialer,
		lastSeqByJob: lastSeq,
	}
}

func (b *Bridge) maxSeq() int64 {
	var max int64
	for _, v := range b.lastSeqByJob {
		if v > max {
			max = v
		}
	}
	return max
}

// Run drives the connect/receive/backoff state machine until ctx is
// canceled. On successful connect the backoff delay resets to base.
func (b *Bridge) Run(ctx context.Context) {
	delay := b.cfg.BaseReconnectSecs
	if delay <= 0 {
		delay = 1.0
	}
	maxDelay := b.cfg.MaxReconnectSecs
	if maxDelay <= 0 {
		maxDelay = 30.0
	}

	for {
		if ctx.Err() != nil {
			log.Printf("[Bridge] stopping")
			return
		}

		conn, _, err := b.dialer.DialContext(ctx, b.cfg.URL, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			connErr := &errs.TransportError{Op: "dial", Err: err}
			log.Printf("[Bridge] %v. Reconnecting in %.1fs", connErr, delay)
			if !sleepOrDone(ctx, delay) {
				return
			}
			delay = nextDelay(delay, maxDelay)
			continue
		}

		resumeSeq := b.maxSeq()
		resumeMsg, _ := json.Marshal(map[string]int64{"resumeFromSeq": resumeSeq})
		if err := conn.WriteMessage(websocket.TextMessage, resumeMsg); err != nil {
			connErr := &errs.TransportError{Op: "send resume frame", Err: err}
			log.Printf("[Bridge] %v", connErr)
			conn.Close()
			if !sleepOrDone(ctx, delay) {
				return
			}
			delay = nextDelay(delay, maxDelay)
			continue
		}
		log.Printf("[Bridge] connected to %s (resumeFromSeq=%d)", b.cfg.URL, resumeSeq)

		delay = b.cfg.BaseReconnectSecs
		if delay <= 0 {
			delay = 1.0
		}

		stopClose := context.AfterFunc(ctx, func() { conn.Close() })
		err = b.receiveLoop(ctx, conn)
		stopClose()
		conn.Close()
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			connErr := &errs.TransportError{Op: "receive", Err: err}
			log.Printf("[Bridge] %v. Reconnecting in %.1fs", connErr, delay)
			if !sleepOrDone(ctx, delay) {
				return
			}
			delay = nextDelay(delay, maxDelay)
		}
	}
}

func (b *Bridge) receiveLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var event models.Event
		if err := json.Unmarshal(raw, &event); err != nil {
			log.Printf("[Bridge] received non-JSON message, ignoring")
			continue
		}

		if event.Seq > b.lastSeqByJob[event.JobID] {
			b.lastSeqByJob[event.JobID] = event.Seq
		}

		select {
		case b.inbound <- event:
		default:
			b.dropped.Add(1)
			log.Printf("[Bridge] %v", &errs.QueueFullError{JobID: event.JobID, Seq: event.Seq})
		}
	}
}

func sleepOrDone(ctx context.Context, seconds float64) bool {
	select {
	case <-time.After(time.Duration(seconds * float64(time.Second))):
		return true
	case <-ctx.Done():
		return false
	}
}

func nextDelay(current, max float64) float64 {
	next := current * 2
	if next > max {
		return max
	}
	return next
}
