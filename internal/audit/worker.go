package audit

import (
	"context"
	"time"
)

// Queue is a Publisher that hands events to a channel for a Worker to
// deliver. Emit never blocks: when the inbox is full the event is dropped,
// which is the same tradeoff the Kafka publisher makes on produce errors.
type Queue struct {
	inbox chan<- Event
}

func NewQueue(inbox chan<- Event) *Queue {
	return &Queue{inbox: inbox}
}

func (q *Queue) Emit(_ context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case q.inbox <- event:
	default:
	}
	return nil
}

// Worker drains an event channel into a Publisher so domain code can emit
// without waiting on broker round trips.
type Worker struct {
	sink  Publisher
	inbox <-chan Event
}

func NewWorker(sink Publisher, inbox <-chan Event) *Worker {
	return &Worker{sink: sink, inbox: inbox}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Emit(ctx, event); err != nil {
				return err
			}
		}
	}
}
