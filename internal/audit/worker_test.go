package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWorkerDrainsQueueIntoSink(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inbox := make(chan Event, 8)
	sink := NewRecorder(8)
	go func() { _ = NewWorker(sink, inbox).Run(ctx) }()

	queue := NewQueue(inbox)
	require.NoError(t, queue.Emit(ctx, Event{Action: string(EventVoteSubmitted), VoterID: "v-1"}))
	require.NoError(t, queue.Emit(ctx, Event{Action: string(EventVoteCommitted), VoterID: "v-1"}))

	require.Eventually(t, func() bool {
		return len(sink.Recent(0)) == 2
	}, time.Second, 10*time.Millisecond)

	events := sink.Recent(0)
	require.Equal(t, string(EventVoteSubmitted), events[0].Action)
	require.Equal(t, string(EventVoteCommitted), events[1].Action)
	require.False(t, events[0].Timestamp.IsZero())
}

func TestQueueDropsWhenInboxFull(t *testing.T) {
	inbox := make(chan Event, 1)
	queue := NewQueue(inbox)

	require.NoError(t, queue.Emit(context.Background(), Event{Action: "first"}))
	require.NoError(t, queue.Emit(context.Background(), Event{Action: "second"}))

	require.Len(t, inbox, 1)
	require.Equal(t, "first", (<-inbox).Action)
}

func TestTeeFansOut(t *testing.T) {
	a := NewRecorder(4)
	b := NewRecorder(4)

	tee := Tee{a, b}
	require.NoError(t, tee.Emit(context.Background(), Event{Action: string(EventAdminLogin)}))

	require.Len(t, a.Recent(0), 1)
	require.Len(t, b.Recent(0), 1)
}
