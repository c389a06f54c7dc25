package progress

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(ch <-chan Event) []Event {
	var out []Event
	for e := range ch {
		out = append(out, e)
	}
	return out
}

func TestPublish_ClampsPercent(t *testing.T) {
	h := NewHub()
	h.Publish("p", Event{Status: StatusRunning, Step: "build", Percent: 140})
	e, ok := h.Latest("p")
	require.True(t, ok)
	assert.Equal(t, 100, e.Percent)

	h.Publish("p", Event{Status: StatusRunning, Step: "build", Percent: -3})
	e, _ = h.Latest("p")
	assert.Equal(t, 0, e.Percent)
	assert.False(t, e.At.IsZero())
}

func TestSubscribe_ReceivesLatestThenFuture(t *testing.T) {
	h := NewHub()
	h.MarkWaiting("p")

	ch, cancel := h.Subscribe("p")
	defer cancel()

	h.Publish("p", Event{Status: StatusRunning, Step: "install", Percent: 15})
	h.Publish("p", Event{Status: StatusSuccess, Step: "done", Percent: 100})

	got := drain(ch)
	require.Len(t, got, 3)
	assert.Equal(t, StatusWaiting, got[0].Status)
	assert.Equal(t, "install", got[1].Step)
	assert.Equal(t, StatusSuccess, got[2].Status)
	assert.Equal(t, 0, h.Subscribers("p"), "finished build drops subscribers")
}

func TestSubscribe_LateSubscriberGetsTerminalEvent(t *testing.T) {
	h := NewHub()
	h.Publish("p", Event{Status: StatusFailed, Step: "failed", Percent: 100, Message: "npm run build exited 1"})

	ch, cancel := h.Subscribe("p")
	defer cancel()

	got := drain(ch)
	require.Len(t, got, 1)
	assert.Equal(t, StatusFailed, got[0].Status)
	assert.Equal(t, "npm run build exited 1", got[0].Message)
}

func TestSubscribe_UnknownKeyWaits(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe("p")

	select {
	case e := <-ch:
		t.Fatalf("unexpected event %+v", e)
	default:
	}
	assert.Equal(t, 1, h.Subscribers("p"))

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, h.Subscribers("p"))
}

func TestPublish_SlowSubscriberKeepsNewest(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe("p")
	defer cancel()

	for i := 0; i < subscriberBuffer+10; i++ {
		h.Publish("p", Event{Status: StatusRunning, Step: "build", Percent: i % 100})
	}
	h.Publish("p", Event{Status: StatusSuccess, Step: "done", Percent: 100})

	got := drain(ch)
	require.NotEmpty(t, got)
	assert.Equal(t, StatusSuccess, got[len(got)-1].Status)
	assert.LessOrEqual(t, len(got), subscriberBuffer)
}

func TestStatusFinished(t *testing.T) {
	assert.True(t, StatusSuccess.Finished())
	assert.True(t, StatusFailed.Finished())
	assert.False(t, StatusWaiting.Finished())
	assert.False(t, StatusRunning.Finished())
}

func TestSnapshot(t *testing.T) {
	h := NewHub()
	h.Publish("a", Event{Status: StatusRunning, Step: "install", Percent: 15})
	h.MarkWaiting("b")

	snap := h.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "install", snap["a"].Step)
	assert.Equal(t, StatusWaiting, snap["b"].Status)

	h.Publish("a", Event{Status: StatusSuccess, Step: "done", Percent: 100})
	assert.Equal(t, "install", snap["a"].Step, "snapshot is a copy")
}

func TestRetention_KeepsNewestFinished(t *testing.T) {
	h := NewHub()
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return clock }
	h.SetRetention(3, time.Hour)

	h.Publish("running", Event{Status: StatusRunning, Step: "build", Percent: 50})
	for i := 0; i < 5; i++ {
		clock = clock.Add(time.Second)
		h.Publish(fmt.Sprintf("p%d", i), Event{Status: StatusSuccess, Step: "done", Percent: 100})
	}

	snap := h.Snapshot()
	assert.Len(t, snap, 4)
	assert.Contains(t, snap, "running", "in-flight builds are never dropped")
	for _, k := range []string{"p2", "p3", "p4"} {
		assert.Contains(t, snap, k)
	}
	_, ok := h.Latest("p0")
	assert.False(t, ok)
}

func TestRetention_DropsExpiredFinished(t *testing.T) {
	h := NewHub()
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return clock }
	h.SetRetention(0, time.Hour)

	h.Publish("old", Event{Status: StatusFailed, Step: "build", Percent: 100})
	h.MarkWaiting("queued")
	clock = clock.Add(2 * time.Hour)
	h.Publish("new", Event{Status: StatusSuccess, Step: "done", Percent: 100})

	snap := h.Snapshot()
	assert.NotContains(t, snap, "old")
	assert.Contains(t, snap, "queued")
	assert.Contains(t, snap, "new")

	ch, cancel := h.Subscribe("old")
	defer cancel()
	select {
	case e := <-ch:
		t.Fatalf("expired key should have no latest event, got %+v", e)
	default:
	}
}
