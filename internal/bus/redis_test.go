package bus

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"clix/internal/model"
	"clix/internal/redis"
)

const testChannel = "clix:realtime:sync"

func newRedisBusPair(t *testing.T) (*RedisBus, *RedisBus) {
	t.Helper()

	mr := miniredis.RunT(t)

	clientA := redis.NewClientFromAddr(mr.Addr())
	clientB := redis.NewClientFromAddr(mr.Addr())
	t.Cleanup(func() {
		clientA.Close()
		clientB.Close()
	})

	ctx := context.Background()
	a, err := NewRedisBus(ctx, clientA, testChannel, "ctx-a")
	if err != nil {
		t.Fatalf("NewRedisBus a: %v", err)
	}
	b, err := NewRedisBus(ctx, clientB, testChannel, "ctx-b")
	if err != nil {
		t.Fatalf("NewRedisBus b: %v", err)
	}
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return a, b
}

// eventually polls until the condition holds or the deadline passes.
func eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestRedisBus_CrossContextDelivery(t *testing.T) {
	a, b := newRedisBusPair(t)

	var received atomic.Value
	b.Subscribe(func(e Envelope) { received.Store(e) })

	if err := a.Broadcast(EventNewPost, model.Post{ID: "p-new", Content: "hello"}); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}

	eventually(t, 2*time.Second, func() bool {
		return received.Load() != nil
	}, "peer context never received the broadcast")

	e := received.Load().(Envelope)
	if e.Type != EventNewPost || e.Origin != "ctx-a" {
		t.Errorf("envelope type=%s origin=%s", e.Type, e.Origin)
	}
	post, err := e.Post()
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if post.ID != "p-new" {
		t.Errorf("post id = %s, want p-new", post.ID)
	}
}

func TestRedisBus_OwnEchoDroppedAfterLocalDelivery(t *testing.T) {
	a, b := newRedisBusPair(t)

	var aCount, bCount atomic.Int64
	a.Subscribe(func(Envelope) { aCount.Add(1) })
	b.Subscribe(func(Envelope) { bCount.Add(1) })

	if err := a.Broadcast(EventLikeUpdate, LikeUpdatePayload{PostID: "p1", Likes: 1}); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}

	// The origin sees the event once, synchronously inside Broadcast.
	if aCount.Load() != 1 {
		t.Fatalf("origin saw %d events immediately, want 1", aCount.Load())
	}

	eventually(t, 2*time.Second, func() bool {
		return bCount.Load() == 1
	}, "peer context never received the broadcast")

	// Give the echo time to come back; it must be dropped, not re-dispatched.
	time.Sleep(100 * time.Millisecond)
	if aCount.Load() != 1 {
		t.Errorf("origin saw %d events after the round trip, want 1", aCount.Load())
	}
}
