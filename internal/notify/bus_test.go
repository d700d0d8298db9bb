package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func ptr(v uint64) *uint64 { return &v }

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestBus_NotifyIncrementsOnce(t *testing.T) {
	b := New()
	for i := 1; i <= 3; i++ {
		b.Notify("user", "add")
		if got := b.Epoch(); got != uint64(i) {
			t.Fatalf("Epoch() = %d, want %d", got, i)
		}
	}
}

func TestBus_StaleEpochReturnsImmediately(t *testing.T) {
	b := New()
	b.Notify("device", "add")
	b.Notify("device", "edit") // epoch 2

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got, err := b.Wait(ctx, ptr(1))
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if got != 2 {
		t.Errorf("Wait(E-1) = %d, want 2", got)
	}
	if b.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0 for an immediate return", b.Pending())
	}
}

func TestBus_CurrentEpochBlocksUntilNotify(t *testing.T) {
	b := New()
	b.Notify("user", "add") // epoch 1

	result := make(chan uint64, 1)
	go func() {
		got, err := b.Wait(context.Background(), ptr(1))
		if err != nil {
			t.Errorf("Wait() error = %v", err)
		}
		result <- got
	}()

	waitFor(t, func() bool { return b.Pending() == 1 })

	select {
	case got := <-result:
		t.Fatalf("Wait(E) returned %d before any mutation", got)
	default:
	}

	b.Notify("user", "remove")

	select {
	case got := <-result:
		if got != 2 {
			t.Errorf("Wait(E) = %d, want E+1 = 2", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait(E) did not return after Notify")
	}
}

func TestBus_NilKnownBlocks(t *testing.T) {
	b := New()
	b.Notify("policy", "put")

	result := make(chan uint64, 1)
	go func() {
		got, _ := b.Wait(context.Background(), nil) //nolint:errcheck // background ctx
		result <- got
	}()

	waitFor(t, func() bool { return b.Pending() == 1 })
	b.Notify("policy", "put")

	if got := <-result; got != 2 {
		t.Errorf("Wait(nil) = %d, want 2", got)
	}
}

func TestBus_NotifyWakesAllWaiters(t *testing.T) {
	b := New()
	const n = 20

	var wg sync.WaitGroup
	results := make(chan uint64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := b.Wait(context.Background(), ptr(0))
			if err != nil {
				t.Errorf("Wait() error = %v", err)
			}
			results <- got
		}()
	}

	waitFor(t, func() bool { return b.Pending() == n })
	b.Notify("device", "add")
	wg.Wait()
	close(results)

	for got := range results {
		if got != 1 {
			t.Errorf("waiter got %d, want 1", got)
		}
	}
	if b.Pending() != 0 {
		t.Errorf("Pending() = %d after broadcast, want 0", b.Pending())
	}
}

func TestBus_CancelledWaiterSlotFlushedByNextNotify(t *testing.T) {
	b := New()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := b.Wait(ctx, nil)
		done <- err
	}()

	waitFor(t, func() bool { return b.Pending() == 1 })
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() error = %v, want context.Canceled", err)
	}
	if b.Pending() != 1 {
		t.Errorf("Pending() = %d, want abandoned slot to remain until broadcast", b.Pending())
	}

	// Broadcasting to an abandoned buffered slot must not block.
	b.Notify("user", "edit")
	if b.Pending() != 0 {
		t.Errorf("Pending() = %d after broadcast, want 0", b.Pending())
	}
}

func TestBus_SubscribersSeeEveryEvent(t *testing.T) {
	b := New()

	var (
		mu  sync.Mutex
		got []Event
	)
	b.Subscribe(func(ev Event) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
	})

	b.Notify("user", "add")
	b.Notify("device", "remove")

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("events = %d, want 2", len(got))
	}
	if got[0].Epoch != 1 || got[0].Kind != "user" || got[0].Op != "add" {
		t.Errorf("first event = %+v", got[0])
	}
	if got[1].Epoch != 2 || got[1].Kind != "device" || got[1].Op != "remove" {
		t.Errorf("second event = %+v", got[1])
	}
}
