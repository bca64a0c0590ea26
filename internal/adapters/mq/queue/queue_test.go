package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/capmap/internal/domain/model"
)

func job(area string) Job {
	return model.NewJob(model.RawAlert{Area: area})
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if c := q.Capacity(); c != 2 {
		t.Errorf("expected capacity 2, got %d", c)
	}

	if err := q.Enqueue(ctx, job("Quito")); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	j := <-q.Dequeue(ctx)
	if j.Alert.Area != "Quito" {
		t.Errorf("expected Quito, got %q", j.Alert.Area)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	for _, area := range []string{"a", "b"} {
		if err := q.Enqueue(ctx, job(area)); err != nil {
			t.Fatalf("expected enqueue to succeed, got %v", err)
		}
	}

	if err := q.Enqueue(ctx, job("c")); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := q.Enqueue(ctx, job("a")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const producers = 10
	const perProducer = 100

	consumed := make(chan string, producers*perProducer)
	var cg sync.WaitGroup
	for i := 0; i < 4; i++ {
		cg.Add(1)
		go func() {
			defer cg.Done()
			for j := range q.Dequeue(ctx) {
				consumed <- j.Alert.Area
			}
		}()
	}

	var pg sync.WaitGroup
	for i := 0; i < producers; i++ {
		pg.Add(1)
		go func(id int) {
			defer pg.Done()
			for n := 0; n < perProducer; n++ {
				for q.Enqueue(ctx, job(fmt.Sprintf("p%d-%d", id, n))) != nil {
					time.Sleep(time.Millisecond)
				}
			}
		}(i)
	}

	pg.Wait()
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	cg.Wait()
	close(consumed)

	seen := make(map[string]bool)
	for area := range consumed {
		seen[area] = true
	}
	if len(seen) != producers*perProducer {
		t.Errorf("expected %d distinct jobs, got %d", producers*perProducer, len(seen))
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	for _, area := range []string{"a", "b"} {
		if err := q.Enqueue(ctx, job(area)); err != nil {
			t.Fatalf("expected enqueue to succeed, got %v", err)
		}
	}

	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}

	if err := q.Enqueue(ctx, job("c")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	// Jobs queued before Close are still delivered, then the channel closes.
	var got []string
	timeout := time.After(time.Second)
	ch := q.Dequeue(ctx)
	for done := false; !done; {
		select {
		case j, ok := <-ch:
			if !ok {
				done = true
				break
			}
			got = append(got, j.Alert.Area)
		case <-timeout:
			t.Fatal("expected dequeue channel to be closed within timeout")
		}
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("expected [a b], got %v", got)
	}

	if err := q.Close(); err != nil {
		t.Errorf("expected second close to succeed, got error: %v", err)
	}
}
