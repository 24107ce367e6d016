package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestPoolRunsJobs(t *testing.T) {
	pool := NewPool(2, 4)
	defer pool.Close()

	var mu sync.Mutex
	ran := 0
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pool.Do(context.Background(), func(ctx context.Context) {
				mu.Lock()
				ran++
				mu.Unlock()
			})
			if err != nil && !errors.Is(err, ErrBusy) {
				t.Errorf("Do error: %v", err)
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if ran == 0 {
		t.Fatalf("no jobs ran")
	}
}

func TestPoolBusyWhenQueueFull(t *testing.T) {
	pool := NewPool(1, 1)
	defer pool.Close()

	block := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = pool.Do(context.Background(), func(ctx context.Context) {
			close(started)
			<-block
		})
	}()
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatalf("first job did not start")
	}

	// fill the single queue slot
	filled := make(chan struct{})
	go func() {
		_ = pool.Do(context.Background(), func(ctx context.Context) {})
		close(filled)
	}()
	// give the queued job a moment to occupy the slot
	time.Sleep(20 * time.Millisecond)

	if err := pool.Do(context.Background(), func(ctx context.Context) {}); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	close(block)
	select {
	case <-filled:
	case <-time.After(time.Second):
		t.Fatalf("queued job did not complete after unblocking")
	}
}

func TestPoolHonorsCallerContext(t *testing.T) {
	pool := NewPool(1, 2)
	defer pool.Close()

	block := make(chan struct{})
	defer close(block)
	started := make(chan struct{})
	go func() {
		_ = pool.Do(context.Background(), func(ctx context.Context) {
			close(started)
			<-block
		})
	}()
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatalf("first job did not start")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := pool.Do(ctx, func(ctx context.Context) {})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error for queued job, got %v", err)
	}
}
