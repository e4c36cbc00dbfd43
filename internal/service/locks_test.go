package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestFolderLocks_SerializesSameFolder(t *testing.T) {
	l := newFolderLocks()
	unlock, err := l.lock(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.lock(ctx, 1); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded while folder is held, got %v", err)
	}

	unlock()
	if l.size() != 0 {
		t.Errorf("expected no tracked folders, got %d", l.size())
	}
}

func TestFolderLocks_DifferentFoldersIndependent(t *testing.T) {
	l := newFolderLocks()
	unlock1, err := l.lock(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer unlock1()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlock2, err := l.lock(ctx, 2)
	if err != nil {
		t.Fatalf("folder 2 must not wait for folder 1: %v", err)
	}
	unlock2()
}

func TestFolderLocks_MutualExclusion(t *testing.T) {
	l := newFolderLocks()
	var wg sync.WaitGroup
	var mu sync.Mutex
	active, maxActive := 0, 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.lock(context.Background(), 7)
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Errorf("expected at most one holder, saw %d", maxActive)
	}
	if l.size() != 0 {
		t.Errorf("expected no tracked folders, got %d", l.size())
	}
}
