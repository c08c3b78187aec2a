package workers

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestPool_SubmitWaitRunsTaskAndReturnsError(t *testing.T) {
	cfg := DefaultPoolConfig("test")
	cfg.NumWorkers = 2
	p := NewPool(zap.NewNop(), cfg)
	p.Start()
	defer p.Stop()

	var ran atomic.Bool
	if err := p.SubmitWait(TaskFunc(func() error {
		ran.Store(true)
		return nil
	})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran.Load() {
		t.Fatal("task did not run")
	}

	wantErr := errors.New("boom")
	if err := p.SubmitWait(TaskFunc(func() error { return wantErr })); !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestPool_SubmitFailsWhenStopped(t *testing.T) {
	p := NewPool(zap.NewNop(), DefaultPoolConfig("test"))

	if err := p.Submit(TaskFunc(func() error { return nil })); !errors.Is(err, ErrPoolStopped) {
		t.Fatalf("err = %v, want ErrPoolStopped", err)
	}

	p.Start()
	p.Stop()

	if err := p.Submit(TaskFunc(func() error { return nil })); !errors.Is(err, ErrPoolStopped) {
		t.Fatalf("err = %v, want ErrPoolStopped", err)
	}
}

func TestPool_RecoversFromPanic(t *testing.T) {
	cfg := DefaultPoolConfig("test")
	cfg.NumWorkers = 1
	p := NewPool(zap.NewNop(), cfg)
	p.Start()
	defer p.Stop()

	err := p.SubmitWait(TaskFunc(func() error {
		panic("task exploded")
	}))

	var panicErr *PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("err = %v, want *PanicError", err)
	}
}

func TestPool_TaskTimeout(t *testing.T) {
	cfg := DefaultPoolConfig("test")
	cfg.NumWorkers = 1
	cfg.TaskTimeout = 10 * time.Millisecond
	p := NewPool(zap.NewNop(), cfg)
	p.Start()
	defer p.Stop()

	done := make(chan struct{})
	go func() {
		_ = p.SubmitWait(TaskFunc(func() error {
			time.Sleep(100 * time.Millisecond)
			return nil
		}))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SubmitWait never returned: timed-out task should still signal its own completion")
	}
}
