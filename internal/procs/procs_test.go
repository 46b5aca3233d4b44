package procs

import (
	"context"
	"testing"
	"time"
)

func TestStart_TracksProcess(t *testing.T) {
	r := New()
	cmd, err := r.Start(context.Background(), "", nil, "sleep", "5")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if cmd.Process == nil {
		t.Fatal("Start() did not set cmd.Process")
	}

	r.mu.Lock()
	n := len(r.tracked)
	r.mu.Unlock()
	if n != 1 {
		t.Errorf("tracked = %d processes, want 1", n)
	}

	r.KillAllCreatedProcesses()
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("process was not killed within 2s")
	}
}

func TestKillAllCreatedProcesses_EmptyIsNoop(t *testing.T) {
	r := New()
	r.KillAllCreatedProcesses() // must not panic
}

func TestKillAllCreatedProcesses_ClearsTrackedList(t *testing.T) {
	r := New()
	cmd, err := r.Start(context.Background(), "", nil, "sleep", "5")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	r.KillAllCreatedProcesses()
	_ = cmd.Wait()

	r.mu.Lock()
	n := len(r.tracked)
	r.mu.Unlock()
	if n != 0 {
		t.Errorf("tracked = %d after KillAllCreatedProcesses, want 0", n)
	}
}
