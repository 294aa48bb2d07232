package conn

import (
	"sync"
	"testing"

	"github.com/UlusTech/nmc/protocol"
)

func TestRegistryOpenAssignsUniqueIDs(t *testing.T) {
	r := NewRegistry()
	seen := map[uint64]bool{}
	for i := 0; i < 100; i++ {
		s := r.Open("127.0.0.1:1")
		if seen[s.ID] {
			t.Fatalf("duplicate id %d", s.ID)
		}
		seen[s.ID] = true
		if s.Phase != protocol.Handshaking {
			t.Fatalf("new conn phase = %s", s.Phase)
		}
	}
	if r.Count() != 100 {
		t.Fatalf("count = %d", r.Count())
	}
}

func TestRegistryCommitAndGet(t *testing.T) {
	r := NewRegistry()
	s := r.Open("127.0.0.1:2")

	hs := protocol.Handshake{ProtocolVersion: 767, ServerAddress: "localhost", ServerPort: 25565, NextState: 1}
	r.Commit(s.WithHandshake(hs).WithPhase(protocol.Status))

	got, ok := r.Get(s.ID)
	if !ok {
		t.Fatal("snapshot missing")
	}
	if got.Phase != protocol.Status || got.ProtocolVersion != 767 {
		t.Fatalf("committed snapshot = %+v", got)
	}
}

func TestRegistryCommitAfterCloseIsNoop(t *testing.T) {
	r := NewRegistry()
	s := r.Open("127.0.0.1:3")
	r.Close(s.ID, "test")

	r.Commit(s.WithPhase(protocol.Status))
	if _, ok := r.Get(s.ID); ok {
		t.Fatal("commit resurrected a closed connection")
	}
}

func TestRegistryDoubleClose(t *testing.T) {
	r := NewRegistry()
	s := r.Open("127.0.0.1:4")
	r.Close(s.ID, "first")
	r.Close(s.ID, "second")
	if r.Count() != 0 {
		t.Fatalf("count = %d", r.Count())
	}
}

func TestSnapshotCopySemantics(t *testing.T) {
	s := Snapshot{ID: 1, Phase: protocol.Handshaking}
	s2 := s.WithPhase(protocol.Status).WithClosing()
	if s.Phase != protocol.Handshaking || s.Closing {
		t.Fatalf("original mutated: %+v", s)
	}
	if s2.Phase != protocol.Status || !s2.Closing {
		t.Fatalf("derived snapshot wrong: %+v", s2)
	}
}

func TestRegistryConcurrentUse(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s := r.Open("127.0.0.1:5")
				r.Commit(s.WithPhase(protocol.Status))
				if _, ok := r.Get(s.ID); !ok {
					t.Error("snapshot missing")
					return
				}
				r.Close(s.ID, "done")
			}
		}()
	}
	wg.Wait()
	if r.Count() != 0 {
		t.Fatalf("count = %d after churn", r.Count())
	}
}
