package kademlia

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/shadowmesh/kademlia/pkg/wire"
)

func TestStorePutAndGet(t *testing.T) {
	mock := clock.NewMock()
	s := NewStore[ID160](mock)
	var key ID160
	key[0] = 0x01

	ok, err := s.Put(key, []byte("value"), 1, wire.ModePrimary, time.Hour, time.Hour, time.Hour)
	if err != nil || !ok {
		t.Fatalf("put failed: ok=%v err=%v", ok, err)
	}

	entry, found := s.Get(key)
	if !found {
		t.Fatal("expected value to be found")
	}
	if string(entry.Data) != "value" {
		t.Errorf("data = %q, want %q", entry.Data, "value")
	}
}

func TestStoreRejectsStaleVersion(t *testing.T) {
	mock := clock.NewMock()
	s := NewStore[ID160](mock)
	var key ID160

	if _, err := s.Put(key, []byte("v1"), 5, wire.ModePrimary, time.Hour, time.Hour, time.Hour); err != nil {
		t.Fatalf("initial put: %v", err)
	}
	_, err := s.Put(key, []byte("v0"), 3, wire.ModePrimary, time.Hour, time.Hour, time.Hour)
	if err != ErrStaleVersion {
		t.Errorf("expected ErrStaleVersion, got %v", err)
	}
}

func TestStoreExpireOnce(t *testing.T) {
	mock := clock.NewMock()
	s := NewStore[ID160](mock)
	var key ID160
	s.Put(key, []byte("v"), 1, wire.ModePrimary, time.Second, time.Hour, time.Hour)

	mock.Add(2 * time.Second)

	if _, found := s.Get(key); found {
		t.Error("expected expired entry to be invisible to Get")
	}
	expired := s.ExpireOnce()
	if len(expired) != 1 {
		t.Fatalf("expired %d keys, want 1", len(expired))
	}
}

func TestStoreOnlyPrimaryEntriesCarryMaintenanceTimers(t *testing.T) {
	mock := clock.NewMock()
	s := NewStore[ID160](mock)
	var primary, replica ID160
	primary[0], replica[0] = 0x01, 0x02

	s.Put(primary, []byte("v"), 1, wire.ModePrimary, time.Hour, time.Minute, 2*time.Minute)
	s.Put(replica, []byte("v"), 1, wire.ModeReplica, time.Hour, time.Minute, 2*time.Minute)

	mock.Add(3 * time.Minute)

	due := s.PrimaryKeysDueForRepublish()
	if len(due) != 1 || !due[0].Equal(primary) {
		t.Errorf("republish due = %v, want only the primary key", due)
	}
	due = s.PrimaryKeysDueForReplicate()
	if len(due) != 1 || !due[0].Equal(primary) {
		t.Errorf("replicate due = %v, want only the primary key", due)
	}
}

func TestStoreMarkRepublishedAndReplicatedRearmIndependently(t *testing.T) {
	mock := clock.NewMock()
	s := NewStore[ID160](mock)
	var key ID160
	s.Put(key, []byte("v"), 1, wire.ModePrimary, time.Hour, time.Minute, 2*time.Minute)

	mock.Add(90 * time.Second)
	if due := s.PrimaryKeysDueForRepublish(); len(due) != 1 {
		t.Fatalf("expected republish due after 90s, got %v", due)
	}
	if due := s.PrimaryKeysDueForReplicate(); len(due) != 0 {
		t.Fatalf("expected replicate not yet due after 90s, got %v", due)
	}

	s.MarkRepublished(key, time.Minute)
	if due := s.PrimaryKeysDueForRepublish(); len(due) != 0 {
		t.Fatalf("expected republish rearmed, got due %v", due)
	}

	mock.Add(45 * time.Second)
	if due := s.PrimaryKeysDueForReplicate(); len(due) != 1 {
		t.Fatalf("expected replicate due independently of republish, got %v", due)
	}
	s.MarkReplicated(key, 2*time.Minute)
	if due := s.PrimaryKeysDueForReplicate(); len(due) != 0 {
		t.Fatalf("expected replicate rearmed, got due %v", due)
	}
}
