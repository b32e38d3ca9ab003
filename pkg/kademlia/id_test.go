package kademlia

import "testing"

func TestID160XorSelfIsZero(t *testing.T) {
	a, err := RandomID160()
	if err != nil {
		t.Fatalf("random id: %v", err)
	}
	zero := a.Xor(a)
	var want ID160
	if zero != want {
		t.Errorf("a xor a = %v, want zero", zero)
	}
}

func TestID160LeadingZeros(t *testing.T) {
	var a, b ID160
	a[0] = 0x00
	b[0] = 0x01
	d := a.Xor(b)
	if got := d.LeadingZeros(); got != 7 {
		t.Errorf("leading zeros = %d, want 7", got)
	}
}

func TestBucketIndexSelfReference(t *testing.T) {
	a, _ := RandomID160()
	if _, err := BucketIndex[ID160](a, a); err != ErrSelfReference {
		t.Errorf("expected ErrSelfReference, got %v", err)
	}
}

func TestBucketIndexRange(t *testing.T) {
	var self, other ID160
	other[ID160Bytes-1] = 0x01 // differs only in the lowest bit

	idx, err := BucketIndex[ID160](self, other)
	if err != nil {
		t.Fatalf("bucket index: %v", err)
	}
	if idx != 0 {
		t.Errorf("bucket index = %d, want %d", idx, 0)
	}
}

func TestID160RoundTripBytes(t *testing.T) {
	a, _ := RandomID160()
	got, err := ID160FromBytes(a.Bytes())
	if err != nil {
		t.Fatalf("from bytes: %v", err)
	}
	if !got.Equal(a) {
		t.Errorf("round trip mismatch: got %s, want %s", got, a)
	}
}

func TestID160FromBytesWrongLength(t *testing.T) {
	if _, err := ID160FromBytes(make([]byte, 3)); err == nil {
		t.Error("expected error for short byte slice")
	}
}
