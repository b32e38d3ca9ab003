package kademlia

import "sort"

// RoutingTable is a full array of B buckets — one per possible value of
// BucketIndex — covering a node's entire view of the network. Unlike the
// classic Kademlia tree that only splits the bucket containing its own
// identifier, this keeps one fixed-size bucket per index; B is at most a
// few hundred for the identifier widths this package supports; the
// fixed array is dramatically simpler than tree splitting and costs a
// constant factor of 5-6k entries worst case.
type RoutingTable[T NodeID[T]] struct {
	self    T
	k       int
	buckets []*Bucket[T]
}

// NewRoutingTable returns a routing table for identifier self holding up
// to k contacts per bucket.
func NewRoutingTable[T NodeID[T]](self T, k int) *RoutingTable[T] {
	buckets := make([]*Bucket[T], self.BitWidth())
	for i := range buckets {
		buckets[i] = NewBucket[T](k)
	}
	return &RoutingTable[T]{self: self, k: k, buckets: buckets}
}

// Self returns the identifier this table is centered on.
func (rt *RoutingTable[T]) Self() T { return rt.self }

// K returns the per-bucket capacity.
func (rt *RoutingTable[T]) K() int { return rt.k }

// BucketFor returns the bucket that would hold id, or nil if id equals
// self (a node is never a contact of itself).
func (rt *RoutingTable[T]) BucketFor(id T) *Bucket[T] {
	idx, err := BucketIndex[T](rt.self, id)
	if err != nil {
		return nil
	}
	return rt.buckets[idx]
}

// Update records contact with a peer, routing it to the correct bucket.
// It returns an eviction candidate exactly as Bucket.Touch does, so the
// caller can drive the probe-before-evict protocol; ok is true when the
// update was applied immediately (ignored entirely for self).
func (rt *RoutingTable[T]) Update(entry PeerEntry[T]) (evictCandidate *PeerEntry[T], ok bool) {
	b := rt.BucketFor(entry.ID)
	if b == nil {
		return nil, true
	}
	return b.Touch(entry)
}

// Remove drops id from whichever bucket holds it.
func (rt *RoutingTable[T]) Remove(id T) bool {
	b := rt.BucketFor(id)
	if b == nil {
		return false
	}
	return b.Remove(id)
}

// Closest returns up to n contacts ordered by ascending XOR distance to
// target, breaking ties with NodeId.Less. It collects the contacts of
// every bucket and sorts them all on each call.
func (rt *RoutingTable[T]) Closest(target T, n int) []PeerEntry[T] {
	var candidates []PeerEntry[T]
	for _, b := range rt.buckets {
		candidates = append(candidates, b.Peers()...)
	}

	sort.Slice(candidates, func(i, j int) bool {
		di := target.Xor(candidates[i].ID)
		dj := target.Xor(candidates[j].ID)
		if di.Equal(dj) {
			return candidates[i].ID.Less(candidates[j].ID)
		}
		return di.Less(dj)
	})

	if len(candidates) > n {
		candidates = candidates[:n]
	}
	return candidates
}

// Len returns the total number of contacts held across every bucket.
func (rt *RoutingTable[T]) Len() int {
	total := 0
	for _, b := range rt.buckets {
		total += b.Len()
	}
	return total
}

// BucketFillLevels returns the contact count of every bucket, indexed by
// bucket index, for introspection (pkg/api's stats endpoint).
func (rt *RoutingTable[T]) BucketFillLevels() []int {
	out := make([]int, len(rt.buckets))
	for i, b := range rt.buckets {
		out[i] = b.Len()
	}
	return out
}

// RandomTargetInBucket returns an identifier that BucketIndex would route
// to bucket index idx from self's perspective, used by bucket refresh to
// pick a lookup target for an otherwise-idle bucket. It flips the bit at
// position (BitWidth-1-idx) of self and randomizes the bits below it.
func RandomTargetInBucket[T NodeID[T]](self T, idx int, random func() (T, error)) (T, error) {
	r, err := random()
	if err != nil {
		var zero T
		return zero, err
	}

	selfBytes := self.Bytes()
	randBytes := r.Bytes()
	width := self.BitWidth()
	flipPos := width - 1 - idx

	out := make([]byte, len(selfBytes))
	for i := range out {
		bitBase := i * 8
		for bit := 0; bit < 8; bit++ {
			pos := bitBase + bit
			if pos < flipPos {
				out[i] |= selfBytes[i] & (0x80 >> uint(bit))
			} else if pos == flipPos {
				out[i] |= (^selfBytes[i]) & (0x80 >> uint(bit))
			} else {
				out[i] |= randBytes[i] & (0x80 >> uint(bit))
			}
		}
	}

	return fromBytesLike(r, out)
}

// Parsing from bytes is implemented per concrete ID type
// (ID160FromBytes, ID256FromBytes); fromBytesLike adapts
// RandomTargetInBucket's generic byte-manipulation back into type T by
// asking a same-typed sample to parse the bytes. This keeps the helper
// in id.go-level generality without needing a FromBytes method on the
// NodeID constraint itself.
func fromBytesLike[T NodeID[T]](sample T, b []byte) (T, error) {
	switch any(sample).(type) {
	case ID160:
		id, err := ID160FromBytes(b)
		return any(id).(T), err
	case ID256:
		id, err := ID256FromBytes(b)
		return any(id).(T), err
	default:
		var zero T
		return zero, ErrProtocolMismatch
	}
}
