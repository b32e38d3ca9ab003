package kademlia

import "time"

// PeerEntry is a contact known to a routing table: an identifier paired
// with the ordered set of endpoints it has claimed or been observed at,
// and the time it was last heard from (a response received, not merely a
// request sent). Endpoints are ordered by preference: the
// most-recently-successful endpoint first, then insertion order — the
// order the invoker tries them in when one fails.
type PeerEntry[T NodeID[T]] struct {
	ID        T
	Endpoints []Endpoint
	LastSeen  time.Time
}

// mergeEndpoint folds ep into an ordered endpoint list, moving it to the
// front if already present (it is now the most-recently-confirmed) or
// prepending it if new, per PeerEntry's preference ordering. A zero
// Endpoint is never added.
func mergeEndpoint(existing []Endpoint, ep Endpoint) []Endpoint {
	if ep == (Endpoint{}) {
		return existing
	}
	out := make([]Endpoint, 0, len(existing)+1)
	out = append(out, ep)
	for _, e := range existing {
		if e != ep {
			out = append(out, e)
		}
	}
	return out
}

// mergeEndpoints folds each of eps into existing in order, preserving
// eps' relative order at the front (most-preferred first) followed by
// whatever of existing wasn't just reasserted.
func mergeEndpoints(existing []Endpoint, eps []Endpoint) []Endpoint {
	out := existing
	for i := len(eps) - 1; i >= 0; i-- {
		out = mergeEndpoint(out, eps[i])
	}
	return out
}
