package kademlia

import "time"

// Config bundles the tunables that parameterize a Node. Callers
// typically derive these from pkg/config's YAML file rather than
// constructing Config literally.
type Config struct {
	// K is the replication parameter: bucket capacity and the number of
	// peers a lookup converges on.
	K int
	// Alpha is the lookup concurrency parameter: the number of
	// outstanding FIND_NODE/FIND_VALUE RPCs a lookup keeps in flight.
	Alpha int
	// RequestTimeout bounds how long the invoker waits for a response
	// before trying the next endpoint or failing the RPC.
	RequestTimeout time.Duration
	// BucketRefreshInterval is the maximum idle time before a bucket
	// with no recent activity triggers a self-directed lookup.
	BucketRefreshInterval time.Duration
	// RepublishInterval is how often a Primary-mode store entry is
	// re-pushed to the current closest set.
	RepublishInterval time.Duration
	// ReplicateInterval is how often a Primary-mode store entry is
	// re-pushed, as a Replica STORE, to the current closest set.
	ReplicateInterval time.Duration
	// ValueTTL is the lifetime assigned to a value on STORE; entries
	// older than this are dropped by the maintenance loop's expire pass.
	ValueTTL time.Duration
	// MaintenanceTick is how often the maintenance loop wakes to check
	// the above intervals; it does not need to equal any of them.
	MaintenanceTick time.Duration
	// Network scopes this node's traffic; messages carrying a different
	// Network value are dropped as a protocol mismatch.
	Network uint64
}

// DefaultConfig returns the reference tunables from the original
// Kademlia paper (k=20, alpha=3), with timeouts sized for a wide-area
// network.
func DefaultConfig() Config {
	return Config{
		K:                     20,
		Alpha:                 3,
		RequestTimeout:        5 * time.Second,
		BucketRefreshInterval: time.Hour,
		RepublishInterval:     time.Hour,
		ReplicateInterval:     time.Hour,
		ValueTTL:              24 * time.Hour,
		MaintenanceTick:       time.Minute,
		Network:               0,
	}
}
