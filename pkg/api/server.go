// Package api serves an HTTP introspection and operator surface over a
// running node: stats, routing table contents, and per-key store
// reads/writes routed through the lookup engine. Grounded on the
// teacher's pkg/api/server.go route/handler shape, stripped of the NAT
// relay and peer-authentication endpoints that shape had (both out of
// scope here) and retargeted to the DHT's own C17 route set.
package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shadowmesh/kademlia/pkg/kademlia"
)

// Server exposes a Node's state over HTTP for operators and monitoring.
type Server[T kademlia.NodeID[T]] struct {
	node *kademlia.Node[T]
	http *http.Server
}

// NewServer builds (but does not start) an admin server for node,
// listening on addr.
func NewServer[T kademlia.NodeID[T]](node *kademlia.Node[T], addr string) *Server[T] {
	s := &Server[T]{node: node}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/self", s.handleSelf)
	mux.HandleFunc("GET /v1/stats", s.handleStats)
	mux.HandleFunc("GET /v1/peers", s.handlePeers)
	mux.HandleFunc("GET /v1/store/{key}", s.handleStoreGet)
	mux.HandleFunc("PUT /v1/store/{key}", s.handleStorePut)
	mux.HandleFunc("GET /v1/lookup/{key}", s.handleLookup)
	s.http = &http.Server{Addr: addr, Handler: mux}
	return s
}

// ListenAndServe blocks serving the admin API until the server is
// closed or an error occurs.
func (s *Server[T]) ListenAndServe() error {
	return s.http.ListenAndServe()
}

// Close shuts the admin server down.
func (s *Server[T]) Close() error {
	return s.http.Close()
}

type selfResponse struct {
	ID             string   `json:"id"`
	LocalEndpoints []string `json:"localEndpoints"`
}

func (s *Server[T]) handleSelf(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, selfResponse{ID: s.node.ID().String()})
}

type statsResponse struct {
	Self        string `json:"self"`
	PeerCount   int    `json:"peerCount"`
	BucketCount int    `json:"bucketCount"`
	StoreSize   int    `json:"storeSize"`
}

// handleStats reports bucket fill levels (summarized as total peer and
// non-empty-bucket counts) and store size, the aggregate health view an
// operator checks first.
func (s *Server[T]) handleStats(w http.ResponseWriter, r *http.Request) {
	rt := s.node.RoutingTable()
	nonEmpty := 0
	for _, peers := range rt.BucketFillLevels() {
		if peers > 0 {
			nonEmpty++
		}
	}
	writeJSON(w, statsResponse{
		Self:        rt.Self().String(),
		PeerCount:   rt.Len(),
		BucketCount: nonEmpty,
		StoreSize:   len(s.node.Store().Keys()),
	})
}

type peerView struct {
	ID        string    `json:"id"`
	Endpoints []string  `json:"endpoints"`
	LastSeen  time.Time `json:"lastSeen"`
}

type peersResponse struct {
	Self  string     `json:"self"`
	Count int        `json:"count"`
	Peers []peerView `json:"peers"`
}

// handlePeers returns a full routing table snapshot, equivalent to
// selecting every contact closest to this node's own id across the
// whole table.
func (s *Server[T]) handlePeers(w http.ResponseWriter, r *http.Request) {
	rt := s.node.RoutingTable()
	peers := rt.Closest(rt.Self(), rt.Len())
	views := make([]peerView, len(peers))
	for i, p := range peers {
		uris := make([]string, len(p.Endpoints))
		for j, ep := range p.Endpoints {
			uris[j] = ep.URI()
		}
		views[i] = peerView{ID: p.ID.String(), Endpoints: uris, LastSeen: p.LastSeen}
	}
	writeJSON(w, peersResponse{Self: rt.Self().String(), Count: len(views), Peers: views})
}

type valueResponse struct {
	Found   bool   `json:"found"`
	Data    []byte `json:"data,omitempty"`
	Version uint64 `json:"version,omitempty"`
}

// handleStoreGet answers from the local store only — a FIND_VALUE
// against this node's own holdings, never issuing RPCs to peers. Use
// /v1/lookup/{key} to run the full iterative lookup.
func (s *Server[T]) handleStoreGet(w http.ResponseWriter, r *http.Request) {
	key, err := parseKey[T](r.PathValue("key"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	entry, ok := s.node.Store().Get(key)
	if !ok {
		writeJSON(w, valueResponse{Found: false})
		return
	}
	writeJSON(w, valueResponse{Found: true, Data: entry.Data, Version: entry.Version})
}

type storePutRequest struct {
	Data    []byte `json:"data"`
	Version uint64 `json:"version"`
}

// handleStorePut issues a primary STORE for the given value via the
// lookup engine: it runs FIND_NODE for key and pushes the value to the
// resulting closest set, exactly as Node.StoreValue does for any other
// caller.
func (s *Server[T]) handleStorePut(w http.ResponseWriter, r *http.Request) {
	key, err := parseKey[T](r.PathValue("key"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req storePutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeRequestTimeout)
	defer cancel()
	if err := s.node.StoreValue(ctx, key, req.Data, req.Version); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, valueResponse{Found: true, Data: req.Data, Version: req.Version})
}

type lookupResponse struct {
	Found bool       `json:"found"`
	Data  []byte     `json:"data,omitempty"`
	Peers []peerView `json:"peers,omitempty"`
}

// handleLookup runs the iterative lookup engine: FIND_VALUE when
// ?mode=value is given (short-circuiting on the first holder found),
// otherwise FIND_NODE returning the k closest live peers discovered.
func (s *Server[T]) handleLookup(w http.ResponseWriter, r *http.Request) {
	key, err := parseKey[T](r.PathValue("key"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeRequestTimeout)
	defer cancel()

	if r.URL.Query().Get("mode") == "value" {
		data, found, err := s.node.FindValue(ctx, key)
		if err != nil && err != kademlia.ErrNotFound {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, lookupResponse{Found: found, Data: data})
		return
	}

	peers, err := s.node.FindNode(ctx, key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	views := make([]peerView, len(peers))
	for i, p := range peers {
		uris := make([]string, len(p.Endpoints))
		for j, ep := range p.Endpoints {
			uris[j] = ep.URI()
		}
		views[i] = peerView{ID: p.ID.String(), Endpoints: uris, LastSeen: p.LastSeen}
	}
	writeJSON(w, lookupResponse{Found: len(views) > 0, Peers: views})
}

const storeRequestTimeout = 10 * time.Second

func parseKey[T kademlia.NodeID[T]](hexKey string) (T, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		var zero T
		return zero, err
	}
	return kademlia.ParseID[T](raw)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
