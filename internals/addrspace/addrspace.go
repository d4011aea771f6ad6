// Package addrspace implements the fixed, hierarchical address space that
// the protocol server exposes to clients and the sync engine publishes
// sensor values into.
//
// The tree structure (subtrees, node names, value types) is frozen at
// construction; only leaf values mutate afterwards. Two actors touch those
// values concurrently: the engine's periodic cycle and the protocol
// server's client requests. Each subtree carries its own RWMutex, and the
// engine applies its per-cycle writes as one atomic batch per subtree, so a
// client can never observe this cycle's Temperature_C next to the previous
// cycle's Temperature_F. Cross-subtree atomicity is deliberately not
// provided.
package addrspace

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Structural errors surfaced to callers of Read/Write. These never affect
// other nodes or the running engine.
var (
	// ErrNotFound is returned for a path that does not resolve to a node
	// in the fixed hierarchy.
	ErrNotFound = errors.New("address space: path not found")

	// ErrNotWritable is returned when a client writes a node whose
	// writable flag is unset.
	ErrNotWritable = errors.New("address space: node is not writable")

	// ErrStatusReadOnly is returned when a client writes a Status node.
	// Status nodes are engine-exclusive regardless of their writable flag.
	ErrStatusReadOnly = errors.New("address space: status nodes are engine-exclusive")

	// ErrValueType is returned when a written value does not match the
	// node's fixed value type.
	ErrValueType = errors.New("address space: value type mismatch")
)

// ValueType is the fixed type of a leaf node, set at construction.
type ValueType int

const (
	Float ValueType = iota
	Int32
	String
)

// String returns the value type name.
func (v ValueType) String() string {
	switch v {
	case Float:
		return "float"
	case Int32:
		return "int32"
	case String:
		return "string"
	default:
		return "unknown"
	}
}

// WriteSource records which actor last wrote a node, for observability.
type WriteSource int

const (
	// SourceEngine marks a write from the sync engine's cycle.
	SourceEngine WriteSource = iota

	// SourceClient marks a write from a protocol client.
	SourceClient
)

// String returns the write source name.
func (w WriteSource) String() string {
	if w == SourceClient {
		return "client"
	}
	return "engine"
}

// Node is one named, typed storage cell. Access goes through the owning
// Subtree's lock; Node itself holds no synchronization.
type Node struct {
	name       string
	valueType  ValueType
	writable   bool
	statusNode bool

	value      any
	lastSource WriteSource
}

// Name returns the node's leaf name.
func (n *Node) Name() string { return n.name }

// Type returns the node's fixed value type.
func (n *Node) Type() ValueType { return n.valueType }

// Writable reports whether protocol clients may write this node.
func (n *Node) Writable() bool { return n.writable }

// checkType validates a candidate value against the node's fixed type and
// normalizes integer widths for Int32 nodes.
func (n *Node) checkType(v any) (any, error) {
	switch n.valueType {
	case Float:
		if f, ok := v.(float64); ok {
			return f, nil
		}
	case Int32:
		switch i := v.(type) {
		case int32:
			return i, nil
		case int:
			return int32(i), nil
		case int64:
			return int32(i), nil
		}
	case String:
		if s, ok := v.(string); ok {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: node %q holds %s, got %T", ErrValueType, n.name, n.valueType, v)
}

// Subtree is one sensor's (or the system-info) group of leaf nodes. All
// value access for the group is serialized through its lock so the engine's
// batch writes are atomic with respect to client reads.
type Subtree struct {
	mu    sync.RWMutex
	name  string
	nodes map[string]*Node
	order []string
}

func (s *Subtree) addNode(n *Node) {
	s.nodes[n.name] = n
	s.order = append(s.order, n.name)
}

// Name returns the subtree name.
func (s *Subtree) Name() string { return s.name }

// NodeNames returns the leaf names in declaration order.
func (s *Subtree) NodeNames() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Snapshot returns a consistent copy of every leaf value in the subtree,
// taken under one read lock.
func (s *Subtree) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]any, len(s.nodes))
	for name, n := range s.nodes {
		out[name] = n.value
	}
	return out
}

// Space is the root of the address space. Subtree structure is immutable
// after Build; see the package comment for the locking discipline.
type Space struct {
	root     string
	subtrees map[string]*Subtree
	order    []string
}

// Root returns the root folder name.
func (sp *Space) Root() string { return sp.root }

// SubtreeNames returns subtree names in declaration order.
func (sp *Space) SubtreeNames() []string {
	out := make([]string, len(sp.order))
	copy(out, sp.order)
	return out
}

// Subtree returns the named subtree, or nil if it does not exist.
func (sp *Space) Subtree(name string) *Subtree {
	return sp.subtrees[name]
}

// resolve maps a slash-separated path ("SensorData/DHT11_Sensor/Status")
// onto its subtree and node by exact match.
func (sp *Space) resolve(path string) (*Subtree, *Node, error) {
	parts := strings.Split(path, "/")
	if len(parts) != 3 || parts[0] != sp.root {
		return nil, nil, fmt.Errorf("%w: %q", ErrNotFound, path)
	}
	st, ok := sp.subtrees[parts[1]]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrNotFound, path)
	}
	n, ok := st.nodes[parts[2]]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrNotFound, path)
	}
	return st, n, nil
}

// Read returns the current value at path. It blocks at most for the
// duration of one in-flight batch write on the same subtree.
func (sp *Space) Read(path string) (any, error) {
	st, n, err := sp.resolve(path)
	if err != nil {
		return nil, err
	}

	st.mu.RLock()
	defer st.mu.RUnlock()
	return n.value, nil
}

// LastWriteSource returns which actor last wrote the node at path.
func (sp *Space) LastWriteSource(path string) (WriteSource, error) {
	st, n, err := sp.resolve(path)
	if err != nil {
		return SourceEngine, err
	}

	st.mu.RLock()
	defer st.mu.RUnlock()
	return n.lastSource, nil
}

// Write applies a protocol-client write to the node at path. Status nodes
// are rejected unconditionally; other nodes require the writable flag. The
// rule for contended writable nodes is last-writer-wins by wall-clock
// order, with the source recorded for observability.
func (sp *Space) Write(path string, value any) error {
	st, n, err := sp.resolve(path)
	if err != nil {
		return err
	}
	if n.statusNode {
		return fmt.Errorf("%w: %q", ErrStatusReadOnly, path)
	}
	if !n.writable {
		return fmt.Errorf("%w: %q", ErrNotWritable, path)
	}
	v, err := n.checkType(value)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	n.value = v
	n.lastSource = SourceClient
	return nil
}

// ApplyBatch applies the engine's per-cycle writes for one subtree as a
// single atomic unit. Every value is validated before the lock is taken,
// so a bad batch changes nothing. Status nodes are writable through this
// path; client-writable nodes not named in the batch keep their
// client-written value.
func (sp *Space) ApplyBatch(subtree string, values map[string]any) error {
	st, ok := sp.subtrees[subtree]
	if !ok {
		return fmt.Errorf("%w: subtree %q", ErrNotFound, subtree)
	}

	checked := make(map[string]any, len(values))
	for name, v := range values {
		n, ok := st.nodes[name]
		if !ok {
			return fmt.Errorf("%w: %q in subtree %q", ErrNotFound, name, subtree)
		}
		cv, err := n.checkType(v)
		if err != nil {
			return err
		}
		checked[name] = cv
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	for name, v := range checked {
		n := st.nodes[name]
		n.value = v
		n.lastSource = SourceEngine
	}
	return nil
}
