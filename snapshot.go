package creek

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"reflect"
	"sync"
)

// snapshotMagic prefixes every serialized PreparedGraph. The trailing
// version byte is bumped on incompatible format changes.
var snapshotMagic = []byte("creek\x00\x01")

const snapshotVersion = 1

// Value-type registry: placeholder types are persisted by name and must be
// resolvable back to a reflect.Type on deserialization. AddPlaceholder
// registers its type argument automatically; programs that deserialize
// snapshots without rebuilding the pipeline in-process register the needed
// types explicitly with RegisterType.
var (
	valueTypesMu sync.RWMutex
	valueTypes   = map[string]reflect.Type{}
)

// RegisterType makes T resolvable as a placeholder type when deserializing
// snapshots.
func RegisterType[T any]() {
	registerValueType(reflect.TypeOf((*T)(nil)).Elem())
}

func registerValueType(t reflect.Type) {
	valueTypesMu.Lock()
	defer valueTypesMu.Unlock()
	valueTypes[t.String()] = t
}

func lookupValueType(name string) (reflect.Type, bool) {
	valueTypesMu.RLock()
	defer valueTypesMu.RUnlock()
	t, ok := valueTypes[name]
	return t, ok
}

func init() {
	RegisterType[string]()
	RegisterType[int]()
	RegisterType[int64]()
	RegisterType[float32]()
	RegisterType[float64]()
	RegisterType[bool]()
	RegisterType[[]string]()
	RegisterType[[]int]()
	RegisterType[[]float32]()
	RegisterType[[]float64]()
}

type snapHeader struct {
	Version      int
	Placeholders int
	Nodes        int
	Outputs      int
}

type snapPlaceholder struct {
	Name     string
	TypeName string
}

type snapEdge struct {
	Node string
	Slot int
}

type snapNode struct {
	ID              string
	Preparable      bool
	Inputs          []snapEdge
	InputTypeNames  []string
	OutputTypeNames []string

	// Transformer is the concrete transformer value: the stateless node
	// itself, or the trained (prepared) form of a preparable node. The
	// concrete type must be registered with encoding/gob; built-in
	// transformers self-register in their package init.
	Transformer any
}

func typeNames(types []reflect.Type) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return names
}

// Serialize writes the prepared graph to w: topology, placeholder and
// output type tags, and every node's transformer value including learned
// parameters. The stream round-trips through Deserialize to a graph whose
// Apply is behaviorally identical.
//
// Function-adapter transformers hold closures and cannot be serialized;
// they fail with ErrUnserializableNode naming the node.
func (pg *PreparedGraph) Serialize(w io.Writer) error {
	if _, err := w.Write(snapshotMagic); err != nil {
		return err
	}
	enc := gob.NewEncoder(w)

	g := pg.g
	var nodeIDs []NodeID
	for _, id := range g.order {
		if g.nodes[id].kind != kindPlaceholder {
			nodeIDs = append(nodeIDs, id)
		}
	}
	header := snapHeader{
		Version:      snapshotVersion,
		Placeholders: len(g.placeholders),
		Nodes:        len(nodeIDs),
		Outputs:      len(g.outputs),
	}
	if err := enc.Encode(header); err != nil {
		return err
	}
	for _, id := range g.placeholders {
		ph := snapPlaceholder{Name: string(id), TypeName: g.nodes[id].outTypes[0].String()}
		if err := enc.Encode(ph); err != nil {
			return err
		}
	}
	for _, id := range nodeIDs {
		n := g.nodes[id]
		var payload any
		if n.kind == kindPreparable {
			payload = pg.prepared[id]
		} else {
			payload = n.stateless
		}
		sn := snapNode{
			ID:              string(id),
			Preparable:      n.kind == kindPreparable,
			Inputs:          encodeEdges(n.inputs),
			InputTypeNames:  typeNames(n.inTypes),
			OutputTypeNames: typeNames(n.outTypes),
			Transformer:     payload,
		}
		if err := enc.Encode(sn); err != nil {
			return fmt.Errorf("%w: %q: %v", ErrUnserializableNode, id, err)
		}
	}
	for _, e := range g.outputs {
		if err := enc.Encode(snapEdge{Node: string(e.node), Slot: e.slot}); err != nil {
			return err
		}
	}
	return nil
}

func encodeEdges(edges []Edge) []snapEdge {
	out := make([]snapEdge, len(edges))
	for i, e := range edges {
		out[i] = snapEdge{Node: string(e.node), Slot: e.slot}
	}
	return out
}

func decodeEdges(edges []snapEdge) []Edge {
	out := make([]Edge, len(edges))
	for i, e := range edges {
		out[i] = Edge{node: NodeID(e.Node), slot: e.Slot}
	}
	return out
}

// Deserialize reconstructs a PreparedGraph from a stream written by
// Serialize. The snapshot is not trusted: topology is fully re-validated,
// and persisted type tags are compared against the signatures the
// reconstructed transformers report, so a snapshot whose learned
// parameters no longer match the code's shapes is rejected with
// ErrIncompatibleSnapshot.
func Deserialize(r io.Reader) (*PreparedGraph, error) {
	magic := make([]byte, len(snapshotMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncompatibleSnapshot, err)
	}
	if !bytes.Equal(magic, snapshotMagic) {
		return nil, fmt.Errorf("%w: bad magic", ErrIncompatibleSnapshot)
	}
	dec := gob.NewDecoder(r)

	var header snapHeader
	if err := dec.Decode(&header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncompatibleSnapshot, err)
	}
	if header.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: snapshot version %d, supported %d",
			ErrIncompatibleSnapshot, header.Version, snapshotVersion)
	}

	g := &Graph{nodes: map[NodeID]*node{}}
	prepared := make(map[NodeID]PreparedTransformer)

	for i := 0; i < header.Placeholders; i++ {
		var ph snapPlaceholder
		if err := dec.Decode(&ph); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIncompatibleSnapshot, err)
		}
		typ, ok := lookupValueType(ph.TypeName)
		if !ok {
			return nil, fmt.Errorf("%w: placeholder %q has type %q; register it with creek.RegisterType",
				ErrUnregisteredValueType, ph.Name, ph.TypeName)
		}
		id := NodeID(ph.Name)
		g.nodes[id] = &node{
			id:        id,
			kind:      kindPlaceholder,
			outTypes:  []reflect.Type{typ},
			declIndex: len(g.order),
		}
		g.order = append(g.order, id)
		g.placeholders = append(g.placeholders, id)
	}

	for i := 0; i < header.Nodes; i++ {
		var sn snapNode
		if err := dec.Decode(&sn); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIncompatibleSnapshot, err)
		}
		id := NodeID(sn.ID)
		if _, exists := g.nodes[id]; exists {
			return nil, fmt.Errorf("%w: duplicate node %q", ErrIncompatibleSnapshot, id)
		}

		n := &node{
			id:        id,
			inputs:    decodeEdges(sn.Inputs),
			declIndex: len(g.order),
		}
		if sn.Preparable {
			pt, ok := sn.Transformer.(PreparedTransformer)
			if !ok {
				return nil, fmt.Errorf("%w: node %q payload %T is not a prepared transformer",
					ErrIncompatibleSnapshot, id, sn.Transformer)
			}
			n.kind = kindPreparable
			n.inTypes = pt.InputTypes()
			n.outTypes = pt.OutputTypes()
			prepared[id] = pt
		} else {
			st, ok := sn.Transformer.(StatelessTransformer)
			if !ok {
				return nil, fmt.Errorf("%w: node %q payload %T is not a stateless transformer",
					ErrIncompatibleSnapshot, id, sn.Transformer)
			}
			n.kind = kindStateless
			n.stateless = st
			n.inTypes = st.InputTypes()
			n.outTypes = st.OutputTypes()
		}

		// Shape check: the signature the reconstructed transformer reports
		// must match what was persisted with the topology.
		if !stringsEqual(typeNames(n.inTypes), sn.InputTypeNames) ||
			!stringsEqual(typeNames(n.outTypes), sn.OutputTypeNames) {
			return nil, fmt.Errorf("%w: node %q signature drifted (persisted in=%v out=%v, reconstructed in=%v out=%v)",
				ErrIncompatibleSnapshot, id, sn.InputTypeNames, sn.OutputTypeNames,
				typeNames(n.inTypes), typeNames(n.outTypes))
		}

		g.nodes[id] = n
		g.order = append(g.order, id)
	}

	for i := 0; i < header.Outputs; i++ {
		var e snapEdge
		if err := dec.Decode(&e); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIncompatibleSnapshot, err)
		}
		n, ok := g.nodes[NodeID(e.Node)]
		if !ok || e.Slot < 0 || e.Slot >= len(n.outTypes) {
			return nil, fmt.Errorf("%w: output %d references %q slot %d", ErrIncompatibleSnapshot, i, e.Node, e.Slot)
		}
		g.outputs = append(g.outputs, Edge{node: NodeID(e.Node), slot: e.Slot})
	}

	if err := g.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncompatibleSnapshot, err)
	}
	return &PreparedGraph{g: g, prepared: prepared}, nil
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
