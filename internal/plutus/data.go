// Package plutus models decoded Plutus datum/redeemer values as a closed
// sum type with safe, ok-returning navigation. Decoding from CBOR is the
// job of the chain-sync collaborator; this package only navigates the tree.
package plutus

import "math/big"

// Kind discriminates the Data variants.
type Kind int

// Data variants.
const (
	KindConstr Kind = iota
	KindInt
	KindBytes
	KindList
	KindMap
)

// Data is one node of a decoded datum/redeemer tree.
// Exactly one payload is meaningful per Kind.
type Data struct {
	Kind   Kind
	Tag    uint64    // constructor tag (KindConstr)
	Fields []Data    // constructor fields (KindConstr)
	Int    *big.Int  // integer leaf (KindInt)
	Bytes  []byte    // byte-string leaf (KindBytes)
	List   []Data    // list elements (KindList)
	Pairs  [][2]Data // map entries (KindMap)
}

// NewConstr builds a constructor node.
func NewConstr(tag uint64, fields ...Data) Data {
	return Data{Kind: KindConstr, Tag: tag, Fields: fields}
}

// NewInt builds an integer leaf.
func NewInt(v int64) Data {
	return Data{Kind: KindInt, Int: big.NewInt(v)}
}

// NewBigInt builds an integer leaf from an arbitrary-precision value.
func NewBigInt(v *big.Int) Data {
	return Data{Kind: KindInt, Int: new(big.Int).Set(v)}
}

// NewBytes builds a byte-string leaf.
func NewBytes(b []byte) Data {
	return Data{Kind: KindBytes, Bytes: b}
}

// NewList builds a list node.
func NewList(items ...Data) Data {
	return Data{Kind: KindList, List: items}
}

// AsConstr returns the constructor tag and fields, or ok=false if the
// node is not a constructor.
func (d Data) AsConstr() (uint64, []Data, bool) {
	if d.Kind != KindConstr {
		return 0, nil, false
	}
	return d.Tag, d.Fields, true
}

// FieldAt returns the i-th constructor field.
func (d Data) FieldAt(i int) (Data, bool) {
	if d.Kind != KindConstr || i < 0 || i >= len(d.Fields) {
		return Data{}, false
	}
	return d.Fields[i], true
}

// BytesAt returns the i-th constructor field as a byte string.
func (d Data) BytesAt(i int) ([]byte, bool) {
	f, ok := d.FieldAt(i)
	if !ok || f.Kind != KindBytes {
		return nil, false
	}
	return f.Bytes, true
}

// IntAt returns the i-th constructor field as an integer.
func (d Data) IntAt(i int) (*big.Int, bool) {
	f, ok := d.FieldAt(i)
	if !ok || f.Kind != KindInt || f.Int == nil {
		return nil, false
	}
	return f.Int, true
}

// UintAt returns the i-th constructor field as a non-negative int64.
func (d Data) UintAt(i int) (int64, bool) {
	v, ok := d.IntAt(i)
	if !ok || v.Sign() < 0 || !v.IsInt64() {
		return 0, false
	}
	return v.Int64(), true
}

// ConstrAt returns the i-th constructor field as a constructor node.
func (d Data) ConstrAt(i int) (Data, bool) {
	f, ok := d.FieldAt(i)
	if !ok || f.Kind != KindConstr {
		return Data{}, false
	}
	return f, true
}

// ListAt returns the i-th constructor field as a list.
func (d Data) ListAt(i int) ([]Data, bool) {
	f, ok := d.FieldAt(i)
	if !ok || f.Kind != KindList {
		return nil, false
	}
	return f.List, true
}

// Path walks nested constructor fields by index, returning the node at
// the end of the path. Any miss along the way returns ok=false.
func (d Data) Path(indices ...int) (Data, bool) {
	cur := d
	for _, i := range indices {
		next, ok := cur.FieldAt(i)
		if !ok {
			return Data{}, false
		}
		cur = next
	}
	return cur, true
}
