package domain

import (
	"sort"
	"strconv"
	"strings"
)

// Node is the decoded form of whatever the upstream returns: a JSON document,
// or an XML element tree converted to the same shape (attributes under the
// reserved "@attributes" key, element text under "Text"). Different SHR
// deployments place the same data at different paths, so nothing here assumes
// a schema; every accessor is nil-safe and degrades to a zero value.
type Node struct {
	kind NodeKind
	b    bool
	num  float64
	str  string
	arr  []*Node
	obj  map[string]*Node
}

type NodeKind int

const (
	KindNull NodeKind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (n *Node) Kind() NodeKind {
	if n == nil {
		return KindNull
	}
	return n.kind
}

// ---- constructors ----

func StringNode(s string) *Node  { return &Node{kind: KindString, str: s} }
func NumberNode(f float64) *Node { return &Node{kind: KindNumber, num: f} }
func BoolNode(b bool) *Node      { return &Node{kind: KindBool, b: b} }

func ObjectNode() *Node { return &Node{kind: KindObject, obj: map[string]*Node{}} }

func ArrayNode(items ...*Node) *Node {
	return &Node{kind: KindArray, arr: items}
}

// Set assigns an object member. No-op on non-objects.
func (n *Node) Set(key string, v *Node) {
	if n == nil || n.kind != KindObject {
		return
	}
	n.obj[key] = v
}

// Append adds an element to an array node. No-op on non-arrays.
func (n *Node) Append(v *Node) {
	if n == nil || n.kind != KindArray {
		return
	}
	n.arr = append(n.arr, v)
}

// FromAny converts a json.Unmarshal-style value (map[string]any, []any,
// string, float64, bool, nil) into a Node. Unrecognized types become null.
func FromAny(v any) *Node {
	switch t := v.(type) {
	case nil:
		return &Node{kind: KindNull}
	case bool:
		return BoolNode(t)
	case float64:
		return NumberNode(t)
	case int:
		return NumberNode(float64(t))
	case string:
		return StringNode(t)
	case []any:
		out := ArrayNode()
		for _, it := range t {
			out.Append(FromAny(it))
		}
		return out
	case map[string]any:
		out := ObjectNode()
		for k, val := range t {
			out.Set(k, FromAny(val))
		}
		return out
	default:
		return &Node{kind: KindNull}
	}
}

// ---- navigation ----

// Get returns an object member, or nil when absent or not an object.
func (n *Node) Get(key string) *Node {
	if n == nil || n.kind != KindObject {
		return nil
	}
	return n.obj[key]
}

// Lookup walks a dotted path ("RoomTypes.RoomType") through nested objects.
func (n *Node) Lookup(path string) *Node {
	cur := n
	for _, part := range strings.Split(path, ".") {
		cur = cur.Get(part)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Attr returns an attribute value placed under "@attributes" by the XML
// decoder.
func (n *Node) Attr(name string) *Node {
	return n.Get("@attributes").Get(name)
}

// Items returns array elements. A single object is wrapped into a
// one-element slice: the upstream collapses single-record collections into a
// bare object, both in JSON and in converted XML.
func (n *Node) Items() []*Node {
	switch n.Kind() {
	case KindArray:
		return n.arr
	case KindNull:
		return nil
	default:
		return []*Node{n}
	}
}

// Keys returns object member names in sorted order, for deterministic
// traversal.
func (n *Node) Keys() []string {
	if n == nil || n.kind != KindObject {
		return nil
	}
	out := make([]string, 0, len(n.obj))
	for k := range n.obj {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (n *Node) Len() int {
	switch n.Kind() {
	case KindArray:
		return len(n.arr)
	case KindObject:
		return len(n.obj)
	default:
		return 0
	}
}

// IsEmpty reports whether the node carries no usable value.
func (n *Node) IsEmpty() bool {
	switch n.Kind() {
	case KindNull:
		return true
	case KindString:
		return n.str == ""
	case KindArray:
		return len(n.arr) == 0
	case KindObject:
		return len(n.obj) == 0
	default:
		return false
	}
}

// ---- scalar coercion ----

// Str returns the string value, or "" for anything that is not a string.
func (n *Node) Str() string {
	if n == nil || n.kind != KindString {
		return ""
	}
	return n.str
}

// Text resolves human-readable content: a plain string node, or the "Text"
// member the XML decoder leaves on mixed elements.
func (n *Node) Text() string {
	if n.Kind() == KindString {
		return n.str
	}
	return n.Get("Text").Str()
}

// Float coerces numbers and numeric strings (including "1 234,56" style
// decimal commas seen in some deployments).
func (n *Node) Float() (float64, bool) {
	switch n.Kind() {
	case KindNumber:
		return n.num, true
	case KindString:
		s := strings.TrimSpace(strings.ReplaceAll(n.str, ",", "."))
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Int coerces like Float, returning def when no number can be resolved.
func (n *Node) Int(def int) int {
	if f, ok := n.Float(); ok {
		return int(f)
	}
	return def
}
