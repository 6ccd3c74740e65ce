package dto

import (
	"bytes"
	"encoding/json"
)

// ProductGroups maps a product type to its products, remembering the order in
// which types were first seen. It marshals to a JSON object with keys in that order.
// The zero value is an empty, ready to use set of groups.
type ProductGroups struct {
	keys   []string
	groups map[string][]ProductResponse
}

// Add appends p to the group named productType, creating the group if needed.
func (g *ProductGroups) Add(productType string, p ...ProductResponse) {
	if g.groups == nil {
		g.groups = make(map[string][]ProductResponse)
	}
	if _, ok := g.groups[productType]; !ok {
		g.keys = append(g.keys, productType)
		g.groups[productType] = []ProductResponse{}
	}
	g.groups[productType] = append(g.groups[productType], p...)
}

// Types returns the group keys in first-seen order.
func (g ProductGroups) Types() []string {
	out := make([]string, len(g.keys))
	copy(out, g.keys)
	return out
}

// Get returns the products of one group.
func (g ProductGroups) Get(productType string) ([]ProductResponse, bool) {
	ps, ok := g.groups[productType]
	return ps, ok
}

// Len is the number of groups.
func (g ProductGroups) Len() int {
	return len(g.keys)
}

func (g ProductGroups) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range g.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(g.groups[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
