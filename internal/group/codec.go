package group

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EncodeCollection serializes a collection as an indented JSON object keyed by group id.
func EncodeCollection(c Collection) ([]byte, error) {
	if c == nil {
		c = Collection{}
	}
	return json.MarshalIndent(c, "", "  ")
}

// DecodeCollection parses a JSON object keyed by group id. Ids are filled in
// from the keys. Each group must be an object; its fields are not validated.
func DecodeCollection(data []byte) (Collection, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Collection{}, nil
	}
	if data[0] != '{' {
		return nil, fmt.Errorf("expected a JSON object of groups")
	}

	var c Collection
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if c == nil {
		c = Collection{}
	}
	for id, g := range c {
		if g == nil {
			g = &Group{}
			c[id] = g
		}
		g.ID = id
	}
	return c, nil
}

// record is Group without its JSON methods.
type record Group

// recordFields are the JSON keys modelled by Group.
var recordFields = map[string]bool{
	"name": true, "tabs": true, "created": true, "lastAccessed": true,
	"origin": true, "pattern": true, "sourceDomain": true, "restored": true,
}

// zeroFields is the encoding of an empty record, used to tell whether a
// modelled field still holds its zero value.
var zeroFields = func() map[string]json.RawMessage {
	data, _ := json.Marshal(record{})
	var fields map[string]json.RawMessage
	_ = json.Unmarshal(data, &fields)
	return fields
}()

// UnmarshalJSON decodes a group object without validating its shape. Unknown
// keys and values that do not fit their field are kept in Extra. A legacy
// "auto": true marker without an origin means auto-domain.
func (g *Group) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("group must be a JSON object: %w", err)
	}

	var r record
	var extra map[string]json.RawMessage
	keep := func(k string, v json.RawMessage) {
		if extra == nil {
			extra = map[string]json.RawMessage{}
		}
		extra[k] = v
	}
	for k, v := range fields {
		if !recordFields[k] {
			keep(k, v)
			continue
		}
		one, err := json.Marshal(map[string]json.RawMessage{k: v})
		if err != nil {
			keep(k, v)
			continue
		}
		var check record
		if err := json.Unmarshal(one, &check); err != nil {
			keep(k, v)
			continue
		}
		_ = json.Unmarshal(one, &r)
	}

	if r.Origin == "" {
		var auto bool
		if raw, ok := extra["auto"]; ok && json.Unmarshal(raw, &auto) == nil && auto {
			r.Origin = OriginAutoDomain
		}
	}

	id := g.ID
	*g = Group(r)
	g.ID = id
	g.Extra = extra
	return nil
}

// MarshalJSON encodes the group and merges Extra back in. A kept value is
// written for a modelled field only while that field is still zero.
func (g *Group) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal((*record)(g))
	if err != nil || len(g.Extra) == 0 {
		return data, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	for k, v := range g.Extra {
		cur, ok := fields[k]
		if !ok || bytes.Equal(cur, zeroFields[k]) {
			fields[k] = v
		}
	}
	return json.Marshal(fields)
}

// EncodeDeleted serializes the recovery buffer.
func EncodeDeleted(buf []DeletedEntry) ([]byte, error) {
	if buf == nil {
		buf = []DeletedEntry{}
	}
	return json.Marshal(buf)
}

// DecodeDeleted parses the recovery buffer. Entries without a group are dropped.
func DecodeDeleted(data []byte) ([]DeletedEntry, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	var raw []DeletedEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := raw[:0]
	for _, e := range raw {
		if e.Group == nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
