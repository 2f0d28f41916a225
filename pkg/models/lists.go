package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Lists is the root mapping from list id to list. Insertion order is
// preserved across serialization because "first list" is the default
// selection after a load; a plain map would shuffle it.
type Lists struct {
	ids  []string
	byID map[string]*List
}

func NewLists() *Lists {
	return &Lists{byID: make(map[string]*List)}
}

func (ls *Lists) Len() int {
	return len(ls.ids)
}

func (ls *Lists) Get(id string) (*List, bool) {
	l, ok := ls.byID[id]
	return l, ok
}

// Set inserts or replaces a list. New ids are appended at the end.
func (ls *Lists) Set(id string, l *List) {
	if _, ok := ls.byID[id]; !ok {
		ls.ids = append(ls.ids, id)
	}
	ls.byID[id] = l
}

func (ls *Lists) Delete(id string) {
	if _, ok := ls.byID[id]; !ok {
		return
	}
	delete(ls.byID, id)
	for i, existing := range ls.ids {
		if existing == id {
			ls.ids = append(ls.ids[:i], ls.ids[i+1:]...)
			break
		}
	}
}

// IDs returns the list ids in insertion order.
func (ls *Lists) IDs() []string {
	return append([]string(nil), ls.ids...)
}

// First returns the first list id in insertion order.
func (ls *Lists) First() (string, bool) {
	if len(ls.ids) == 0 {
		return "", false
	}
	return ls.ids[0], true
}

// HasName reports whether any list other than excludeID carries the
// exact name.
func (ls *Lists) HasName(name, excludeID string) bool {
	for _, id := range ls.ids {
		if id != excludeID && ls.byID[id].Name == name {
			return true
		}
	}
	return false
}

func (ls *Lists) Range(fn func(id string, l *List) bool) {
	for _, id := range ls.ids {
		if !fn(id, ls.byID[id]) {
			return
		}
	}
}

func (ls *Lists) Clone() *Lists {
	out := NewLists()
	for _, id := range ls.ids {
		out.Set(id, ls.byID[id].Clone())
	}
	return out
}

// MarshalJSON writes the mapping as a JSON object in insertion order.
func (ls *Lists) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range ls.ids {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(ls.byID[id])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the mapping token by token so that key order
// survives the round trip.
func (ls *Lists) UnmarshalJSON(data []byte) error {
	ls.ids = nil
	ls.byID = make(map[string]*List)

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("lists: expected object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		id, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("lists: expected string key, got %v", keyTok)
		}
		var l List
		if err := dec.Decode(&l); err != nil {
			return fmt.Errorf("lists: decode list %q: %w", id, err)
		}
		ls.Set(id, &l)
	}

	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
