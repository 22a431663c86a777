package models

import (
	"bytes"
	"encoding/json"
)

// InboxEntry is one conversation in the operator inbox.
type InboxEntry struct {
	OwnerID string
	Latest  Message
}

// Inbox maps each conversation owner to their latest message while keeping
// insertion order, which is the order clients see when iterating the JSON object.
type Inbox struct {
	entries []InboxEntry
	index   map[string]int
}

// NewInbox returns an empty inbox.
func NewInbox() *Inbox {
	return &Inbox{index: make(map[string]int)}
}

// Put inserts or replaces the entry for m.OwnerID. A replaced entry keeps its position.
func (in *Inbox) Put(m Message) {
	if i, ok := in.index[m.OwnerID]; ok {
		in.entries[i].Latest = m
		return
	}
	in.index[m.OwnerID] = len(in.entries)
	in.entries = append(in.entries, InboxEntry{OwnerID: m.OwnerID, Latest: m})
}

// Get returns the latest message for owner.
func (in *Inbox) Get(owner string) (Message, bool) {
	i, ok := in.index[owner]
	if !ok {
		return Message{}, false
	}
	return in.entries[i].Latest, true
}

// Len returns the number of conversations.
func (in *Inbox) Len() int { return len(in.entries) }

// Entries returns the entries in insertion order.
func (in *Inbox) Entries() []InboxEntry {
	out := make([]InboxEntry, len(in.entries))
	copy(out, in.entries)
	return out
}

// MarshalJSON encodes the inbox as an object keyed by owner, in insertion order.
func (in *Inbox) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range in.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.OwnerID)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Latest)
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
