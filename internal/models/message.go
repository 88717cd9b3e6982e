package models

import "encoding/json"

// MessageType identifies a broadcast control message
type MessageType string

const (
	MessageUpdate     MessageType = "update"
	MessageInvalidate MessageType = "invalidate"
	MessageClear      MessageType = "clear"
)

// MessageData carries the payload of an update message
type MessageData struct {
	Data json.RawMessage `json:"data"`
	TTL  int64           `json:"ttl"` // ms
}

// Message is exchanged between guard instances over the broadcast transport
type Message struct {
	Type MessageType  `json:"type"`
	Key  string       `json:"key,omitempty"`
	Data *MessageData `json:"data,omitempty"`
	// Version is the sender's cache version; receivers drop updates written under another one
	Version   string `json:"version,omitempty"`
	Timestamp int64  `json:"timestamp"` // epoch ms
	Seq       uint64 `json:"seq"`
	Origin    string `json:"origin"`
}

// Stamp returns the logical clock value of the message
func (m *Message) Stamp() Stamp {
	return Stamp{Seq: m.Seq, Origin: m.Origin}
}

// ChangeEvent is delivered to cache listeners after a change is applied
type ChangeEvent struct {
	Type   MessageType `json:"type"`
	Key    string      `json:"key,omitempty"`
	Remote bool        `json:"remote"`
}
