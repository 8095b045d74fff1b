// Package events contains the WebSocket message contracts.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	MessageTypeConnection    MessageType = "connection"
	MessageTypeDisplayUpdate MessageType = "display:update"
	MessageTypeError         MessageType = "error"
)

// Message is the envelope of every WebSocket message.
type Message struct {
	Type      MessageType `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// NewMessage stamps a message with the current time.
func NewMessage(t MessageType, data interface{}) Message {
	return Message{Type: t, Data: data, Timestamp: time.Now().UTC()}
}
