// Package realtime pushes JSON frames to connected WebSocket clients. A Hub
// keeps the local connections; a Broker fans frames out between server
// instances.
package realtime

import "encoding/json"

// Event types sent to clients.
const (
	EventMessage        = "message"
	EventMessageEdited  = "message.edited"
	EventMessageDeleted = "message.deleted"
	EventRead           = "read"
	EventTyping         = "typing"
	EventNotification   = "notification"
)

// Event is the frame written to the socket.
type Event struct {
	Type    string `json:"type"`
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// Frame is what a client may send. Only typing and read are understood.
type Frame struct {
	Type string `json:"type"`
	To   string `json:"to"`
}

// Envelope travels through the Broker. An empty UserIDs list reaches every
// connected client.
type Envelope struct {
	UserIDs []string        `json:"userIds,omitempty"`
	Data    json.RawMessage `json:"data"`
}
