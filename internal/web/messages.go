package web

import "time"

// Message types
const (
	// Client to server
	MessageTypeInput   = "input"   // a line for the terminal
	MessageTypePrompt  = "prompt"  // a line routed like shell input: command or chat
	MessageTypeResize  = "resize"  // new terminal size
	MessageTypeRestart = "restart" // replace a dead terminal

	// Server to client
	MessageTypeOutput = "output" // raw terminal output
	MessageTypeReply  = "reply"  // provider answer
	MessageTypeError  = "error"
	MessageTypeExit   = "exit" // the terminal ended
	MessageTypeSystem = "system"
)

// Message is one JSON frame on the terminal socket.
type Message struct {
	Type     string `json:"type"`
	Data     string `json:"data,omitempty"`
	Rows     uint16 `json:"rows,omitempty"`
	Cols     uint16 `json:"cols,omitempty"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	// Status notes which local model class answered
	Status string `json:"status,omitempty"`
	// Detail lists the failed provider attempts of an error reply
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}
