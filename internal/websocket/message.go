package websocket

import "github.com/vidshare/vidshare_server/internal/upload"

type MessageType string

const (
	MessageTypeConnected  MessageType = "connected"
	MessageTypeSubmission MessageType = "submission"
	MessageTypePing       MessageType = "ping"
	MessageTypePong       MessageType = "pong"
	MessageTypeError      MessageType = "error"
)

type IncomingMessage struct {
	Type MessageType `json:"type"`
}

type OutgoingMessage struct {
	Type   MessageType `json:"type"`
	UserID string      `json:"userId,omitempty"`
	Error  string      `json:"error,omitempty"`
}

type SubmissionMessage struct {
	Type       MessageType             `json:"type"`
	Submission upload.SubmissionUpdate `json:"submission"`
}

type delivery struct {
	userID  string
	message interface{}
}
