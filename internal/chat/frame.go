package chat

import (
	"encoding/json"

	"github.com/hopeforeverybody/chat-service/internal/models"
)

// FrameKind is the closed set of inbound frame variants. Classification
// happens once, in DecodeFrame; everything downstream switches exhaustively.
type FrameKind int

const (
	FrameMalformed FrameKind = iota
	FrameChatMessage
	FrameEndChat
)

// FileUpload is one raw attachment item as it arrives on the wire: declared
// metadata plus a base64 payload, optionally with a data-URL prefix.
type FileUpload struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
	Data string `json:"data"`
}

// Frame is a decoded inbound event.
type Frame struct {
	Kind      FrameKind
	Recipient string
	Message   string
	Files     []FileUpload
	ChatID    uint
	// ReceiverActiveFor signals "I am actively viewing messages from this
	// sender". The wire key keeps the historical spelling.
	ReceiverActiveFor string
	Type              string
}

type wireFrame struct {
	Type              string       `json:"type"`
	Recipient         string       `json:"recipient"`
	Message           string       `json:"message"`
	Files             []FileUpload `json:"files"`
	ChatID            uint         `json:"chat_id"`
	ReceiverActiveFor string       `json:"reciever_active_for"`
}

const (
	frameTypeEndChat = "END_CHAT"
	frameTypeMessage = "MESSAGE"
)

// DecodeFrame never fails: structurally invalid input classifies as
// FrameMalformed and the connection stays open.
func DecodeFrame(data []byte) Frame {
	var w wireFrame
	if err := json.Unmarshal(data, &w); err != nil {
		return Frame{Kind: FrameMalformed}
	}
	if w.Type == frameTypeEndChat {
		return Frame{Kind: FrameEndChat, ChatID: w.ChatID}
	}
	return Frame{
		Kind:              FrameChatMessage,
		Recipient:         w.Recipient,
		Message:           w.Message,
		Files:             w.Files,
		ChatID:            w.ChatID,
		ReceiverActiveFor: w.ReceiverActiveFor,
		Type:              w.Type,
	}
}

// DeliveredMessage is the payload pushed to a connected recipient.
type DeliveredMessage struct {
	Sender      string              `json:"sender"`
	Receiver    string              `json:"receiver"`
	Message     string              `json:"message"`
	Attachments []models.Attachment `json:"attachments"`
	Type        string              `json:"type"`
}

// ChatEndedEvent is an ephemeral UI signal: direct push only, no offline
// fallback.
type ChatEndedEvent struct {
	Event  string `json:"event"`
	ChatID uint   `json:"chat_id"`
}

const eventChatEnded = "chat_ended"
