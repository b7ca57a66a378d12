package notification

import (
	"encoding/json"

	chat "jobboard/internal/pkg/chat/application/domain"
)

// Server to client event names.
const (
	EventNewMessage = "newMessage"
	EventChatError  = "chatError"
	EventConnected  = "connected"
	EventJoined     = "joined"
)

// Frame is the envelope of every socket message in both directions.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type NewMessageData struct {
	ChatID  string       `json:"chatId"`
	Message chat.Message `json:"message"`
}

type ChatErrorData struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Encode marshals a frame for event carrying data.
func Encode(event string, data any) ([]byte, error) {
	return json.Marshal(Frame{Event: event, Data: data})
}

func EncodeNewMessage(ev chat.NewMessageEvent) ([]byte, error) {
	return Encode(EventNewMessage, NewMessageData{ChatID: ev.ConversationID, Message: ev.Message})
}

func EncodeChatError(message, code string) ([]byte, error) {
	return Encode(EventChatError, ChatErrorData{Message: message, Code: code})
}
