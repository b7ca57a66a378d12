package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Client to server event names.
const (
	eventJoin        = "join"
	eventStartChat   = "startChat"
	eventSendMessage = "sendMessage"
)

// Error codes carried in chatError frames.
const (
	codeUnauthorized = "unauthorized"
	codeNotFound     = "not_found"
	codeInternal     = "internal_error"
	codeBadRequest   = "bad_request"
	codeRateLimited  = "rate_limited"
)

// Messages shown to clients; the first two match what existing clients expect.
const (
	msgUnauthorized = "Only HR/owner can start chat with regular users"
	msgNotFound     = "Chat not found"
	msgInternal     = "Failed to process chat request"
	msgRateLimited  = "Too many events, slow down"
)

type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type joinRequest struct {
	UserID string `json:"userId" validate:"required"`
}

// UnmarshalJSON accepts both {"userId": "..."} and a bare "..." string.
func (r *joinRequest) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		r.UserID = s
		return nil
	}
	type plain joinRequest
	return json.Unmarshal(b, (*plain)(r))
}

type startChatRequest struct {
	SenderID   string `json:"senderId" validate:"required"`
	ReceiverID string `json:"receiverId" validate:"required"`
	Message    string `json:"message" validate:"required"`
}

type sendMessageRequest struct {
	ChatID   string `json:"chatId" validate:"required"`
	SenderID string `json:"senderId" validate:"required"`
	Message  string `json:"message" validate:"required"`
}

type connectedData struct {
	ConnectionID string `json:"connectionId"`
}

type joinedData struct {
	UserID string `json:"userId"`
}

var errBadPayload = errors.New("invalid payload")

// frameValidate checks inbound event payloads. Field errors are reported
// with their JSON names.
var frameValidate = newFrameValidator()

func newFrameValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeEvent unmarshals data into dst and validates it.
func decodeEvent(data json.RawMessage, dst any) error {
	if len(data) == 0 {
		return errBadPayload
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return errBadPayload
	}
	if err := frameValidate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%s is %s", verrs[0].Field(), verrs[0].Tag())
		}
		return errBadPayload
	}
	return nil
}
