package domain

import (
	"chat-pulse/errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report payload field names as the client sent them.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks the struct tags of an inbound command and wraps any
// violation into errors.ErrInvalidRequest.
func Validate(cmd any) error {
	err := validate.Struct(cmd)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		if fe.Tag() == "required" {
			return fmt.Errorf("%w: %s is required", errors.ErrInvalidRequest, fe.Field())
		}
		return fmt.Errorf("%w: %s is invalid", errors.ErrInvalidRequest, fe.Field())
	}
	return fmt.Errorf("%w: %v", errors.ErrInvalidRequest, err)
}

type AuthCommand struct {
	Identity UserID `json:"identity"`
	Token    string `json:"token"`
}

type JoinRoomCommand struct {
	RoomID RoomID `json:"roomId" validate:"required"`
}

type LeaveRoomCommand struct {
	RoomID RoomID `json:"roomId" validate:"required"`
}

type SendMessageCommand struct {
	RoomID  RoomID `json:"roomId" validate:"required"`
	Content string `json:"content" validate:"required"`
}

type TypingCommand struct {
	RoomID   RoomID `json:"roomId" validate:"required"`
	IsTyping bool   `json:"isTyping"`
}

type JoinSessionCommand struct {
	SessionID SessionID `json:"sessionId" validate:"required"`
}

type LeaveSessionCommand struct {
	SessionID SessionID `json:"sessionId" validate:"required"`
}

type SessionMessageCommand struct {
	SessionID SessionID `json:"sessionId" validate:"required"`
	Content   string    `json:"content" validate:"required"`
}

type MediaSharedCommand struct {
	SessionID SessionID `json:"sessionId" validate:"required"`
	MediaURL  string    `json:"mediaUrl" validate:"required,url"`
	MediaType string    `json:"mediaType" validate:"required"`
}

type MarkReadCommand struct {
	RoomID RoomID `json:"roomId" validate:"required"`
}
