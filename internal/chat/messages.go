package chat

import (
	"errors"
	"net/http"
	"time"

	"github.com/roamhq/roamchat/internal/rooms"
	"github.com/roamhq/roamchat/internal/types"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage is the tagged frame clients send; exactly one event
// field is set. Payloads are validated at this boundary before any
// resolver or store call.
type ClientMessage struct {
	BaseMessage
	Join      *Join    `json:"join,omitempty"`
	Leave     *Leave   `json:"leave,omitempty"`
	Publish   *Publish `json:"publish,omitempty"`
	Read      *Read    `json:"read,omitempty"`
	Typing    *Typing  `json:"typing,omitempty"`
	AccountId int      `json:"-"`
	client    *Client
}

type Join struct {
	RoomId string `json:"room_id"`
}

type Leave struct {
	RoomId string `json:"room_id"`
}

type Publish struct {
	RoomId  string `json:"room_id"`
	Content string `json:"content"`
}

type Read struct {
	RoomId string `json:"room_id"`
}

type Typing struct {
	RoomId string `json:"room_id"`
	Active bool   `json:"active"`
}

type ServerMessage struct {
	BaseMessage
	Response     *Response      `json:"response,omitempty"`
	Message      *types.Message `json:"message,omitempty"`
	Notification *Notification  `json:"notification,omitempty"`
	SkipClient   *Client        `json:"-"`
}

type Response struct {
	ResponseCode int    `json:"response_code"`
	Error        string `json:"error,omitempty"`
	Data         any    `json:"data,omitempty"`
}

type Notification struct {
	Joined *RoomEvent   `json:"joined,omitempty"`
	Left   *RoomEvent   `json:"left,omitempty"`
	Read   *ReadEvent   `json:"read,omitempty"`
	Typing *TypingEvent `json:"typing,omitempty"`
}

type RoomEvent struct {
	RoomId    string `json:"room_id"`
	AccountId int    `json:"account_id,omitempty"`
}

type ReadEvent struct {
	RoomId    string `json:"room_id"`
	AccountId int    `json:"account_id"`
}

type TypingEvent struct {
	RoomId    string `json:"room_id"`
	AccountId int    `json:"account_id"`
	Active    bool   `json:"active"`
}

func NoErrOK(id int, data any) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusOK,
			Data:         data,
		},
	}
}

func NoErrAccepted(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusAccepted,
		},
	}
}

func ErrAuthRequired(id int) *ServerMessage {
	return newErrMessage(id, http.StatusUnauthorized, "authentication required")
}

func ErrRoomNotFound(id int) *ServerMessage {
	return newErrMessage(id, http.StatusNotFound, "room not found")
}

func ErrInternalError(id int) *ServerMessage {
	return newErrMessage(id, http.StatusInternalServerError, "internal server error")
}

func ErrServiceUnavailable(id int) *ServerMessage {
	return newErrMessage(id, http.StatusServiceUnavailable, "service unavailable")
}

func ErrInvalidMessage(id int) *ServerMessage {
	msg := newErrMessage(0, http.StatusBadRequest, "invalid message format")
	if id > 0 {
		msg.Id = id
	}
	return msg
}

func newErrMessage(id, code int, text string) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: code,
			Error:        text,
		},
	}
}

// errResponse maps a domain error to a structured error frame for the
// originating connection only. Internal detail is never leaked.
func errResponse(id int, err error) *ServerMessage {
	switch {
	case errors.Is(err, rooms.ErrInvalidRef):
		return newErrMessage(id, http.StatusBadRequest, rooms.ErrInvalidRef.Error())
	case errors.Is(err, rooms.ErrRoomNotFound):
		return ErrRoomNotFound(id)
	case errors.Is(err, rooms.ErrUnauthorized):
		return newErrMessage(id, http.StatusForbidden, rooms.ErrUnauthorized.Error())
	default:
		return ErrInternalError(id)
	}
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
