package chat

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roamhq/roamchat/internal/rooms"
)

func TestErrResponse(t *testing.T) {
	tcases := []struct {
		name     string
		err      error
		wantCode int
	}{
		{
			name:     "invalid reference",
			err:      rooms.ErrInvalidRef,
			wantCode: 400,
		},
		{
			name:     "wrapped invalid reference",
			err:      fmt.Errorf("parse: %w", rooms.ErrInvalidRef),
			wantCode: 400,
		},
		{
			name:     "room not found",
			err:      rooms.ErrRoomNotFound,
			wantCode: 404,
		},
		{
			name:     "unauthorized",
			err:      rooms.ErrUnauthorized,
			wantCode: 403,
		},
		{
			name:     "anything else",
			err:      errors.New("connection reset"),
			wantCode: 500,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			frame := errResponse(7, tc.err)
			assert.Equal(t, 7, frame.Id)
			if assert.NotNil(t, frame.Response) {
				assert.Equal(t, tc.wantCode, frame.Response.ResponseCode)
			}
		})
	}
}

func TestErrResponseNeverLeaksDetail(t *testing.T) {
	frame := errResponse(1, errors.New("pq: deadlock detected on rooms"))
	assert.NotContains(t, frame.Response.Error, "pq:")
	assert.Equal(t, "internal server error", frame.Response.Error)
}

func TestErrInvalidMessageId(t *testing.T) {
	assert.Equal(t, 7, ErrInvalidMessage(7).Id)
	assert.Equal(t, 0, ErrInvalidMessage(-1).Id, "unparseable frames have no id to echo")
}
