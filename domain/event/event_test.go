package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncode_WrapsPayloadInEnvelope(t *testing.T) {
	req := require.New(t)

	raw, err := Encode(FriendStatusChangeEvent{Identity: "alice", IsOnline: false})
	req.NoError(err)

	var env Envelope
	req.NoError(json.Unmarshal(raw, &env))
	req.Equal(FriendStatusChange, env.Type)
	req.JSONEq(`{"identity":"alice","isOnline":false}`, string(env.Payload))
}

func TestEncode_EmptyPing(t *testing.T) {
	req := require.New(t)

	raw, err := Encode(PingEvent{})
	req.NoError(err)
	req.JSONEq(`{"type":"ping","payload":{}}`, string(raw))
}
