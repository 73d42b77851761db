package realtime

import "encoding/json"

// Client-to-server events.
const (
	EventJoinChannel  = "joinChannel"
	EventLeaveChannel = "leaveChannel"
)

type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type ChannelPayload struct {
	ChannelID string `json:"channelId"`
}

type ConnectedPayload struct {
	PrincipalID string `json:"principalId"`
	Message     string `json:"message"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
