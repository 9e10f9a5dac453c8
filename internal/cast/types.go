package cast

// MediaStatus carries the receiver's media player state
type MediaStatus struct {
	PlayerState string `json:"player_state"` // "PLAYING", "PAUSED", "BUFFERING", "IDLE"
}

// ReceiverStatus describes the cast application session, if any
type ReceiverStatus struct {
	AppID     string `json:"app_id"`
	SessionID string `json:"session_id"`
}

// ConnectionStatus reports receiver connectivity
type ConnectionStatus struct {
	Status string `json:"status"`
}

// Connection status values
const (
	StatusConnected    = "CONNECTED"
	StatusDisconnected = "DISCONNECTED"
)

// PlayerStatePlaying is the media player state while actively rendering
const PlayerStatePlaying = "PLAYING"

// Message is one frame on the receiver's event websocket
type Message struct {
	Type     string          `json:"type"`
	Media    *MediaStatus    `json:"media,omitempty"`
	Receiver *ReceiverStatus `json:"receiver,omitempty"`
}

// Message types pushed by the receiver
const (
	msgTypeMediaStatus    = "media_status"
	msgTypeReceiverStatus = "receiver_status"
	msgTypeRegister       = "register"
)

// StatusListener receives the receiver's three raw callback streams.
// Callbacks are delivered on the client's read-loop goroutine.
type StatusListener interface {
	OnMediaStatus(status MediaStatus)
	OnReceiverStatus(status ReceiverStatus)
	OnConnectionStatus(status ConnectionStatus)
}
