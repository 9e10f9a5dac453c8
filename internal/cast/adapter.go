package cast

import (
	"go.uber.org/zap"

	"speakerremote/internal/playback"
)

// PlaybackStatus is the receiver-side state the adapter derives
// signals from. *Client implements it.
type PlaybackStatus interface {
	IsActive() bool
	IsPlaying() bool
}

// Signaler consumes derived playback states. *playback.Supervisor
// implements it.
type Signaler interface {
	Signal(state playback.State)
}

// Adapter collapses the receiver's three raw callback streams into the
// single three-way playback signal the supervisor consumes. Every
// callback re-derives the full signal; that is cheap because Signal is
// idempotent for an unchanged state.
type Adapter struct {
	status PlaybackStatus
	sink   Signaler
	logger *zap.Logger
}

// NewAdapter creates an adapter deriving signals from status into sink
func NewAdapter(status PlaybackStatus, sink Signaler, logger *zap.Logger) *Adapter {
	return &Adapter{
		status: status,
		sink:   sink,
		logger: logger.Named("adapter"),
	}
}

// OnMediaStatus implements StatusListener
func (a *Adapter) OnMediaStatus(status MediaStatus) {
	a.logger.Debug("Media status changed", zap.String("player_state", status.PlayerState))
	a.Resync()
}

// OnReceiverStatus implements StatusListener
func (a *Adapter) OnReceiverStatus(status ReceiverStatus) {
	a.logger.Debug("Receiver status changed",
		zap.String("app_id", status.AppID),
		zap.String("session_id", status.SessionID))
	a.Resync()
}

// OnConnectionStatus implements StatusListener
func (a *Adapter) OnConnectionStatus(status ConnectionStatus) {
	a.logger.Debug("Connection status changed", zap.String("status", status.Status))
	a.Resync()
}

// Resync re-derives the playback signal from the receiver's current
// state and forwards it. Also called once at startup so speakers
// converge on the pre-existing receiver state.
func (a *Adapter) Resync() {
	switch {
	case !a.status.IsActive():
		a.sink.Signal(playback.Inactive)
	case a.status.IsPlaying():
		a.sink.Signal(playback.Playing)
	default:
		a.sink.Signal(playback.Stopped)
	}
}
