package cast

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"speakerremote/internal/playback"
)

// fakeStatus is a scriptable PlaybackStatus
type fakeStatus struct {
	active  bool
	playing bool
}

func (f *fakeStatus) IsActive() bool  { return f.active }
func (f *fakeStatus) IsPlaying() bool { return f.playing }

// recordingSignaler records every signal it receives
type recordingSignaler struct {
	mu      sync.Mutex
	signals []playback.State
}

func (r *recordingSignaler) Signal(state playback.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, state)
}

func (r *recordingSignaler) all() []playback.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]playback.State(nil), r.signals...)
}

func TestAdapterDerivesSignal(t *testing.T) {
	tests := []struct {
		name     string
		active   bool
		playing  bool
		expected playback.State
	}{
		{
			name:     "No session",
			active:   false,
			playing:  false,
			expected: playback.Inactive,
		},
		{
			name: "No session with stale playing flag",
			// A dead session wins over whatever the media status says
			active:   false,
			playing:  true,
			expected: playback.Inactive,
		},
		{
			name:     "Session playing",
			active:   true,
			playing:  true,
			expected: playback.Playing,
		},
		{
			name:     "Session paused",
			active:   true,
			playing:  false,
			expected: playback.Stopped,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSignaler{}
			adapter := NewAdapter(&fakeStatus{active: tt.active, playing: tt.playing}, sink, zap.NewNop())

			adapter.Resync()

			assert.Equal(t, []playback.State{tt.expected}, sink.all())
		})
	}
}

func TestAdapterEveryCallbackReDerives(t *testing.T) {
	status := &fakeStatus{active: true, playing: true}
	sink := &recordingSignaler{}
	adapter := NewAdapter(status, sink, zap.NewNop())

	adapter.OnMediaStatus(MediaStatus{PlayerState: PlayerStatePlaying})
	adapter.OnReceiverStatus(ReceiverStatus{AppID: "media", SessionID: "abc"})
	adapter.OnConnectionStatus(ConnectionStatus{Status: StatusConnected})

	assert.Equal(t, []playback.State{playback.Playing, playback.Playing, playback.Playing}, sink.all())

	status.active = false
	adapter.OnConnectionStatus(ConnectionStatus{Status: StatusDisconnected})

	signals := sink.all()
	assert.Equal(t, playback.Inactive, signals[len(signals)-1])
}
