// Package cast talks to the streaming media receiver: discovery of
// receivers on the local network, a websocket client for the
// receiver's event endpoint, and the adapter that collapses receiver
// callbacks into playback signals.
package cast

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client is a websocket client for a receiver's event endpoint. The
// receiver pushes media and application status; connection status
// changes are synthesized locally on connect and disconnect.
type Client struct {
	url      string
	listener StatusListener
	logger   *zap.Logger

	conn      *websocket.Conn
	connected bool
	connMu    sync.RWMutex
	writeMu   sync.Mutex // Protects websocket writes

	media    MediaStatus
	receiver ReceiverStatus
	statusMu sync.RWMutex

	ctx       context.Context
	cancel    context.CancelFunc
	reconnect bool
}

// NewClient creates a client for the given event endpoint URL. The
// listener receives every status push for the session lifetime.
func NewClient(url string, listener StatusListener, logger *zap.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		url:       url,
		listener:  listener,
		logger:    logger.Named("cast"),
		ctx:       ctx,
		cancel:    cancel,
		reconnect: true,
	}
}

// SetListener replaces the status listener. Must be called before
// Connect; it exists so the listener can itself be built around the
// client.
func (c *Client) SetListener(listener StatusListener) {
	c.listener = listener
}

// Connect establishes the websocket session and registers for status
// events
func (c *Client) Connect() error {
	c.connMu.Lock()

	if c.connected {
		c.connMu.Unlock()
		return fmt.Errorf("already connected")
	}

	if c.listener == nil {
		c.connMu.Unlock()
		return fmt.Errorf("no status listener registered")
	}

	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		c.connMu.Unlock()
		return fmt.Errorf("failed to connect to receiver: %w", err)
	}
	c.conn = conn

	c.writeMu.Lock()
	err = conn.WriteJSON(Message{Type: msgTypeRegister})
	c.writeMu.Unlock()

	if err != nil {
		conn.Close()
		c.connMu.Unlock()
		return fmt.Errorf("failed to register for status events: %w", err)
	}

	c.resetContextLocked()
	c.connected = true
	c.reconnect = true
	c.logger.Info("Connected to receiver", zap.String("url", c.url))

	go c.receiveMessages(conn)

	c.connMu.Unlock()

	c.listener.OnConnectionStatus(ConnectionStatus{Status: StatusConnected})
	return nil
}

// Disconnect closes the websocket session without reconnecting
func (c *Client) Disconnect() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	// Cancel even when not connected so a pending reconnect loop stops
	c.reconnect = false
	c.cancel()

	if !c.connected {
		return nil
	}
	c.connected = false

	if c.conn != nil {
		c.writeMu.Lock()
		c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()

		c.conn.Close()
		c.conn = nil
	}

	c.logger.Info("Disconnected from receiver")
	return nil
}

// IsConnected returns true if the event session is up
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected
}

// IsActive reports whether the receiver has an active cast session
func (c *Client) IsActive() bool {
	if !c.IsConnected() {
		return false
	}

	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	return c.receiver.SessionID != ""
}

// IsPlaying reports whether media is actively rendering
func (c *Client) IsPlaying() bool {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	return c.media.PlayerState == PlayerStatePlaying
}

func (c *Client) resetContextLocked() {
	if c.cancel != nil {
		c.cancel()
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
}

// receiveMessages dispatches receiver pushes until the connection drops
func (c *Client) receiveMessages(conn *websocket.Conn) {
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			c.handleDisconnect(err)
			return
		}

		switch msg.Type {
		case msgTypeMediaStatus:
			if msg.Media == nil {
				continue
			}
			c.statusMu.Lock()
			c.media = *msg.Media
			c.statusMu.Unlock()
			c.listener.OnMediaStatus(*msg.Media)

		case msgTypeReceiverStatus:
			if msg.Receiver == nil {
				continue
			}
			c.statusMu.Lock()
			c.receiver = *msg.Receiver
			c.statusMu.Unlock()
			c.listener.OnReceiverStatus(*msg.Receiver)

		default:
			c.logger.Debug("Ignoring unknown message type", zap.String("type", msg.Type))
		}
	}
}

// handleDisconnect handles connection loss
func (c *Client) handleDisconnect(cause error) {
	c.connMu.Lock()
	wasConnected := c.connected
	c.connected = false
	shouldReconnect := c.reconnect
	c.connMu.Unlock()

	if !wasConnected {
		return
	}

	c.logger.Warn("Receiver connection lost", zap.Error(cause))

	// Stale media state must not keep reporting an active session
	c.statusMu.Lock()
	c.media = MediaStatus{}
	c.receiver = ReceiverStatus{}
	c.statusMu.Unlock()

	c.listener.OnConnectionStatus(ConnectionStatus{Status: StatusDisconnected})

	if shouldReconnect {
		go c.attemptReconnect()
	}
}

// attemptReconnect tries to reconnect with exponential backoff
func (c *Client) attemptReconnect() {
	backoff := time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-time.After(backoff):
		}

		c.logger.Info("Attempting to reconnect to receiver...")

		if err := c.Connect(); err != nil {
			c.logger.Error("Receiver reconnection failed", zap.Error(err))
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		c.logger.Info("Reconnected to receiver")
		return
	}
}
