package cast

import (
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// DefaultDiscoveryAddr is the broadcast address receivers listen on
// for discovery probes.
const DefaultDiscoveryAddr = "255.255.255.255:8009"

// Receiver is one discovered media receiver
type Receiver struct {
	Name string
	Host string
	Port int
}

// EventURL returns the receiver's websocket event endpoint
func (r Receiver) EventURL() string {
	return fmt.Sprintf("ws://%s/events", net.JoinHostPort(r.Host, strconv.Itoa(r.Port)))
}

type discoveryProbe struct {
	Type string `json:"type"`
}

type discoveryReply struct {
	Type string `json:"type"`
	Name string `json:"name"`
	Port int    `json:"port"`
}

// Discover broadcasts a probe to addr and collects receiver
// announcements until the timeout elapses. An empty result is not an
// error; the caller polls until the receiver it wants shows up.
func Discover(addr string, timeout time.Duration, logger *zap.Logger) ([]Receiver, error) {
	target, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("invalid discovery address %q: %w", addr, err)
	}

	pc, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return nil, fmt.Errorf("failed to open discovery socket: %w", err)
	}
	defer pc.Close()

	probe, err := json.Marshal(discoveryProbe{Type: "discover"})
	if err != nil {
		return nil, err
	}

	if _, err := pc.WriteTo(probe, target); err != nil {
		return nil, fmt.Errorf("failed to send discovery probe: %w", err)
	}

	if err := pc.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}

	var receivers []Receiver
	buf := make([]byte, 1024)
	for {
		n, from, err := pc.ReadFrom(buf)
		if err != nil {
			// Deadline reached: return whatever answered in time
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				return receivers, nil
			}
			return receivers, fmt.Errorf("discovery read failed: %w", err)
		}

		var reply discoveryReply
		if err := json.Unmarshal(buf[:n], &reply); err != nil || reply.Type != "receiver" {
			logger.Debug("Ignoring malformed discovery reply", zap.String("from", from.String()))
			continue
		}

		host, _, err := net.SplitHostPort(from.String())
		if err != nil {
			continue
		}

		logger.Debug("Discovered receiver",
			zap.String("name", reply.Name),
			zap.String("host", host),
			zap.Int("port", reply.Port))

		receivers = append(receivers, Receiver{
			Name: reply.Name,
			Host: host,
			Port: reply.Port,
		})
	}
}

// FindByName returns the first discovered receiver with the given
// friendly name
func FindByName(receivers []Receiver, name string) (Receiver, bool) {
	for _, r := range receivers {
		if r.Name == name {
			return r, true
		}
	}
	return Receiver{}, false
}
