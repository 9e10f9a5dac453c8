// Package broadlink speaks the UDP control protocol of Broadlink
// SP2-class smart plugs: AES-encrypted command payloads behind a
// key-exchange handshake. It implements the session contract the
// device package consumes.
package broadlink

import (
	"fmt"
	"math/rand"
	"net"
	"strconv"
	"sync"
	"time"
)

const (
	cmdAuth    = 0x65
	cmdControl = 0x6a

	defaultTimeout = 5 * time.Second
)

// Device is one plug session. All I/O is serialized by a mutex and
// bounded by a read deadline.
type Device struct {
	mu sync.Mutex

	conn    net.Conn
	mac     net.HardwareAddr
	devtype uint16
	timeout time.Duration

	key   []byte
	iv    []byte
	id    [4]byte
	count uint16
}

// Dial opens a UDP session to the plug. The session is unusable for
// control commands until Auth has completed the key exchange.
func Dial(host string, port int, mac net.HardwareAddr, devtype uint16) (*Device, error) {
	conn, err := net.Dial("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s:%d: %w", host, port, err)
	}

	key := make([]byte, len(initialKey))
	copy(key, initialKey)
	iv := make([]byte, len(initialIV))
	copy(iv, initialIV)

	return &Device{
		conn:    conn,
		mac:     mac,
		devtype: devtype,
		timeout: defaultTimeout,
		key:     key,
		iv:      iv,
		count:   uint16(rand.Intn(0xffff)),
	}, nil
}

// Auth performs the key exchange. The device answers with the session
// key and id used for all subsequent commands.
func (d *Device) Auth() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	payload := make([]byte, 0x50)
	for i := 0x04; i < 0x13; i++ {
		payload[i] = 0x31
	}
	payload[0x1e] = 0x01
	payload[0x2d] = 0x01
	copy(payload[0x30:], "speakerremote")

	resp, err := d.exchangeLocked(cmdAuth, payload)
	if err != nil {
		return fmt.Errorf("auth failed: %w", err)
	}

	data, err := d.decryptPayloadLocked(resp)
	if err != nil {
		return fmt.Errorf("auth failed: %w", err)
	}
	if len(data) < 0x14 {
		return fmt.Errorf("auth failed: short payload (%d bytes)", len(data))
	}

	copy(d.id[:], data[0x00:0x04])
	key := make([]byte, 0x10)
	copy(key, data[0x04:0x14])
	d.key = key
	return nil
}

// CheckPower queries the plug's current relay state
func (d *Device) CheckPower() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	payload := make([]byte, 16)
	payload[0x00] = 1

	resp, err := d.exchangeLocked(cmdControl, payload)
	if err != nil {
		return false, fmt.Errorf("power query failed: %w", err)
	}

	data, err := d.decryptPayloadLocked(resp)
	if err != nil {
		return false, fmt.Errorf("power query failed: %w", err)
	}
	if len(data) < 0x05 {
		return false, fmt.Errorf("power query failed: short payload (%d bytes)", len(data))
	}

	return data[0x04]&1 == 1, nil
}

// SetPower commands the plug's relay state
func (d *Device) SetPower(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	payload := make([]byte, 16)
	payload[0x00] = 2
	if on {
		payload[0x04] = 1
	}

	if _, err := d.exchangeLocked(cmdControl, payload); err != nil {
		return fmt.Errorf("power command failed: %w", err)
	}
	return nil
}

// Close releases the underlying socket
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conn.Close()
}

// exchangeLocked sends one command packet and reads the response.
// Callers must hold d.mu.
func (d *Device) exchangeLocked(command byte, payload []byte) ([]byte, error) {
	d.count = (d.count + 1) & 0xffff

	packet, err := buildPacket(command, d.count, d.devtype, d.mac, d.id, d.key, d.iv, payload)
	if err != nil {
		return nil, err
	}

	if err := d.conn.SetDeadline(time.Now().Add(d.timeout)); err != nil {
		return nil, err
	}

	if _, err := d.conn.Write(packet); err != nil {
		return nil, fmt.Errorf("write failed: %w", err)
	}

	buf := make([]byte, 2048)
	n, err := d.conn.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("read failed: %w", err)
	}

	resp := buf[:n]
	if err := responseError(resp); err != nil {
		return nil, err
	}

	return resp, nil
}

// decryptPayloadLocked decrypts the payload portion of a response.
// Callers must hold d.mu.
func (d *Device) decryptPayloadLocked(resp []byte) ([]byte, error) {
	if len(resp) <= headerSize {
		return nil, fmt.Errorf("response has no payload")
	}
	return decrypt(d.key, d.iv, resp[headerSize:])
}
