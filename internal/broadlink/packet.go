package broadlink

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"
	"net"
)

const headerSize = 0x38

// All devices ship with the same factory key material; Auth swaps the
// key for a device-provided one.
var (
	initialKey = []byte{
		0x09, 0x76, 0x28, 0x34, 0x3f, 0xe9, 0x9e, 0x23,
		0x76, 0x5c, 0x15, 0x13, 0xac, 0xcf, 0x8b, 0x02,
	}
	initialIV = []byte{
		0x56, 0x2e, 0x17, 0x99, 0x6d, 0x09, 0x3d, 0x28,
		0xdd, 0xb3, 0xba, 0x69, 0x5a, 0x2e, 0x6f, 0x58,
	}
)

// checksum is the protocol's additive checksum, seeded with 0xbeaf
func checksum(data []byte) uint16 {
	sum := uint32(0xbeaf)
	for _, b := range data {
		sum += uint32(b)
	}
	return uint16(sum & 0xffff)
}

// padBlock zero-pads data to a whole number of AES blocks
func padBlock(data []byte) []byte {
	rem := len(data) % aes.BlockSize
	if rem == 0 {
		return data
	}
	padded := make([]byte, len(data)+aes.BlockSize-rem)
	copy(padded, data)
	return padded
}

func encrypt(key, iv, payload []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	padded := padBlock(payload)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

func decrypt(key, iv, data []byte) ([]byte, error) {
	if len(data)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("payload length %d is not block-aligned", len(data))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data)
	return out, nil
}

// buildPacket assembles a full command packet: 0x38-byte header
// followed by the encrypted payload. The payload checksum covers the
// plaintext; the header checksum covers the assembled packet.
func buildPacket(command byte, count uint16, devtype uint16, mac net.HardwareAddr, id [4]byte, key, iv, payload []byte) ([]byte, error) {
	header := make([]byte, headerSize)
	copy(header[0x00:], []byte{0x5a, 0xa5, 0xaa, 0x55, 0x5a, 0xa5, 0xaa, 0x55})
	binary.LittleEndian.PutUint16(header[0x24:], devtype)
	header[0x26] = command
	binary.LittleEndian.PutUint16(header[0x28:], count)

	// MAC goes on the wire in reverse byte order
	for i := 0; i < len(mac) && i < 6; i++ {
		header[0x2a+5-i] = mac[i]
	}
	copy(header[0x30:], id[:])
	binary.LittleEndian.PutUint16(header[0x34:], checksum(payload))

	encrypted, err := encrypt(key, iv, payload)
	if err != nil {
		return nil, err
	}

	packet := append(header, encrypted...)
	binary.LittleEndian.PutUint16(packet[0x20:], checksum(packet))
	return packet, nil
}

// responseError extracts the device error code from a response header
func responseError(resp []byte) error {
	if len(resp) < headerSize {
		return fmt.Errorf("short response: %d bytes", len(resp))
	}

	if code := binary.LittleEndian.Uint16(resp[0x22:0x24]); code != 0 {
		return fmt.Errorf("device returned error code 0x%04x", code)
	}
	return nil
}
