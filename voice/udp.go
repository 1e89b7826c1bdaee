package voice

import (
	"bytes"
	"encoding/binary"
	"net"
	"strconv"
)

const (
	DiscoveryPacketSize = 70
	KeepalivePacketSize = 8

	maxKeepaliveCounter = 4294967294
)

// DiscoveryPacket returns the ip discovery request for an SSRC.
func DiscoveryPacket(ssrc uint32) []byte {
	packet := make([]byte, DiscoveryPacketSize)
	binary.BigEndian.PutUint32(packet, ssrc)

	return packet
}

// ParseDiscoveryReply extracts our external address from a discovery
// reply. The ip is a NUL terminated string at offset 4 and the port is
// little endian in the last two bytes.
func ParseDiscoveryReply(reply []byte) (ip string, port uint16, err error) {
	if len(reply) < 8 {
		return "", 0, ErrDiscoveryReply
	}

	address := reply[4 : len(reply)-2]
	if end := bytes.IndexByte(address, 0); end >= 0 {
		address = address[:end]
	}

	if net.ParseIP(string(address)) == nil {
		return "", 0, ErrDiscoveryReply
	}

	return string(address), binary.LittleEndian.Uint16(reply[len(reply)-2:]), nil
}

// keepalive produces the periodic UDP keepalive packets.
type keepalive struct {
	counter uint64
}

// Next advances the counter and returns an 8 byte packet carrying it as a
// 48-bit little endian value. The first packet carries 1.
func (k *keepalive) Next() []byte {
	if k.counter > maxKeepaliveCounter {
		k.counter = 0
	}

	k.counter++

	packet := make([]byte, KeepalivePacketSize)

	var counter [8]byte

	binary.LittleEndian.PutUint64(counter[:], k.counter)
	copy(packet, counter[:6])

	return packet
}

func hostPort(host string, port uint16) string {
	return net.JoinHostPort(host, strconv.Itoa(int(port)))
}
