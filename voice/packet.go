package voice

import (
	"encoding/binary"
	"time"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	rtpVersion     = 0x80
	rtpPayloadType = 0x78

	HeaderSize = 12
	NonceSize  = 24

	// FrameSize is the size of a 20ms opus frame at 128kbps CBR.
	FrameSize = 320

	// FrameSamples is the number of samples per channel in a 20ms frame at 48kHz.
	FrameSamples = 960

	FrameDuration = 20 * time.Millisecond
)

// Header is the RTP header of a voice packet.
type Header struct {
	Sequence  uint16
	Timestamp uint32
	SSRC      uint32
}

// Marshal encodes the header as 0x80 0x78 seq(BE16) ts(BE32) ssrc(BE32).
func (h Header) Marshal() [HeaderSize]byte {
	var b [HeaderSize]byte

	b[0] = rtpVersion
	b[1] = rtpPayloadType
	binary.BigEndian.PutUint16(b[2:4], h.Sequence)
	binary.BigEndian.PutUint32(b[4:8], h.Timestamp)
	binary.BigEndian.PutUint32(b[8:12], h.SSRC)

	return b
}

// ParseHeader decodes the RTP header at the start of a packet.
func ParseHeader(packet []byte) (Header, error) {
	if len(packet) < HeaderSize {
		return Header{}, ErrPacketTooShort
	}

	if packet[0]&0xC0 != rtpVersion {
		return Header{}, ErrInvalidRTPVersion
	}

	return Header{
		Sequence:  binary.BigEndian.Uint16(packet[2:4]),
		Timestamp: binary.BigEndian.Uint32(packet[4:8]),
		SSRC:      binary.BigEndian.Uint32(packet[8:12]),
	}, nil
}

// nonce is the header zero padded to 24 bytes.
func nonce(header []byte) *[NonceSize]byte {
	var n [NonceSize]byte

	copy(n[:], header[:HeaderSize])

	return &n
}

// SealPacket builds an encrypted voice packet.
func SealPacket(header Header, opus []byte, key *[32]byte) []byte {
	h := header.Marshal()

	packet := make([]byte, HeaderSize, HeaderSize+len(opus)+secretbox.Overhead)
	copy(packet, h[:])

	return secretbox.Seal(packet, opus, nonce(h[:]), key)
}

// OpenPacket splits and decrypts a voice packet.
func OpenPacket(packet []byte, key *[32]byte) (Header, []byte, error) {
	header, err := ParseHeader(packet)
	if err != nil {
		return Header{}, nil, err
	}

	opus, ok := secretbox.Open(nil, packet[HeaderSize:], nonce(packet), key)
	if !ok {
		return header, nil, ErrDecrypt
	}

	return header, opus, nil
}

// NextSequence advances a sequence number, wrapping to zero.
func NextSequence(sequence uint16) uint16 {
	if uint32(sequence)+1 < 0xFFFF {
		return sequence + 1
	}

	return 0
}

// NextTimestamp advances a timestamp by one frame, wrapping to zero.
func NextTimestamp(timestamp uint32) uint32 {
	if uint64(timestamp)+FrameSamples < 0xFFFFFFFF {
		return timestamp + FrameSamples
	}

	return 0
}
