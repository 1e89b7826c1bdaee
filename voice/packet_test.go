package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(seed byte) *[32]byte {
	var key [32]byte

	for i := range key {
		key[i] = seed + byte(i)
	}

	return &key
}

func TestHeaderMarshal(t *testing.T) {
	t.Parallel()

	h := Header{Sequence: 1, Timestamp: 960, SSRC: 12345}

	assert.Equal(t, [HeaderSize]byte{0x80, 0x78, 0x00, 0x01, 0x00, 0x00, 0x03, 0xC0, 0x00, 0x00, 0x30, 0x39}, h.Marshal())

	b := h.Marshal()
	parsed, err := ParseHeader(b[:])
	require.NoError(t, err)
	assert.Equal(t, h, parsed)
}

func TestParseHeaderErrors(t *testing.T) {
	t.Parallel()

	_, err := ParseHeader([]byte{0x80, 0x78})
	assert.ErrorIs(t, err, ErrPacketTooShort)

	_, err = ParseHeader(make([]byte, HeaderSize))
	assert.ErrorIs(t, err, ErrInvalidRTPVersion)
}

func TestSealOpenPacket(t *testing.T) {
	t.Parallel()

	key := testKey(1)
	h := Header{Sequence: 1, Timestamp: 960, SSRC: 12345}
	opus := []byte("opus frame payload")

	packet := SealPacket(h, opus, key)
	assert.Len(t, packet, HeaderSize+len(opus)+16)

	header, opened, err := OpenPacket(packet, key)
	require.NoError(t, err)
	assert.Equal(t, h, header)
	assert.Equal(t, opus, opened)

	_, _, err = OpenPacket(packet, testKey(2))
	assert.ErrorIs(t, err, ErrDecrypt)

	packet[len(packet)-1] ^= 0xFF
	_, _, err = OpenPacket(packet, key)
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestNonceIsPaddedHeader(t *testing.T) {
	t.Parallel()

	h := Header{Sequence: 7, Timestamp: 1, SSRC: 2}
	b := h.Marshal()

	n := nonce(b[:])

	assert.Equal(t, b[:], n[:HeaderSize])
	assert.Equal(t, make([]byte, NonceSize-HeaderSize), n[HeaderSize:])
}

func TestSequenceWraps(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint16(1), NextSequence(0))
	assert.Equal(t, uint16(0xFFFE), NextSequence(0xFFFD))
	assert.Equal(t, uint16(0), NextSequence(0xFFFE))
	assert.Equal(t, uint16(0), NextSequence(0xFFFF))
}

func TestTimestampWraps(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint32(960), NextTimestamp(0))
	assert.Equal(t, uint32(0xFFFFFFFE), NextTimestamp(0xFFFFFFFE-960))
	assert.Equal(t, uint32(0), NextTimestamp(0xFFFFFFFF-960))
	assert.Equal(t, uint32(0), NextTimestamp(0xFFFFFFF0))
}
