package voice

// Decoder turns received opus frames into PCM.
type Decoder interface {
	Decode(opus []byte) ([]byte, error)
}

// DecoderFactory creates a decoder for a new speaker.
type DecoderFactory func(channels int) (Decoder, error)

type passthroughDecoder struct{}

func (passthroughDecoder) Decode(opus []byte) ([]byte, error) {
	return opus, nil
}

func newDecoder(factory DecoderFactory, channels int) Decoder {
	if factory == nil {
		return passthroughDecoder{}
	}

	decoder, err := factory(channels)
	if err != nil || decoder == nil {
		return passthroughDecoder{}
	}

	return decoder
}
