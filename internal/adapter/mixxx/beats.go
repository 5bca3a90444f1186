package mixxx

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

const beatGridV2 = "BeatGrid-2.0"

var errMalformedBeats = errors.New("malformed beats blob")

// beatGrid mirrors the BeatGrid message Mixxx stores for constant-tempo
// tracks:
//
//	message Bpm      { optional double bpm = 1; }
//	message Beat     { optional int32 frame_position = 1; }
//	message BeatGrid { optional Bpm bpm = 1; optional Beat first_beat = 2; }
type beatGrid struct {
	BPM        float64
	FirstFrame int32
}

func decodeBeatGrid(b []byte) (beatGrid, error) {
	var grid beatGrid
	err := walkMessage(b, func(num protowire.Number, typ protowire.Type, v []byte) error {
		switch {
		case num == 1 && typ == protowire.BytesType:
			return walkMessage(v, func(num protowire.Number, typ protowire.Type, v []byte) error {
				if num == 1 && typ == protowire.Fixed64Type {
					bits, _ := protowire.ConsumeFixed64(v)
					grid.BPM = math.Float64frombits(bits)
				}
				return nil
			})
		case num == 2 && typ == protowire.BytesType:
			return walkMessage(v, func(num protowire.Number, typ protowire.Type, v []byte) error {
				if num == 1 && typ == protowire.VarintType {
					n, _ := protowire.ConsumeVarint(v)
					grid.FirstFrame = int32(n)
				}
				return nil
			})
		}
		return nil
	})
	return grid, err
}

// walkMessage calls fn for every field of a serialized message. For bytes
// fields v is the payload; for scalar fields v starts at the encoded value.
func walkMessage(b []byte, fn func(protowire.Number, protowire.Type, []byte) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", errMalformedBeats, protowire.ParseError(n))
		}
		b = b[n:]

		value := b
		if typ == protowire.BytesType {
			payload, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return fmt.Errorf("%w: %v", errMalformedBeats, protowire.ParseError(m))
			}
			value = payload
		}
		m := protowire.ConsumeFieldValue(num, typ, b)
		if m < 0 {
			return fmt.Errorf("%w: %v", errMalformedBeats, protowire.ParseError(m))
		}
		if err := fn(num, typ, value[:min(len(value), m)]); err != nil {
			return err
		}
		b = b[m:]
	}
	return nil
}
