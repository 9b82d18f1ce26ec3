package scte35

import (
	"encoding/hex"
	"testing"
)

// FuzzDecodeBytes seeds from the same hand-built vectors the golden and
// round-trip tests use, then hands the mutator arbitrary byte slices —
// DecodeBytes must reject or accept them without panicking, since it
// runs directly on bytes read off the wire.
func FuzzDecodeBytes(f *testing.F) {
	for _, v := range spliceVectors {
		data, err := hex.DecodeString(v.hex)
		if err != nil {
			f.Fatalf("seed %s: %v", v.name, err)
		}
		f.Add(data)
	}
	f.Add([]byte{})
	f.Add([]byte{tableID})

	f.Fuzz(func(t *testing.T, data []byte) {
		DecodeBytes(data)
	})
}
