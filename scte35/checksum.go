package scte35

import (
	"encoding/binary"
	"fmt"

	"github.com/zsiec/tsprobe/mpegts"
)

// verifySectionCRC checks that the last 4 bytes of data are the
// MPEG-2 CRC-32 of everything before them, using the same
// mpegts.ComputeCRC32 the PAT/PMT/SDT/EIT decoders in mpegts verify
// their own sections with — a splice_info_section uses the identical
// polynomial and no-final-XOR convention.
func verifySectionCRC(data []byte) error {
	if len(data) < 4 {
		return fmt.Errorf("scte35: section too short for CRC32")
	}
	computed := mpegts.ComputeCRC32(data[:len(data)-4])
	stored := binary.BigEndian.Uint32(data[len(data)-4:])
	if computed != stored {
		return fmt.Errorf("scte35: CRC32 mismatch: computed 0x%08X, stored 0x%08X", computed, stored)
	}
	return nil
}
