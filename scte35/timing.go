package scte35

import "github.com/zsiec/tsprobe/mpegts"

// decodeSpliceTime reads a splice_time() structure: a leading
// time_specified_flag bit shares its byte with 6 or 7 reserved bits,
// and — when set — a 33-bit PTS whose top bit lives in that same byte
// and whose low 32 bits are byte-aligned right after it. This is the
// same marker-free scattered layout mpegts.parsePTSOrDTS decodes for
// PES, just without PES's own marker bits woven between the chunks.
// It returns the decoded SpliceTime and the number of bytes consumed.
func decodeSpliceTime(data []byte) (SpliceTime, int) {
	if len(data) == 0 {
		return SpliceTime{}, 0
	}
	if !mpegts.Bit(data, 0, 7) {
		return SpliceTime{}, 1
	}
	if len(data) < 5 {
		return SpliceTime{}, len(data)
	}
	pts := uint64(mpegts.U8At(data, 0)&0x01)<<32 | uint64(mpegts.U32At(data, 1))
	return SpliceTime{PTSTime: &pts}, 5
}

// encodeSpliceTime is decodeSpliceTime's inverse.
func encodeSpliceTime(st SpliceTime) []byte {
	if st.PTSTime == nil {
		return []byte{0x7F} // time_specified_flag=0, reserved=0x7F
	}
	out := make([]byte, 5)
	out[0] = 0xFE | byte(*st.PTSTime>>32)&0x01 // time_specified_flag=1, reserved=0x3F
	out[1] = byte(*st.PTSTime >> 24)
	out[2] = byte(*st.PTSTime >> 16)
	out[3] = byte(*st.PTSTime >> 8)
	out[4] = byte(*st.PTSTime)
	return out
}

func spliceTimeLength(st SpliceTime) int {
	if st.PTSTime == nil {
		return 1
	}
	return 5
}

// decodeBreakDuration reads a break_duration() structure: auto_return
// shares its leading byte with 6 reserved bits and the top bit of a
// 33-bit duration, laid out exactly like splice_time()'s PTS.
func decodeBreakDuration(data []byte) *BreakDuration {
	if len(data) < 5 {
		return nil
	}
	flagByte := mpegts.U8At(data, 0)
	return &BreakDuration{
		AutoReturn: mpegts.Bit(data, 0, 7),
		Duration:   uint64(flagByte&0x01)<<32 | uint64(mpegts.U32At(data, 1)),
	}
}

func encodeBreakDuration(bd *BreakDuration) []byte {
	out := make([]byte, 5)
	out[0] = 0x7E // reserved=0x3F
	if bd.AutoReturn {
		out[0] |= 0x80
	}
	out[0] |= byte(bd.Duration>>32) & 0x01
	out[1] = byte(bd.Duration >> 24)
	out[2] = byte(bd.Duration >> 16)
	out[3] = byte(bd.Duration >> 8)
	out[4] = byte(bd.Duration)
	return out
}
