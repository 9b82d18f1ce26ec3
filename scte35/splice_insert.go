package scte35

import (
	"encoding/binary"

	"github.com/zsiec/tsprobe/mpegts"
)

// SpliceInsert is splice_insert(): a program-level splice point, most
// commonly the immediate, component-agnostic form used to mark the
// start or return point of an ad break.
type SpliceInsert struct {
	SpliceEventID              uint32
	SpliceEventCancelIndicator bool
	OutOfNetworkIndicator      bool
	SpliceImmediateFlag        bool
	BreakDuration              *BreakDuration
	UniqueProgramID            uint32
	AvailNum                   uint32
	AvailsExpected             uint32
}

var _ SpliceCommand = (*SpliceInsert)(nil)

func (cmd *SpliceInsert) Type() uint32 { return SpliceInsertType }

// decode tracks a running byte offset rather than a bit cursor: every
// field here is either a whole byte, a flag packed into one byte
// alongside reserved bits (extracted with a mask), or a
// splice_time()/break_duration() handed off to the shared timing
// helpers, which is the only sub-byte-scattered shape this format uses.
// mpegts's UxxAt accessors return 0 past the end of data rather than
// failing, so a truncated command decodes to zero-valued trailing
// fields instead of an error, matching how mpegts's own PSI decoders
// treat a short section.
func (cmd *SpliceInsert) decode(data []byte) error {
	cmd.SpliceEventID = mpegts.U32At(data, 0)
	cmd.SpliceEventCancelIndicator = mpegts.Bit(data, 4, 7)
	pos := 5

	if !cmd.SpliceEventCancelIndicator {
		flags := mpegts.U8At(data, pos)
		cmd.OutOfNetworkIndicator = flags&0x80 != 0
		programSpliceFlag := flags&0x40 != 0
		durationFlag := flags&0x20 != 0
		cmd.SpliceImmediateFlag = flags&0x10 != 0
		pos++

		if programSpliceFlag {
			if !cmd.SpliceImmediateFlag {
				_, n := decodeSpliceTime(data[minInt(pos, len(data)):])
				pos += n
			}
		} else {
			componentCount := int(mpegts.U8At(data, pos))
			pos++
			for i := 0; i < componentCount && pos <= len(data); i++ {
				pos++ // component_tag
				if !cmd.SpliceImmediateFlag {
					_, n := decodeSpliceTime(data[minInt(pos, len(data)):])
					pos += n
				}
			}
		}

		if durationFlag {
			cmd.BreakDuration = decodeBreakDuration(data[minInt(pos, len(data)):])
			pos += 5
		}
	}

	cmd.UniqueProgramID = uint32(mpegts.U16At(data, pos))
	cmd.AvailNum = uint32(mpegts.U8At(data, pos+2))
	cmd.AvailsExpected = uint32(mpegts.U8At(data, pos+3))
	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// encode only ever emits the component-agnostic form (program_splice_flag
// set to 0 with a zero-length component loop): every SpliceInsert this
// project constructs targets the whole program, never an individual
// elementary stream component.
func (cmd *SpliceInsert) encode() ([]byte, error) {
	buf := make([]byte, 0, cmd.commandLength())

	var eventID [4]byte
	binary.BigEndian.PutUint32(eventID[:], cmd.SpliceEventID)
	buf = append(buf, eventID[:]...)

	cancelByte := byte(0x7F) // reserved
	if cmd.SpliceEventCancelIndicator {
		cancelByte |= 0x80
	}
	buf = append(buf, cancelByte)

	if cmd.SpliceEventCancelIndicator {
		return buf, nil
	}

	flags := byte(0x0F) // reserved; program_splice_flag stays 0
	if cmd.OutOfNetworkIndicator {
		flags |= 0x80
	}
	if cmd.BreakDuration != nil {
		flags |= 0x20
	}
	if cmd.SpliceImmediateFlag {
		flags |= 0x10
	}
	buf = append(buf, flags, 0x00) // flags, component_count=0

	if cmd.BreakDuration != nil {
		buf = append(buf, encodeBreakDuration(cmd.BreakDuration)...)
	}

	var tail [4]byte
	binary.BigEndian.PutUint16(tail[0:2], uint16(cmd.UniqueProgramID))
	tail[2] = byte(cmd.AvailNum)
	tail[3] = byte(cmd.AvailsExpected)
	return append(buf, tail[:]...), nil
}

func (cmd *SpliceInsert) commandLength() int {
	length := 5 // splice_event_id(4) + cancel_indicator+reserved(1)
	if cmd.SpliceEventCancelIndicator {
		return length
	}
	length += 2 // flags(1) + component_count(1)
	if cmd.BreakDuration != nil {
		length += 5
	}
	return length + 4 // unique_program_id(2) + avail_num(1) + avails_expected(1)
}
