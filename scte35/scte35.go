// Package scte35 implements encoding and decoding of SCTE-35
// splice_info_section messages, the cue-tone signaling ANSI/SCTE 35
// carries over table_id 0xFC. Only the command and descriptor types
// this project needs are supported: SpliceNull, SpliceInsert,
// TimeSignal, and SegmentationDescriptor.
package scte35

import (
	"encoding/binary"
	"fmt"

	"github.com/zsiec/tsprobe/mpegts"
)

const (
	tableID = 0xFC

	SpliceNullType   uint32 = 0x00
	SpliceInsertType uint32 = 0x05
	TimeSignalType   uint32 = 0x06
)

// SpliceCommand is a decoded splice_command. decode/encode/commandLength
// stay unexported: build one through DecodeBytes, or by constructing a
// concrete type (*SpliceInsert, *TimeSignal, *SpliceNull) directly.
type SpliceCommand interface {
	Type() uint32
	decode([]byte) error
	encode() ([]byte, error)
	commandLength() int
}

// SpliceDescriptor is a decoded entry from a SpliceInfoSection's
// descriptor loop.
type SpliceDescriptor interface {
	Tag() uint32
	decode([]byte) error
	encode() ([]byte, error)
	descriptorLength() int
}

// SpliceDescriptors is the decoded descriptor loop of a SpliceInfoSection.
type SpliceDescriptors []SpliceDescriptor

// SpliceTime carries the optional PTS a splice_time() structure wraps.
// PTSTime is nil when time_specified_flag was 0.
type SpliceTime struct {
	PTSTime *uint64
}

// BreakDuration is the break_duration() structure attached to a
// SpliceInsert command.
type BreakDuration struct {
	AutoReturn bool
	Duration   uint64
}

// SpliceInfoSection is a decoded splice_info_section: SCTE-35 6.1's
// wrapper around exactly one splice_command plus an optional descriptor
// loop.
type SpliceInfoSection struct {
	SAPType           uint32
	PTSAdjustment     uint64
	Tier              uint32
	SpliceCommand     SpliceCommand
	SpliceDescriptors SpliceDescriptors
}

// DecodeBytes decodes a splice_info_section, verifying its trailing
// CRC-32 before touching any field.
func DecodeBytes(data []byte) (*SpliceInfoSection, error) {
	sis := &SpliceInfoSection{}
	if err := sis.decode(data); err != nil {
		return sis, err
	}
	return sis, nil
}

// decode walks splice_info_section the way mpegts.ParsePAT and
// mpegts.ParsePMT walk their own PSI sections: every field here lands on
// a byte boundary once section_syntax_indicator, private_indicator and
// sap_type are peeled off the same 16-bit word as section_length, so
// field access is a sequence of mpegts.UxxAt plus mpegts.MaskShift calls
// rather than a bit-at-a-time cursor.
func (sis *SpliceInfoSection) decode(data []byte) error {
	if err := verifySectionCRC(data); err != nil {
		return err
	}
	if len(data) < 14 {
		return fmt.Errorf("scte35: section shorter than fixed header")
	}

	lengthWord := mpegts.U16At(data, 1)
	sis.SAPType = mpegts.MaskShift(uint32(lengthWord), 0x3000, 12)
	sectionLength := int(mpegts.MaskShift(uint32(lengthWord), 0x0FFF, 0))

	ptsByte := mpegts.U8At(data, 4)
	sis.PTSAdjustment = uint64(ptsByte&0x01)<<32 | uint64(mpegts.U32At(data, 5))

	tierAndCmdLen := mpegts.U24At(data, 10)
	sis.Tier = mpegts.MaskShift(tierAndCmdLen, 0xFFF000, 12)
	spliceCommandLength := int(mpegts.MaskShift(tierAndCmdLen, 0x000FFF, 0))
	spliceCommandType := uint32(mpegts.U8At(data, 13))

	const cmdStart = 14
	if spliceCommandLength == 0xFFF {
		// Legacy encoders leave splice_command_length at the "unknown"
		// sentinel; the command and descriptor loop then share one
		// undivided run to section_length minus the trailing CRC.
		end := cmdStart + (sectionLength - 11) - 4
		if end > len(data) || end < cmdStart {
			return fmt.Errorf("scte35: legacy splice_command_length overruns section")
		}
		return sis.decodeLegacyBody(spliceCommandType, data[cmdStart:end])
	}

	cmdEnd := cmdStart + spliceCommandLength
	if cmdEnd > len(data) {
		return fmt.Errorf("scte35: splice_command_length overruns section")
	}
	cmd, err := decodeSpliceCommand(spliceCommandType, data[cmdStart:cmdEnd])
	if err != nil {
		return fmt.Errorf("scte35: decoding command type 0x%02X: %w", spliceCommandType, err)
	}
	sis.SpliceCommand = cmd

	if cmdEnd+2 > len(data) {
		return nil
	}
	descLoopLen := int(mpegts.U16At(data, cmdEnd))
	descStart := cmdEnd + 2
	descEnd := descStart + descLoopLen
	if descLoopLen == 0 || descEnd > len(data) {
		return nil
	}
	descs, err := decodeSpliceDescriptors(data[descStart:descEnd])
	if err != nil {
		return err
	}
	sis.SpliceDescriptors = descs
	return nil
}

// decodeLegacyBody handles the 0xFFF splice_command_length path, where
// the descriptor loop length sits at an offset only known once the
// command has decoded and reported its own length.
func (sis *SpliceInfoSection) decodeLegacyBody(cmdType uint32, payload []byte) error {
	cmd, err := decodeSpliceCommand(cmdType, payload)
	if err != nil {
		return fmt.Errorf("scte35: decoding command type 0x%02X: %w", cmdType, err)
	}
	sis.SpliceCommand = cmd

	cmdLen := cmd.commandLength()
	if cmdLen+2 > len(payload) {
		return nil
	}
	descLoopLen := int(mpegts.U16At(payload, cmdLen))
	descData := payload[cmdLen+2:]
	if descLoopLen == 0 || descLoopLen > len(descData) {
		return nil
	}
	descs, err := decodeSpliceDescriptors(descData[:descLoopLen])
	if err != nil {
		return err
	}
	sis.SpliceDescriptors = descs
	return nil
}

// Encode serializes sis back into a splice_info_section, computing a
// fresh trailing CRC-32.
func (sis *SpliceInfoSection) Encode() ([]byte, error) {
	var cmdBytes []byte
	cmdType := SpliceNullType
	if sis.SpliceCommand != nil {
		b, err := sis.SpliceCommand.encode()
		if err != nil {
			return nil, err
		}
		cmdBytes = b
		cmdType = sis.SpliceCommand.Type()
	}

	var descBytes []byte
	for _, d := range sis.SpliceDescriptors {
		b, err := d.encode()
		if err != nil {
			return nil, err
		}
		descBytes = append(descBytes, b...)
	}

	sectionLength := 11 + len(cmdBytes) + 2 + len(descBytes) + 4
	buf := make([]byte, 3+sectionLength)

	buf[0] = tableID
	binary.BigEndian.PutUint16(buf[1:3], uint16(sis.SAPType)<<12|uint16(sectionLength)&0x0FFF)
	buf[3] = 0 // protocol_version
	buf[4] = byte(sis.PTSAdjustment>>32) & 0x01
	binary.BigEndian.PutUint32(buf[5:9], uint32(sis.PTSAdjustment))
	buf[9] = 0 // cw_index
	tierAndCmdLen := sis.Tier<<12 | uint32(len(cmdBytes))&0x0FFF
	buf[10], buf[11], buf[12] = byte(tierAndCmdLen>>16), byte(tierAndCmdLen>>8), byte(tierAndCmdLen)
	buf[13] = byte(cmdType)
	copy(buf[14:], cmdBytes)

	descLenOffset := 14 + len(cmdBytes)
	binary.BigEndian.PutUint16(buf[descLenOffset:descLenOffset+2], uint16(len(descBytes)))
	copy(buf[descLenOffset+2:], descBytes)

	crc := mpegts.ComputeCRC32(buf[:len(buf)-4])
	binary.BigEndian.PutUint32(buf[len(buf)-4:], crc)
	return buf, nil
}

func decodeSpliceCommand(cmdType uint32, data []byte) (SpliceCommand, error) {
	var cmd SpliceCommand
	switch cmdType {
	case SpliceNullType:
		cmd = &SpliceNull{}
	case SpliceInsertType:
		cmd = &SpliceInsert{}
	case TimeSignalType:
		cmd = &TimeSignal{}
	default:
		return &SpliceNull{}, nil
	}
	if err := cmd.decode(data); err != nil {
		return cmd, err
	}
	return cmd, nil
}

// decodeSpliceDescriptors walks a descriptor loop, keeping only
// segmentation_descriptor entries carrying the CUEI identifier. Every
// other splice_descriptor_tag has no decoded representation here and is
// skipped rather than rejected, matching a receiver that only cares
// about ad-insertion segmentation cues.
func decodeSpliceDescriptors(data []byte) ([]SpliceDescriptor, error) {
	var descs []SpliceDescriptor
	offset := 0
	for offset+2 <= len(data) {
		tag := uint32(mpegts.U8At(data, offset))
		length := int(mpegts.U8At(data, offset+1))
		end := offset + 2 + length
		if end > len(data) {
			break
		}
		if tag == SegmentationDescriptorTag && length >= 4 && mpegts.U32At(data, offset+2) == CUEIdentifier {
			sd := &SegmentationDescriptor{}
			if err := sd.decode(data[offset:end]); err != nil {
				return descs, err
			}
			descs = append(descs, sd)
		}
		offset = end
	}
	return descs, nil
}
