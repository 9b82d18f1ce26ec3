package mpegts

import (
	"fmt"
	"time"
)

// ETSI EN 300 468 SI table_id values.
const (
	TableIDNITActual uint8 = 0x40
	TableIDNITOther  uint8 = 0x41
	TableIDSDTActual uint8 = 0x42
	TableIDSDTOther  uint8 = 0x46
	TableIDBAT       uint8 = 0x4A
	TableIDEITPF     uint8 = 0x4E
	TableIDTDT       uint8 = 0x70
	TableIDRST       uint8 = 0x71
	TableIDStuffing  uint8 = 0x72
	TableIDTOT       uint8 = 0x73
	TableIDDIT       uint8 = 0x7E
	TableIDSIT       uint8 = 0x7F
)

// IsEITScheduleTableID reports whether id falls in the EIT schedule
// range (0x50-0x5F actual, 0x60-0x6F other).
func IsEITScheduleTableID(id uint8) bool { return id >= 0x50 && id <= 0x6F }

// NITTransportStream is one entry in an NIT's transport_stream_loop.
type NITTransportStream struct {
	TransportStreamID uint16
	OriginalNetworkID uint16
	Descriptors       []byte
}

// NITData is a decoded network_information_section (or, with the same
// layout, a bouquet_association_section).
type NITData struct {
	NetworkID          uint16
	NetworkDescriptors []byte
	TransportStreams   []NITTransportStream
}

// ParseNIT decodes an NIT or BAT section: both share this layout, with
// NetworkID meaning bouquet_id for a BAT.
func ParseNIT(section StoredSection) (*NITData, error) {
	if err := verifyCRC32(section); err != nil {
		return nil, fmt.Errorf("mpegts: NIT/BAT: %w", err)
	}
	nit := &NITData{NetworkID: section.TableIDExtension()}

	networkDescLen := int(MaskShift(uint32(U16At(section, 8)), 0x0FFF, 0))
	nit.NetworkDescriptors = SubSlice(section, 10, networkDescLen)

	loopLenOffset := 10 + networkDescLen
	tsLoopLen := int(MaskShift(uint32(U16At(section, loopLenOffset)), 0x0FFF, 0))
	offset := loopLenOffset + 2
	end := offset + tsLoopLen
	if end > len(section)-4 {
		end = len(section) - 4
	}

	for offset+6 <= end {
		descLen := int(MaskShift(uint32(U16At(section, offset+4)), 0x0FFF, 0))
		size := descLen + 6
		if offset+size > end {
			break
		}
		nit.TransportStreams = append(nit.TransportStreams, NITTransportStream{
			TransportStreamID: U16At(section, offset),
			OriginalNetworkID: U16At(section, offset+2),
			Descriptors:       SubSlice(section, offset+6, descLen),
		})
		offset += size
	}
	return nit, nil
}

// SDTService is one entry in a service_description_section.
type SDTService struct {
	ServiceID                uint16
	EITScheduleFlag          bool
	EITPresentFollowingFlag  bool
	RunningStatus            uint8
	FreeCAMode               bool
	Descriptors              []byte
}

// SDTData is a decoded service_description_section.
type SDTData struct {
	TransportStreamID uint16
	OriginalNetworkID uint16
	Services          []SDTService
}

// ParseSDT decodes a service_description_section.
func ParseSDT(section StoredSection) (*SDTData, error) {
	if err := verifyCRC32(section); err != nil {
		return nil, fmt.Errorf("mpegts: SDT: %w", err)
	}
	sdt := &SDTData{
		TransportStreamID: section.TableIDExtension(),
		OriginalNetworkID: U16At(section, 8),
	}

	offset := 11
	end := 3 + section.SectionLength() - 4
	for offset+5 <= end {
		descLoopLen := int(MaskShift(uint32(U16At(section, offset+3)), 0x0FFF, 0))
		size := descLoopLen + 5
		if offset+size > end {
			break
		}
		sdt.Services = append(sdt.Services, SDTService{
			ServiceID:               U16At(section, offset),
			EITScheduleFlag:         Bit(section, offset+2, 1),
			EITPresentFollowingFlag: Bit(section, offset+2, 0),
			RunningStatus:           uint8(MaskShift(uint32(U8At(section, offset+3)), 0xE0, 5)),
			FreeCAMode:              Bit(section, offset+3, 4),
			Descriptors:             SubSlice(section, offset+5, descLoopLen),
		})
		offset += size
	}
	return sdt, nil
}

// EITEvent is one entry in an event_information_section.
type EITEvent struct {
	EventID       uint16
	StartTime     time.Time
	Duration      time.Duration
	RunningStatus uint8
	FreeCAMode    bool
	Descriptors   []byte
}

// EITData is a decoded event_information_section.
type EITData struct {
	ServiceID         uint16
	TransportStreamID uint16
	OriginalNetworkID uint16
	Events            []EITEvent
}

// ParseEIT decodes an event_information_section.
func ParseEIT(section StoredSection) (*EITData, error) {
	if err := verifyCRC32(section); err != nil {
		return nil, fmt.Errorf("mpegts: EIT: %w", err)
	}
	eit := &EITData{
		ServiceID:         section.TableIDExtension(),
		TransportStreamID: U16At(section, 8),
		OriginalNetworkID: U16At(section, 10),
	}

	offset := 14
	end := 3 + section.SectionLength() - 4
	for offset+12 <= end {
		descLoopLen := int(MaskShift(uint32(U16At(section, offset+10)), 0x0FFF, 0))
		size := descLoopLen + 12
		if offset+size > end {
			break
		}
		eit.Events = append(eit.Events, EITEvent{
			EventID:       U16At(section, offset),
			StartTime:     MJDUTCTime(U40At(section, offset+2)),
			Duration:      BCDDuration(U24At(section, offset+7)),
			RunningStatus: uint8(MaskShift(uint32(U8At(section, offset+10)), 0xE0, 5)),
			FreeCAMode:    Bit(section, offset+10, 4),
			Descriptors:   SubSlice(section, offset+12, descLoopLen),
		})
		offset += size
	}
	return eit, nil
}

// TDTData is a decoded time_date_section. TDT carries no version/CRC:
// section_syntax_indicator is 0.
type TDTData struct {
	UTCTime time.Time
}

// ParseTDT decodes a time_date_section.
func ParseTDT(section StoredSection) (*TDTData, error) {
	return &TDTData{UTCTime: MJDUTCTime(U40At(section, 3))}, nil
}

// TOTData is a decoded time_offset_section.
type TOTData struct {
	UTCTime     time.Time
	Descriptors []byte
}

// ParseTOT decodes a time_offset_section.
func ParseTOT(section StoredSection) (*TOTData, error) {
	if err := verifyCRC32(section); err != nil {
		return nil, fmt.Errorf("mpegts: TOT: %w", err)
	}
	descLoopLen := int(MaskShift(uint32(U16At(section, 8)), 0x0FFF, 0))
	return &TOTData{
		UTCTime:     MJDUTCTime(U40At(section, 3)),
		Descriptors: SubSlice(section, 10, descLoopLen),
	}, nil
}

// RSTEvent is one entry in a running_status_section.
type RSTEvent struct {
	TransportStreamID uint16
	OriginalNetworkID uint16
	ServiceID         uint16
	EventID           uint16
	RunningStatus     uint8
}

// ParseRST decodes a running_status_section. RST has no
// section_syntax_indicator fields and no CRC-checked structure beyond
// the fixed-size entries filling the section.
func ParseRST(section StoredSection) ([]RSTEvent, error) {
	body := SubSlice(section, 3, section.SectionLength())
	n := len(body) / 9
	out := make([]RSTEvent, 0, n)
	for i := 0; i < n; i++ {
		e := Indexed(body, 0, 9, i)
		out = append(out, RSTEvent{
			TransportStreamID: U16At(e, 0),
			OriginalNetworkID: U16At(e, 2),
			ServiceID:         U16At(e, 4),
			EventID:           U16At(e, 6),
			RunningStatus:     uint8(MaskShift(uint32(U8At(e, 8)), 0xE0, 5)),
		})
	}
	return out, nil
}
