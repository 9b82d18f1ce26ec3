package scte35

import (
	"encoding/binary"

	"github.com/zsiec/tsprobe/mpegts"
)

const (
	// SegmentationDescriptorTag is the splice_descriptor_tag for segmentation_descriptor.
	SegmentationDescriptorTag uint32 = 0x02

	// CUEIdentifier is the CUEI ASCII identifier (0x43554549).
	CUEIdentifier uint32 = 0x43554549
)

// Segmentation type IDs, SCTE-35 Table 22.
const (
	SegmentationTypeNotIndicated              uint32 = 0x00
	SegmentationTypeContentIdentification     uint32 = 0x01
	SegmentationTypeProgramStart              uint32 = 0x10
	SegmentationTypeProgramEnd                uint32 = 0x11
	SegmentationTypeProgramEarlyTermination   uint32 = 0x12
	SegmentationTypeProgramBreakaway          uint32 = 0x13
	SegmentationTypeProgramResumption         uint32 = 0x14
	SegmentationTypeProgramRunoverPlanned     uint32 = 0x15
	SegmentationTypeProgramRunoverUnplanned   uint32 = 0x16
	SegmentationTypeProgramOverlapStart       uint32 = 0x17
	SegmentationTypeProgramBlackoutOverride   uint32 = 0x18
	SegmentationTypeProgramStartInProgress    uint32 = 0x19
	SegmentationTypeChapterStart              uint32 = 0x20
	SegmentationTypeChapterEnd                uint32 = 0x21
	SegmentationTypeBreakStart                uint32 = 0x22
	SegmentationTypeBreakEnd                  uint32 = 0x23
	SegmentationTypeOpeningCreditStart        uint32 = 0x24
	SegmentationTypeOpeningCreditEnd          uint32 = 0x25
	SegmentationTypeClosingCreditStart        uint32 = 0x26
	SegmentationTypeClosingCreditEnd          uint32 = 0x27
	SegmentationTypeProviderAdStart           uint32 = 0x30
	SegmentationTypeProviderAdEnd             uint32 = 0x31
	SegmentationTypeDistributorAdStart        uint32 = 0x32
	SegmentationTypeDistributorAdEnd          uint32 = 0x33
	SegmentationTypeProviderPOStart           uint32 = 0x34
	SegmentationTypeProviderPOEnd             uint32 = 0x35
	SegmentationTypeDistributorPOStart        uint32 = 0x36
	SegmentationTypeDistributorPOEnd          uint32 = 0x37
	SegmentationTypeProviderOverlayPOStart    uint32 = 0x38
	SegmentationTypeProviderOverlayPOEnd      uint32 = 0x39
	SegmentationTypeDistributorOverlayPOStart uint32 = 0x3a
	SegmentationTypeDistributorOverlayPOEnd   uint32 = 0x3b
	SegmentationTypeProviderPromoStart        uint32 = 0x3c
	SegmentationTypeProviderPromoEnd          uint32 = 0x3d
	SegmentationTypeDistributorPromoStart     uint32 = 0x3e
	SegmentationTypeDistributorPromoEnd       uint32 = 0x3f
	SegmentationTypeUnscheduledEventStart     uint32 = 0x40
	SegmentationTypeUnscheduledEventEnd       uint32 = 0x41
	SegmentationTypeAltConOppStart            uint32 = 0x42
	SegmentationTypeAltConOppEnd              uint32 = 0x43
	SegmentationTypeProviderAdBlockStart      uint32 = 0x44
	SegmentationTypeProviderAdBlockEnd        uint32 = 0x45
	SegmentationTypeDistributorAdBlockStart   uint32 = 0x46
	SegmentationTypeDistributorAdBlockEnd     uint32 = 0x47
	SegmentationTypeNetworkStart              uint32 = 0x50
	SegmentationTypeNetworkEnd                uint32 = 0x51
)

// segmentationTypeNames is a lookup table rather than a switch: it is a
// direct transcription of SCTE-35 Table 22 and reads like one.
var segmentationTypeNames = map[uint32]string{
	SegmentationTypeNotIndicated:              "Not Indicated",
	SegmentationTypeContentIdentification:     "Content Identification",
	SegmentationTypeProgramStart:               "Program Start",
	SegmentationTypeProgramEnd:                 "Program End",
	SegmentationTypeProgramEarlyTermination:    "Program Early Termination",
	SegmentationTypeProgramBreakaway:           "Program Breakaway",
	SegmentationTypeProgramResumption:          "Program Resumption",
	SegmentationTypeProgramRunoverPlanned:      "Program Runover Planned",
	SegmentationTypeProgramRunoverUnplanned:    "Program Runover Unplanned",
	SegmentationTypeProgramOverlapStart:        "Program Overlap Start",
	SegmentationTypeProgramBlackoutOverride:    "Program Blackout Override",
	SegmentationTypeProgramStartInProgress:     "Program Start - In Progress",
	SegmentationTypeChapterStart:               "Chapter Start",
	SegmentationTypeChapterEnd:                 "Chapter End",
	SegmentationTypeBreakStart:                 "Break Start",
	SegmentationTypeBreakEnd:                   "Break End",
	SegmentationTypeOpeningCreditStart:         "Opening Credit Start",
	SegmentationTypeOpeningCreditEnd:           "Opening Credit End",
	SegmentationTypeClosingCreditStart:         "Closing Credit Start",
	SegmentationTypeClosingCreditEnd:           "Closing Credit End",
	SegmentationTypeProviderAdStart:            "Provider Advertisement Start",
	SegmentationTypeProviderAdEnd:              "Provider Advertisement End",
	SegmentationTypeDistributorAdStart:         "Distributor Advertisement Start",
	SegmentationTypeDistributorAdEnd:           "Distributor Advertisement End",
	SegmentationTypeProviderPOStart:            "Provider Placement Opportunity Start",
	SegmentationTypeProviderPOEnd:              "Provider Placement Opportunity End",
	SegmentationTypeDistributorPOStart:         "Distributor Placement Opportunity Start",
	SegmentationTypeDistributorPOEnd:           "Distributor Placement Opportunity End",
	SegmentationTypeProviderOverlayPOStart:     "Provider Overlay Placement Opportunity Start",
	SegmentationTypeProviderOverlayPOEnd:       "Provider Overlay Placement Opportunity End",
	SegmentationTypeDistributorOverlayPOStart:  "Distributor Overlay Placement Opportunity Start",
	SegmentationTypeDistributorOverlayPOEnd:    "Distributor Overlay Placement Opportunity End",
	SegmentationTypeProviderPromoStart:         "Provider Promo Start",
	SegmentationTypeProviderPromoEnd:           "Provider Promo End",
	SegmentationTypeDistributorPromoStart:      "Distributor Promo Start",
	SegmentationTypeDistributorPromoEnd:        "Distributor Promo End",
	SegmentationTypeUnscheduledEventStart:      "Unscheduled Event Start",
	SegmentationTypeUnscheduledEventEnd:        "Unscheduled Event End",
	SegmentationTypeAltConOppStart:             "Alternate Content Opportunity Start",
	SegmentationTypeAltConOppEnd:               "Alternate Content Opportunity End",
	SegmentationTypeProviderAdBlockStart:       "Provider Ad Block Start",
	SegmentationTypeProviderAdBlockEnd:         "Provider Ad Block End",
	SegmentationTypeDistributorAdBlockStart:    "Distributor Ad Block Start",
	SegmentationTypeDistributorAdBlockEnd:      "Distributor Ad Block End",
	SegmentationTypeNetworkStart:                "Network Start",
	SegmentationTypeNetworkEnd:                  "Network End",
}

// SegmentationDescriptor carries segmentation information per SCTE-35 10.3.3.
type SegmentationDescriptor struct {
	SegmentationEventID  uint32
	SegmentationTypeID   uint32
	SegmentationDuration *uint64
	SegmentNum           uint32
	SegmentsExpected     uint32
}

var _ SpliceDescriptor = (*SegmentationDescriptor)(nil)

// Tag returns the splice_descriptor_tag.
func (sd *SegmentationDescriptor) Tag() uint32 { return SegmentationDescriptorTag }

// Name returns a human-readable name for the segmentation type, or
// "Unknown" for a type_id this table doesn't list.
func (sd *SegmentationDescriptor) Name() string {
	if name, ok := segmentationTypeNames[sd.SegmentationTypeID]; ok {
		return name
	}
	return "Unknown"
}

// decode reads a segmentation descriptor; a cancelled descriptor decodes
// only its segmentation_event_id and leaves every other field zero.
// Every field lands on a byte boundary except the fixed-size component
// pts_offset entries, present only when program_segmentation_flag is 0,
// which are skipped wholesale rather than decoded since nothing here
// consumes them.
func (sd *SegmentationDescriptor) decode(data []byte) error {
	sd.SegmentationEventID = mpegts.U32At(data, 6)
	if mpegts.U8At(data, 10)&0x80 != 0 { // segmentation_event_cancel_indicator
		return nil
	}

	pos := 11
	flags := mpegts.U8At(data, pos)
	programSegmentationFlag := flags&0x80 != 0
	durationFlag := flags&0x40 != 0
	pos++

	if !programSegmentationFlag {
		componentCount := int(mpegts.U8At(data, pos))
		pos++
		pos += componentCount * 6 // component_tag(1) + reserved+pts_offset(5)
	}

	if durationFlag {
		dur := mpegts.U40At(data, pos)
		sd.SegmentationDuration = &dur
		pos += 5
	}

	pos++ // segmentation_upid_type
	upidLength := int(mpegts.U8At(data, pos))
	pos += 1 + upidLength

	sd.SegmentationTypeID = uint32(mpegts.U8At(data, pos))
	sd.SegmentNum = uint32(mpegts.U8At(data, pos+1))
	sd.SegmentsExpected = uint32(mpegts.U8At(data, pos+2))
	return nil
}

// encode always emits an uncancelled, program-level descriptor with no
// UPID, mirroring decode's read side of that same subset.
func (sd *SegmentationDescriptor) encode() ([]byte, error) {
	length := sd.descriptorLength()
	buf := make([]byte, 0, length+2)
	buf = append(buf, byte(SegmentationDescriptorTag), byte(length))

	var word [4]byte
	binary.BigEndian.PutUint32(word[:], CUEIdentifier)
	buf = append(buf, word[:]...)
	binary.BigEndian.PutUint32(word[:], sd.SegmentationEventID)
	buf = append(buf, word[:]...)

	buf = append(buf, 0x7F) // cancel_indicator=0, compliance_indicator=1, reserved

	flags := byte(0xBF) // program_segmentation_flag=1, delivery_not_restricted_flag=1, reserved
	if sd.SegmentationDuration != nil {
		flags |= 0x40
	}
	buf = append(buf, flags)

	if sd.SegmentationDuration != nil {
		dur := *sd.SegmentationDuration
		buf = append(buf, byte(dur>>32), byte(dur>>24), byte(dur>>16), byte(dur>>8), byte(dur))
	}

	buf = append(buf, 0x00, 0x00) // segmentation_upid_type, segmentation_upid_length: Not Used
	return append(buf, byte(sd.SegmentationTypeID), byte(sd.SegmentNum), byte(sd.SegmentsExpected)), nil
}

func (sd *SegmentationDescriptor) descriptorLength() int {
	length := 4 + 4 + 1 + 1 // identifier + event_id + cancel/compliance byte + flags byte
	if sd.SegmentationDuration != nil {
		length += 5
	}
	length += 2 // upid_type + upid_length
	return length + 3 // type_id + segment_num + segments_expected
}
