package mpegts

import (
	"fmt"
	"sync"
)

// ISO/IEC 13818-1 PSI table_id values.
const (
	TableIDPAT  uint8 = 0x00
	TableIDCAT  uint8 = 0x01
	TableIDPMT  uint8 = 0x02
	TableIDTSDT uint8 = 0x03
)

const pidPAT = 0x0000

// A subset of ISO/IEC 13818-1 Table 2-34 stream_type assignments, enough
// to route elementary streams to a PESAssembler callback and decide
// whether an AudioFrameExtractor applies.
const (
	StreamTypeMPEG1Audio uint8 = 0x03
	StreamTypeMPEG2Audio uint8 = 0x04
	StreamTypeAACADTS    uint8 = 0x0F
	StreamTypeAACLATM    uint8 = 0x11
	StreamTypeH264       uint8 = 0x1B
	StreamTypeH265       uint8 = 0x24
	StreamTypeSCTE35     uint8 = 0x86
)

// IsMPEGAudio reports whether streamType is an ISO/IEC 11172-3 or
// 13818-3 audio elementary stream, the only kind AudioFrameExtractor
// understands.
func IsMPEGAudio(streamType uint8) bool {
	return streamType == StreamTypeMPEG1Audio || streamType == StreamTypeMPEG2Audio
}

// ParsePAT decodes a program_association_section from a StoredSection's
// bytes, verifying its CRC-32. program_number == 0 entries (the network
// PID) are omitted from Programs.
func ParsePAT(section StoredSection) (*PATData, error) {
	if err := verifyCRC32(section); err != nil {
		return nil, fmt.Errorf("mpegts: PAT: %w", err)
	}
	sectionLength := section.SectionLength()
	if 3+sectionLength > len(section) {
		return nil, fmt.Errorf("mpegts: PAT: section_length %d exceeds buffer", sectionLength)
	}

	pat := &PATData{TransportStreamID: section.TableIDExtension()}

	entryCount := (sectionLength - 9) / 4
	for i := 0; i < entryCount; i++ {
		entry := Indexed(section, 8, 4, i)
		if len(entry) < 4 {
			break
		}
		programNumber := U16At(entry, 0)
		programMapID := uint16(MaskShift(uint32(U16At(entry, 2)), 0x1FFF, 0))
		if programNumber == 0 {
			continue // network PID entry, not a program
		}
		pat.Programs = append(pat.Programs, PATProgram{
			ProgramNumber: programNumber,
			ProgramMapID:  programMapID,
		})
	}
	return pat, nil
}

// ParsePMT decodes a TS_program_map_section from a StoredSection's
// bytes, verifying its CRC-32.
func ParsePMT(section StoredSection) (*PMTData, error) {
	if err := verifyCRC32(section); err != nil {
		return nil, fmt.Errorf("mpegts: PMT: %w", err)
	}
	sectionLength := section.SectionLength()
	if 3+sectionLength > len(section) {
		return nil, fmt.Errorf("mpegts: PMT: section_length %d exceeds buffer", sectionLength)
	}

	pmt := &PMTData{
		ProgramNumber: section.TableIDExtension(),
		PCRPID:        uint16(MaskShift(uint32(U16At(section, 8)), 0x1FFF, 0)),
	}

	programInfoLength := int(MaskShift(uint32(U16At(section, 10)), 0x0FFF, 0))
	pmt.ProgramDescriptors = SubSlice(section, 12, programInfoLength)

	offset := 12 + programInfoLength
	end := 3 + sectionLength - 4 // exclude trailing CRC
	for offset+5 <= end {
		streamType := U8At(section, offset)
		elementaryPID := uint16(MaskShift(uint32(U16At(section, offset+1)), 0x1FFF, 0))
		esInfoLength := int(MaskShift(uint32(U16At(section, offset+3)), 0x0FFF, 0))
		size := esInfoLength + 5
		if offset+size > end {
			break
		}
		pmt.ElementaryStreams = append(pmt.ElementaryStreams, PMTElementaryStream{
			StreamType:    streamType,
			ElementaryPID: elementaryPID,
			Descriptors:   SubSlice(section, offset+5, esInfoLength),
		})
		offset += size
	}
	return pmt, nil
}

// ProgramMap tracks which PIDs currently carry a PMT, learned from a
// SectionStore's PAT entries. It is a small convenience for callers
// wiring up per-program elementary stream bindings once PAT is known;
// the CORE assembler itself does not need to distinguish PMT PIDs from
// any other PSI PID.
//
// Update is expected to run on a single ingestion goroutine; the read
// methods (IsPMTPID, ProgramNumber, PMTPIDs) take a read lock so an
// inspection goroutine may poll the map concurrently with ingestion,
// matching the section store's own reader/writer split.
type ProgramMap struct {
	mu      sync.RWMutex
	pmtPIDs map[uint16]uint16 // PMT PID -> program_number
}

// NewProgramMap returns an empty ProgramMap.
func NewProgramMap() *ProgramMap {
	return &ProgramMap{pmtPIDs: make(map[uint16]uint16)}
}

// Update refreshes the map from a decoded PAT.
func (pm *ProgramMap) Update(pat *PATData) {
	next := make(map[uint16]uint16, len(pat.Programs))
	for _, p := range pat.Programs {
		next[p.ProgramMapID] = p.ProgramNumber
	}
	pm.mu.Lock()
	pm.pmtPIDs = next
	pm.mu.Unlock()
}

// IsPMTPID reports whether pid is a known PMT PID.
func (pm *ProgramMap) IsPMTPID(pid uint16) bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	_, ok := pm.pmtPIDs[pid]
	return ok
}

// ProgramNumber returns the program_number carried on a known PMT PID.
func (pm *ProgramMap) ProgramNumber(pmtPID uint16) (uint16, bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	num, ok := pm.pmtPIDs[pmtPID]
	return num, ok
}

// PMTPIDs returns the currently known PMT PIDs.
func (pm *ProgramMap) PMTPIDs() []uint16 {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	pids := make([]uint16, 0, len(pm.pmtPIDs))
	for pid := range pm.pmtPIDs {
		pids = append(pids, pid)
	}
	return pids
}
