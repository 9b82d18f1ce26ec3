package mpegts

import "sync"

// StoredSection is a fully reassembled, immutable PSI/SI section,
// including its trailing CRC-32.
type StoredSection []byte

// TableID returns the section's table_id.
func (s StoredSection) TableID() uint8 { return U8At(s, 0) }

// SectionSyntaxIndicator reports whether the section carries the
// extended (versioned) syntax.
func (s StoredSection) SectionSyntaxIndicator() bool { return Bit(s, 1, 7) }

// SectionLength returns the section_length field: the byte count that
// follows it, including the trailing CRC.
func (s StoredSection) SectionLength() int {
	return int(MaskShift(uint32(U16At(s, 1)), 0x0FFF, 0))
}

// TableIDExtension returns the table_id_extension field, or 0 if the
// section has no extended syntax.
func (s StoredSection) TableIDExtension() uint16 {
	if !s.SectionSyntaxIndicator() {
		return 0
	}
	return U16At(s, 3)
}

// VersionNumber returns the section's version_number, valid only when
// SectionSyntaxIndicator is true.
func (s StoredSection) VersionNumber() uint8 {
	return uint8(MaskShift(uint32(U8At(s, 5)), 0x3E, 1))
}

// CurrentNextIndicator reports whether this section describes the
// currently applicable table (as opposed to one taking effect later).
func (s StoredSection) CurrentNextIndicator() bool { return Bit(s, 5, 0) }

// SectionNumber returns the section_number field, or 0 if the section
// has no extended syntax.
func (s StoredSection) SectionNumber() uint8 {
	if !s.SectionSyntaxIndicator() {
		return 0
	}
	return U8At(s, 6)
}

// LastSectionNumber returns the last_section_number field.
func (s StoredSection) LastSectionNumber() uint8 { return U8At(s, 7) }

// Key returns the SectionKey this section is stored under.
func (s StoredSection) Key() SectionKey {
	return SectionKey{
		TableID:          s.TableID(),
		TableIDExtension: s.TableIDExtension(),
		SectionNumber:    s.SectionNumber(),
	}
}

// CRC32Valid reports whether the section's trailing 4 bytes are a
// correct MPEG-2 CRC-32 over the preceding bytes. This is advisory: the
// assembler stores sections regardless of the outcome.
func (s StoredSection) CRC32Valid() bool {
	if len(s) < 4 {
		return false
	}
	return ComputeCRC32(s) == 0
}

// SectionStore maps SectionKey to the latest StoredSection installed
// under that key. It is safe for concurrent use: readers take a shared
// lock, the single writer (a SectionAssembler ingesting packets) takes
// an exclusive lock only for the moment it installs a section.
type SectionStore struct {
	mu sync.RWMutex
	m  map[SectionKey]StoredSection
}

func newSectionStore() *SectionStore {
	return &SectionStore{m: make(map[SectionKey]StoredSection)}
}

// Get returns the section stored at key, if any.
func (s *SectionStore) Get(key SectionKey) (StoredSection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok
}

// Len returns the number of sections currently stored.
func (s *SectionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// Keys returns a snapshot of the currently stored keys.
func (s *SectionStore) Keys() []SectionKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]SectionKey, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	return keys
}

// View runs fn with a read lock held over the store, giving fn direct,
// copy-free access to the underlying map. fn must not retain the map
// beyond the call, and must not call any SectionStore method that takes
// the write lock.
func (s *SectionStore) View(fn func(m map[SectionKey]StoredSection)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.m)
}

func (s *SectionStore) install(key SectionKey, section StoredSection, cb InstallCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = section
	if cb != nil {
		cb(section)
	}
}

// InstallCallback is invoked synchronously, with the section store's
// write lock held, whenever a new section is installed. Implementations
// must not call back into the store from within.
type InstallCallback func(StoredSection)

type sectionBuffer struct {
	key    SectionKey
	target int
	data   []byte
}

// SectionAssembler reassembles PSI/SI sections from TS packet payloads
// on a single logical stream of packets (possibly spanning many PIDs),
// deduplicating by SectionKey and version_number, and keeps the latest
// version of every section in a SectionStore.
//
// A SectionAssembler is not safe for concurrent Consume calls; the
// SectionStore it exposes is safe for concurrent reads while Consume
// runs on another goroutine.
type SectionAssembler struct {
	store       *SectionStore
	open        map[uint16]*sectionBuffer
	onInstall   InstallCallback
	tableFilter map[uint8]struct{}
}

// SectionAssemblerOption configures a SectionAssembler at construction time.
type SectionAssemblerOption func(*SectionAssembler)

// WithTableIDFilter restricts reassembly to the given table_id values.
// Sections with any other table_id are skipped without being buffered,
// which matters on PIDs that interleave tables a caller doesn't care
// about (SDT and BAT commonly share PID 0x11, for instance). With no
// filter set, every table_id is reassembled.
func WithTableIDFilter(ids ...uint8) SectionAssemblerOption {
	set := make(map[uint8]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return func(a *SectionAssembler) { a.tableFilter = set }
}

// NewSectionAssembler returns an empty SectionAssembler, configured by opts.
func NewSectionAssembler(opts ...SectionAssemblerOption) *SectionAssembler {
	a := &SectionAssembler{
		store: newSectionStore(),
		open:  make(map[uint16]*sectionBuffer),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *SectionAssembler) wantsTable(tableID uint8) bool {
	if a.tableFilter == nil {
		return true
	}
	_, ok := a.tableFilter[tableID]
	return ok
}

// Store returns the section store this assembler installs into.
func (a *SectionAssembler) Store() *SectionStore { return a.store }

// SetInstallCallback registers the sink notified when a new section is
// installed. Passing nil clears it; a nil callback is simply not called,
// modeling the source's "missing weak callback is a no-op" behavior.
func (a *SectionAssembler) SetInstallCallback(cb InstallCallback) {
	a.onInstall = cb
}

// Clear drops all in-flight section buffers and empties the store.
func (a *SectionAssembler) Clear() {
	a.open = make(map[uint16]*sectionBuffer)
	a.store.mu.Lock()
	a.store.m = make(map[SectionKey]StoredSection)
	a.store.mu.Unlock()
}

// Consume implements PacketSink: feed it every packet from a Parser
// binding covering the PIDs carrying PSI/SI you want reassembled.
func (a *SectionAssembler) Consume(pkt []byte) {
	p, err := parsePacket(pkt)
	if err != nil {
		return
	}
	if p.Header.TransportErrorIndicator || !p.Header.HasPayload {
		return
	}

	payload := p.Payload
	pid := p.Header.PID
	pusi := p.Header.PayloadUnitStartIndicator

	var pointerField int
	if pusi {
		if len(payload) == 0 {
			return
		}
		pointerField = int(payload[0])
		payload = payload[1:]
	}

	if buf, ok := a.open[pid]; ok && (!pusi || pointerField > 0) {
		avail := payload
		if pusi && pointerField < len(avail) {
			// Only the pointer_field bytes belong to the open section.
			avail = avail[:pointerField]
		}
		remaining := buf.target - len(buf.data)
		n := remaining
		if n > len(avail) {
			n = len(avail)
		}
		if n > 0 {
			buf.data = append(buf.data, avail[:n]...)
		}
		if len(buf.data) >= buf.target {
			a.install(buf)
			delete(a.open, pid)
		}
	}

	if !pusi {
		return
	}

	// Whatever is still open at this point (pointerField == 0 left the
	// block above untouched, or the pointer_field bytes didn't reach the
	// buffer's target) was not completed and a new section starts right
	// after: drop it so a later continuation packet can't append
	// unrelated bytes onto it and install a corrupt section.
	delete(a.open, pid)

	rest := payload
	if pointerField <= len(rest) {
		rest = rest[pointerField:]
	} else {
		rest = nil
	}
	a.scanNewSections(pid, rest)
}

func (a *SectionAssembler) scanNewSections(pid uint16, data []byte) {
	for len(data) >= 3 {
		tableID := data[0]
		if tableID == 0xFF {
			return
		}

		ssi := data[1]&0x80 != 0
		sectionLength := int(data[1]&0x0F)<<8 | int(data[2])
		total := 3 + sectionLength

		if !a.wantsTable(tableID) {
			if total > len(data) {
				return
			}
			data = data[total:]
			continue
		}

		key := SectionKey{TableID: tableID}
		if ssi {
			if len(data) < 8 {
				return
			}
			key.TableIDExtension = uint16(data[3])<<8 | uint16(data[4])
			key.SectionNumber = data[6]

			currentNext := data[5]&0x01 != 0
			if !currentNext {
				if total > len(data) {
					return
				}
				data = data[total:]
				continue
			}

			versionNumber := (data[5] >> 1) & 0x1F
			if existing, ok := a.store.Get(key); ok && existing.VersionNumber() == versionNumber {
				if total > len(data) {
					return
				}
				data = data[total:]
				continue
			}
		}

		buf := &sectionBuffer{key: key, target: total}
		n := total
		if n > len(data) {
			n = len(data)
		}
		buf.data = append(buf.data, data[:n]...)
		if len(buf.data) >= buf.target {
			a.install(buf)
			data = data[n:]
			continue
		}
		a.open[pid] = buf
		return
	}
}

func (a *SectionAssembler) install(buf *sectionBuffer) {
	section := StoredSection(append([]byte(nil), buf.data...))
	a.store.install(buf.key, section, a.onInstall)
}
