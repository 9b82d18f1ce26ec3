package mpegts

import "fmt"

// stream IDs that carry a thin PES header with no optional fields:
// program_stream_map, padding_stream, private_stream_2,
// ECM/EMM streams, program_stream_directory, DSMCC_stream, ITU-T H.222.1
// type E streams.
var thinHeaderStreamIDs = map[uint8]bool{
	0xBC: true, 0xBE: true, 0xBF: true,
	0xF0: true, 0xF1: true, 0xF2: true, 0xF8: true, 0xFF: true,
}

func hasOptionalHeader(streamID uint8) bool {
	return !thinHeaderStreamIDs[streamID]
}

// isPESPayload reports whether data begins with the PES
// packet_start_code_prefix 0x000001.
func isPESPayload(data []byte) bool {
	return len(data) >= 4 && data[0] == 0x00 && data[1] == 0x00 && data[2] == 0x01
}

// parsePES decodes a PES packet: the fixed header, the optional header
// (PTS/DTS) when the stream ID carries one, and the elementary stream
// payload that follows.
func parsePES(payload []byte) (*PESData, error) {
	if len(payload) < 6 {
		return nil, fmt.Errorf("mpegts: PES packet shorter than fixed header")
	}
	if payload[0] != 0x00 || payload[1] != 0x00 || payload[2] != 0x01 {
		return nil, fmt.Errorf("mpegts: bad PES start code")
	}

	streamID := payload[3]
	packetLength := int(U16At(payload, 4))
	header := &PESHeader{StreamID: streamID, PacketLength: packetLength}

	dataStart := 6
	if hasOptionalHeader(streamID) {
		if len(payload) < 9 {
			return nil, fmt.Errorf("mpegts: PES optional header truncated")
		}
		ptsDTSFlags := (payload[7] >> 6) & 0x03
		headerDataLength := int(payload[8])
		optStart := 9
		optEnd := optStart + headerDataLength
		if optEnd > len(payload) {
			return nil, fmt.Errorf("mpegts: PES header_data_length exceeds packet")
		}

		opt := &PESOptionalHeader{}
		cursor := optStart
		if ptsDTSFlags == 0x2 || ptsDTSFlags == 0x3 {
			if cursor+5 > len(payload) {
				return nil, fmt.Errorf("mpegts: PES PTS truncated")
			}
			opt.PTS = parsePTSOrDTS(payload[cursor : cursor+5])
			cursor += 5
		}
		if ptsDTSFlags == 0x3 {
			if cursor+5 > len(payload) {
				return nil, fmt.Errorf("mpegts: PES DTS truncated")
			}
			opt.DTS = parsePTSOrDTS(payload[cursor : cursor+5])
			cursor += 5
		}
		header.OptionalHeader = opt
		dataStart = optEnd
	}

	var data []byte
	if dataStart < len(payload) {
		data = payload[dataStart:]
	}
	return &PESData{Header: header, Data: data}, nil
}

// parsePTSOrDTS decodes the 5-byte, marker-bit-scattered 33-bit
// timestamp layout shared by PTS and DTS.
func parsePTSOrDTS(bs []byte) *ClockReference {
	if len(bs) < 5 {
		return nil
	}
	base := int64(bs[0]>>1&0x07)<<30 |
		int64(bs[1])<<22 |
		int64(bs[2]>>1&0x7F)<<15 |
		int64(bs[3])<<7 |
		int64(bs[4]>>1&0x7F)
	return &ClockReference{Base: base}
}

// pesBuffer is a per-PID in-flight PES reassembly buffer.
type pesBuffer struct {
	data []byte
}

// PESAssembler reassembles PES packets from TS payload bytes and
// delivers each complete one to every callback registered for its PID,
// in registration order.
//
// A PESAssembler is not safe for concurrent Consume calls.
type PESAssembler struct {
	open      map[uint16]*pesBuffer
	callbacks map[uint16][]func(*PESData)
}

// NewPESAssembler returns an empty PESAssembler.
func NewPESAssembler() *PESAssembler {
	return &PESAssembler{
		open:      make(map[uint16]*pesBuffer),
		callbacks: make(map[uint16][]func(*PESData)),
	}
}

// AddPESCallback registers sink to receive every PES packet reassembled
// on pid. Multiple sinks per PID are invoked in registration order.
func (a *PESAssembler) AddPESCallback(pid uint16, sink func(*PESData)) {
	a.callbacks[pid] = append(a.callbacks[pid], sink)
}

// ClearCallbacks removes every registered callback.
func (a *PESAssembler) ClearCallbacks() {
	a.callbacks = make(map[uint16][]func(*PESData))
}

// Consume implements PacketSink: feed it every packet from a Parser
// binding covering the PIDs carrying PES you want reassembled.
func (a *PESAssembler) Consume(pkt []byte) {
	p, err := parsePacket(pkt)
	if err != nil {
		return
	}
	if p.Header.TransportErrorIndicator || !p.Header.HasPayload {
		return
	}

	pid := p.Header.PID
	payload := p.Payload

	if p.Header.PayloadUnitStartIndicator {
		a.flush(pid)
		reserve := 16384
		if isPESPayload(payload) {
			if declared := int(U16At(payload, 4)); declared != 0 {
				reserve = declared
			}
		}
		buf, ok := a.open[pid]
		if !ok {
			buf = &pesBuffer{}
			a.open[pid] = buf
		}
		buf.data = make([]byte, 0, reserve)
	}

	buf, ok := a.open[pid]
	if !ok {
		return
	}
	buf.data = append(buf.data, payload...)
}

// Flush emits any buffered PES packet on pid without waiting for the
// next payload_unit_start_indicator, for use at end of stream.
func (a *PESAssembler) Flush(pid uint16) {
	a.flush(pid)
}

func (a *PESAssembler) flush(pid uint16) {
	buf, ok := a.open[pid]
	if !ok || len(buf.data) == 0 {
		return
	}
	if !isPESPayload(buf.data) {
		delete(a.open, pid)
		return
	}
	pes, err := parsePES(buf.data)
	delete(a.open, pid)
	if err != nil {
		return
	}
	for _, sink := range a.callbacks[pid] {
		sink(pes)
	}
}
