package mpegts

import (
	"encoding/binary"
	"testing"
)

func withCRC(data []byte) []byte {
	binary.BigEndian.PutUint32(data[len(data)-4:], ComputeCRC32(data[:len(data)-4]))
	return data
}

func buildNIT(networkID uint16, tsID, onID uint16) []byte {
	// section_length = 19: network_id(2)+byte5..7(3)+netDescLenField(2)+
	// tsLoopLenField(2)+one 6-byte entry+CRC(4)
	sectionLength := 19
	data := make([]byte, 3+sectionLength)
	data[0] = TableIDNITActual
	data[1] = 0xB0 | byte(sectionLength>>8)&0x0F
	data[2] = byte(sectionLength)
	data[3] = byte(networkID >> 8)
	data[4] = byte(networkID)
	data[5] = 0xC1
	data[6] = 0x00
	data[7] = 0x00
	data[8] = 0xF0 // network_descriptors_length = 0
	data[9] = 0x00
	data[10] = 0xF0 // transport_stream_loop_length = 6
	data[11] = 0x06
	data[12] = byte(tsID >> 8)
	data[13] = byte(tsID)
	data[14] = byte(onID >> 8)
	data[15] = byte(onID)
	data[16] = 0xF0 // transport_descriptors_length = 0
	data[17] = 0x00
	return withCRC(data)
}

func TestParseNIT(t *testing.T) {
	t.Parallel()
	data := buildNIT(1, 100, 200)
	nit, err := ParseNIT(StoredSection(data))
	if err != nil {
		t.Fatal(err)
	}
	if nit.NetworkID != 1 {
		t.Errorf("NetworkID = %d, want 1", nit.NetworkID)
	}
	if len(nit.TransportStreams) != 1 {
		t.Fatalf("expected 1 transport stream, got %d", len(nit.TransportStreams))
	}
	if nit.TransportStreams[0].TransportStreamID != 100 || nit.TransportStreams[0].OriginalNetworkID != 200 {
		t.Errorf("unexpected transport stream entry: %+v", nit.TransportStreams[0])
	}
}

func buildSDT(tsID, serviceID, onID uint16, runningStatus uint8) []byte {
	sectionLength := 17
	data := make([]byte, 3+sectionLength)
	data[0] = TableIDSDTActual
	data[1] = 0xB0 | byte(sectionLength>>8)&0x0F
	data[2] = byte(sectionLength)
	data[3] = byte(tsID >> 8)
	data[4] = byte(tsID)
	data[5] = 0xC1
	data[6] = 0x00
	data[7] = 0x00
	data[8] = byte(onID >> 8)
	data[9] = byte(onID)
	data[10] = 0xFF // reserved_future_use
	data[11] = byte(serviceID >> 8)
	data[12] = byte(serviceID)
	data[13] = 0x00 // eit flags off
	data[14] = runningStatus << 5
	data[15] = 0x00 // descriptors_loop_length low byte = 0
	return withCRC(data)
}

func TestParseSDT(t *testing.T) {
	t.Parallel()
	data := buildSDT(1, 5, 9, 4)
	sdt, err := ParseSDT(StoredSection(data))
	if err != nil {
		t.Fatal(err)
	}
	if sdt.TransportStreamID != 1 || sdt.OriginalNetworkID != 9 {
		t.Errorf("unexpected SDT header: %+v", sdt)
	}
	if len(sdt.Services) != 1 {
		t.Fatalf("expected 1 service, got %d", len(sdt.Services))
	}
	svc := sdt.Services[0]
	if svc.ServiceID != 5 || svc.RunningStatus != 4 {
		t.Errorf("unexpected service entry: %+v", svc)
	}
}

func buildEIT(serviceID, tsID, onID, eventID uint16) []byte {
	sectionLength := 27
	data := make([]byte, 3+sectionLength)
	data[0] = TableIDEITPF
	data[1] = 0xB0 | byte(sectionLength>>8)&0x0F
	data[2] = byte(sectionLength)
	data[3] = byte(serviceID >> 8)
	data[4] = byte(serviceID)
	data[5] = 0xC1
	data[6] = 0x00
	data[7] = 0x00
	data[8] = byte(tsID >> 8)
	data[9] = byte(tsID)
	data[10] = byte(onID >> 8)
	data[11] = byte(onID)
	data[12] = 0x00 // segment_last_section_number
	data[13] = TableIDEITPF
	// event loop starts at offset 14
	data[14] = byte(eventID >> 8)
	data[15] = byte(eventID)
	// start_time: MJD 40587 (1970-01-01), 01:30:00
	binary.BigEndian.PutUint16(data[16:18], 40587)
	data[18], data[19], data[20] = 0x01, 0x30, 0x00
	// duration: 00:15:00
	data[21], data[22], data[23] = 0x00, 0x15, 0x00
	data[24] = 4 << 5 // running_status=4, free_ca=0
	data[25] = 0x00   // descriptors_loop_length
	return withCRC(data)
}

func TestParseEIT(t *testing.T) {
	t.Parallel()
	data := buildEIT(1, 2, 3, 7)
	eit, err := ParseEIT(StoredSection(data))
	if err != nil {
		t.Fatal(err)
	}
	if eit.ServiceID != 1 || eit.TransportStreamID != 2 || eit.OriginalNetworkID != 3 {
		t.Errorf("unexpected EIT header: %+v", eit)
	}
	if len(eit.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(eit.Events))
	}
	ev := eit.Events[0]
	if ev.EventID != 7 {
		t.Errorf("EventID = %d, want 7", ev.EventID)
	}
	if ev.RunningStatus != 4 {
		t.Errorf("RunningStatus = %d, want 4", ev.RunningStatus)
	}
	wantDuration := 15 * 60
	if int(ev.Duration.Seconds()) != wantDuration {
		t.Errorf("Duration = %v, want 15m", ev.Duration)
	}
}

func TestParseTDT(t *testing.T) {
	t.Parallel()
	data := make([]byte, 8)
	data[0] = TableIDTDT
	data[1] = 0x00
	data[2] = 0x05 // section_length = 5
	binary.BigEndian.PutUint16(data[3:5], 40587)
	data[5], data[6], data[7] = 0x00, 0x00, 0x00

	tdt, err := ParseTDT(StoredSection(data))
	if err != nil {
		t.Fatal(err)
	}
	if tdt.UTCTime.Year() != 1970 {
		t.Errorf("TDT year = %d, want 1970", tdt.UTCTime.Year())
	}
}

func TestParseRST(t *testing.T) {
	t.Parallel()
	sectionLength := 9
	data := make([]byte, 3+sectionLength)
	data[0] = TableIDRST
	data[1] = byte(sectionLength >> 8)
	data[2] = byte(sectionLength)
	binary.BigEndian.PutUint16(data[3:5], 10)  // transport_stream_id
	binary.BigEndian.PutUint16(data[5:7], 20)  // original_network_id
	binary.BigEndian.PutUint16(data[7:9], 30)  // service_id
	binary.BigEndian.PutUint16(data[9:11], 40) // event_id
	data[11] = 2 << 5                          // running_status

	events, err := ParseRST(StoredSection(data))
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].ServiceID != 30 || events[0].RunningStatus != 2 {
		t.Errorf("unexpected RST event: %+v", events[0])
	}
}
