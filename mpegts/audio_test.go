package mpegts

import "testing"

// mp1Layer3Header is a valid MPEG-1 Layer III header: bitrate_index=5
// (64kbps), sampling_rate_index=0 (44100Hz), no padding.
var mp1Layer3Header = []byte{0xFF, 0xFB, 0x50, 0x00}

const mp1Layer3FrameLength = 208 // (144*64000/44100)*1

func buildAudioFrame(fill byte) []byte {
	frame := make([]byte, mp1Layer3FrameLength)
	copy(frame, mp1Layer3Header)
	for i := 4; i < len(frame); i++ {
		frame[i] = fill
	}
	return frame
}

func TestDecodeAudioHeader_Valid(t *testing.T) {
	t.Parallel()
	h, ok := decodeAudioHeader(mp1Layer3Header)
	if !ok {
		t.Fatal("expected valid header")
	}
	if h.bitrate != 64000 || h.samplesPerSecond != 44100 {
		t.Errorf("unexpected header: %+v", h)
	}
	if got := audioFrameLength(h); got != mp1Layer3FrameLength {
		t.Errorf("audioFrameLength = %d, want %d", got, mp1Layer3FrameLength)
	}
}

func TestDecodeAudioHeader_RejectsBadSync(t *testing.T) {
	t.Parallel()
	if _, ok := decodeAudioHeader([]byte{0xFF, 0x00, 0x00, 0x00}); ok {
		t.Fatal("expected invalid header for bad sync")
	}
}

func TestAudioFrameExtractor_SingleFramePerPES(t *testing.T) {
	t.Parallel()
	frame := buildAudioFrame(0xAA)

	ext := NewAudioFrameExtractor()
	var got []AudioFrame
	ext.AddFrameCallback(func(f AudioFrame) { got = append(got, f) })

	pes := &PESData{
		Header: &PESHeader{OptionalHeader: &PESOptionalHeader{PTS: &ClockReference{Base: 90000}}},
		Data:   frame,
	}
	ext.Consume(pes)

	if len(got) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(got))
	}
	if got[0].PTS != 90000 {
		t.Errorf("PTS = %d, want 90000", got[0].PTS)
	}
	if len(got[0].Data) != mp1Layer3FrameLength {
		t.Errorf("frame length = %d, want %d", len(got[0].Data), mp1Layer3FrameLength)
	}
}

func TestAudioFrameExtractor_TwoFramesInterpolatesPTS(t *testing.T) {
	t.Parallel()
	payload := append(buildAudioFrame(0x01), buildAudioFrame(0x02)...)

	ext := NewAudioFrameExtractor()
	var got []AudioFrame
	ext.AddFrameCallback(func(f AudioFrame) { got = append(got, f) })

	pes := &PESData{
		Header: &PESHeader{OptionalHeader: &PESOptionalHeader{PTS: &ClockReference{Base: 90000}}},
		Data:   payload,
	}
	ext.Consume(pes)

	if len(got) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(got))
	}
	if got[0].PTS != 90000 {
		t.Errorf("first frame PTS = %d, want 90000", got[0].PTS)
	}
	wantDuration := audioFrameDurationTicks(mp1Layer3FrameLength, 64000)
	if got[1].PTS != 90000+wantDuration {
		t.Errorf("second frame PTS = %d, want %d", got[1].PTS, 90000+wantDuration)
	}
}

func TestAudioFrameExtractor_FrameSplitAcrossPES(t *testing.T) {
	t.Parallel()
	frame := buildAudioFrame(0xCC)
	splitAt := mp1Layer3FrameLength - 20

	ext := NewAudioFrameExtractor()
	var got []AudioFrame
	ext.AddFrameCallback(func(f AudioFrame) { got = append(got, f) })

	first := &PESData{
		Header: &PESHeader{OptionalHeader: &PESOptionalHeader{PTS: &ClockReference{Base: 1000}}},
		Data:   frame[:splitAt],
	}
	ext.Consume(first)
	if len(got) != 0 {
		t.Fatalf("expected no frames emitted before completion, got %d", len(got))
	}

	// The continuation PES does not start with a fresh sync, so it must
	// be treated as the tail of the open frame, not scanned for a new one.
	second := &PESData{
		Header: &PESHeader{},
		Data:   frame[splitAt:],
	}
	ext.Consume(second)

	if len(got) != 1 {
		t.Fatalf("expected 1 completed frame, got %d", len(got))
	}
	if got[0].PTS != 1000 {
		t.Errorf("completed frame PTS = %d, want 1000", got[0].PTS)
	}
	if len(got[0].Data) != mp1Layer3FrameLength {
		t.Errorf("completed frame length = %d, want %d", len(got[0].Data), mp1Layer3FrameLength)
	}
}
