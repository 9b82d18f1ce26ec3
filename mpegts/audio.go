package mpegts

// AudioFrame is one emitted MPEG-1/2/2.5 audio frame with its
// interpolated presentation timestamp.
type AudioFrame struct {
	Data []byte
	PTS  int64
}

// samplesPerSecond[sr_index][version]. version: 0=2.5, 1=reserved, 2=v2, 3=v1.
var samplesPerSecond = [4][4]int{
	{11025, 0, 22050, 44100},
	{12000, 0, 24000, 48000},
	{8000, 0, 16000, 32000},
	{0, 0, 0, 0},
}

// bitrateTable[bitrate_index][version][layer], in bits per second.
// layer: 0=reserved, 1=III, 2=II, 3=I.
var bitrateTable = buildBitrateTable()

func buildBitrateTable() [16][4][4]int {
	var t [16][4][4]int
	mpeg1LayerIII := [16]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 0}
	mpeg1LayerII := [16]int{0, 32, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 384, 0}
	mpeg1LayerI := [16]int{0, 32, 64, 96, 128, 160, 192, 224, 256, 288, 320, 352, 384, 416, 448, 0}
	mpeg2LayerIII_II := [16]int{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, 0}
	mpeg2LayerI := [16]int{0, 32, 48, 56, 64, 80, 96, 112, 128, 144, 160, 176, 192, 224, 256, 0}

	for i := 0; i < 16; i++ {
		// version 3 = MPEG-1
		t[i][3][1] = mpeg1LayerIII[i] * 1000
		t[i][3][2] = mpeg1LayerII[i] * 1000
		t[i][3][3] = mpeg1LayerI[i] * 1000
		// version 2 = MPEG-2, version 0 = MPEG-2.5: same rates
		t[i][2][1] = mpeg2LayerIII_II[i] * 1000
		t[i][2][2] = mpeg2LayerIII_II[i] * 1000
		t[i][2][3] = mpeg2LayerI[i] * 1000
		t[i][0][1] = t[i][2][1]
		t[i][0][2] = t[i][2][2]
		t[i][0][3] = t[i][2][3]
	}
	return t
}

// coefficient[version][layer]: {_,72,144,12} for v2.5 and v2, {_,144,144,12} for v1.
var coefficient = [4][4]int{
	{0, 72, 144, 12},
	{0, 0, 0, 0},
	{0, 72, 144, 12},
	{0, 144, 144, 12},
}

// slotSize[layer]: {0,1,1,4}.
var slotSize = [4]int{0, 1, 1, 4}

type audioHeader struct {
	version           int
	layer             int
	bitrateIndex      int
	samplingRateIndex int
	padding           int
	bitrate           int
	samplesPerSecond  int
}

func decodeAudioHeader(data []byte) (audioHeader, bool) {
	if len(data) < 4 {
		return audioHeader{}, false
	}
	sync := uint16(data[0])<<3 | uint16(data[1])>>5
	if sync != 0x7FF {
		return audioHeader{}, false
	}
	version := int((data[1] >> 3) & 0x03)
	layer := int((data[1] >> 1) & 0x03)
	bitrateIndex := int((data[2] >> 4) & 0x0F)
	samplingRateIndex := int((data[2] >> 2) & 0x03)
	padding := int((data[2] >> 1) & 0x01)

	if bitrateIndex == 0x0F || samplingRateIndex == 0x03 || layer == 0 || version == 1 {
		return audioHeader{}, false
	}

	bitrate := bitrateTable[bitrateIndex][version][layer]
	sps := samplesPerSecond[samplingRateIndex][version]
	if bitrate == 0 || sps == 0 {
		return audioHeader{}, false
	}

	return audioHeader{
		version:           version,
		layer:             layer,
		bitrateIndex:      bitrateIndex,
		samplingRateIndex: samplingRateIndex,
		padding:           padding,
		bitrate:           bitrate,
		samplesPerSecond:  sps,
	}, true
}

func audioFrameLength(h audioHeader) int {
	coef := coefficient[h.version][h.layer]
	return (coef*h.bitrate/h.samplesPerSecond + h.padding) * slotSize[h.layer]
}

// audioFrameDurationTicks returns the 90kHz-tick duration of a frame
// with the given length and bitrate: 8*frame_length*90000/bitrate.
func audioFrameDurationTicks(frameLength, bitrate int) int64 {
	if bitrate == 0 {
		return 0
	}
	return int64(8*frameLength*90000) / int64(bitrate)
}

func isValidAudioSync(data []byte) bool {
	_, ok := decodeAudioHeader(data)
	return ok
}

// AudioFrameExtractor extracts MPEG-1/2/2.5 audio frames from
// successive PES payloads of one elementary stream, interpolating PTS
// across frame boundaries per ISO 11172-3/13818-3.
//
// It is meant to be registered as a PESAssembler callback via its
// Consume method, or driven directly by any source of PESData for the
// stream it tracks. Not safe for concurrent Consume calls.
type AudioFrameExtractor struct {
	carry     []byte
	openBytes int
	lastPTS   int64
	callbacks []func(AudioFrame)
}

// NewAudioFrameExtractor returns an empty AudioFrameExtractor.
func NewAudioFrameExtractor() *AudioFrameExtractor {
	return &AudioFrameExtractor{}
}

// AddFrameCallback registers sink to receive every emitted audio frame,
// in emission order.
func (a *AudioFrameExtractor) AddFrameCallback(sink func(AudioFrame)) {
	a.callbacks = append(a.callbacks, sink)
}

// LastPTS returns the PTS of the most recently emitted frame, or of the
// frame still being carried into the next PES packet when there is one.
func (a *AudioFrameExtractor) LastPTS() int64 { return a.lastPTS }

// Consume implements the PESAssembler callback signature: feed it every
// PESData reassembled for the audio PID this extractor tracks.
func (a *AudioFrameExtractor) Consume(pes *PESData) {
	data := pes.Data
	pts := a.lastPTS
	if pes.Header.OptionalHeader != nil && pes.Header.OptionalHeader.PTS != nil {
		pts = pes.Header.OptionalHeader.PTS.Base
	}

	if isValidAudioSync(data) {
		a.carry = nil
		a.openBytes = 0
	} else if a.openBytes > 0 {
		n := a.openBytes
		if n > len(data) {
			n = len(data)
		}
		a.carry = append(a.carry, data[:n]...)
		a.openBytes -= n
		data = data[n:]
		if a.openBytes == 0 {
			a.emit(a.carry, a.lastPTS)
			a.carry = nil
		} else {
			return
		}
	}

	i := 0
	first := true
	prevFrameLength, prevBitrate := 0, 0
	for i+4 <= len(data) {
		h, ok := decodeAudioHeader(data[i:])
		if !ok {
			i++
			continue
		}
		if !first {
			pts += audioFrameDurationTicks(prevFrameLength, prevBitrate)
		}
		first = false

		frameLength := audioFrameLength(h)
		if frameLength <= 0 {
			i++
			continue
		}
		if i+frameLength > len(data) {
			remainder := data[i:]
			a.carry = append([]byte(nil), remainder...)
			a.openBytes = frameLength - len(remainder)
			a.lastPTS = pts
			return
		}

		a.emit(data[i:i+frameLength], pts)
		a.lastPTS = pts
		prevFrameLength, prevBitrate = frameLength, h.bitrate
		i += frameLength
	}
}

func (a *AudioFrameExtractor) emit(frame []byte, pts int64) {
	f := AudioFrame{Data: append([]byte(nil), frame...), PTS: pts}
	for _, sink := range a.callbacks {
		sink(f)
	}
}
