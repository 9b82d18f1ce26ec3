package scte35

import (
	"encoding/hex"
	"testing"
)

func BenchmarkDecodeBytes(b *testing.B) {
	var data []byte
	for _, v := range spliceVectors {
		if v.name == "SpliceInsertOut" {
			data, _ = hex.DecodeString(v.hex)
			break
		}
	}
	b.SetBytes(int64(len(data)))
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := DecodeBytes(data); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSpliceInfoSectionEncode(b *testing.B) {
	pts := uint64(900000)
	sis := SpliceInfoSection{
		SAPType: 3, Tier: 0xFFF,
		SpliceCommand: &TimeSignal{SpliceTime: SpliceTime{PTSTime: &pts}},
		SpliceDescriptors: SpliceDescriptors{&SegmentationDescriptor{
			SegmentationEventID: 1,
			SegmentationTypeID:  SegmentationTypeProviderAdStart,
			SegmentNum:          1,
			SegmentsExpected:    1,
		}},
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := sis.Encode(); err != nil {
			b.Fatal(err)
		}
	}
}
