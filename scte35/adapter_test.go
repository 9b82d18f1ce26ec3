package scte35

import (
	"encoding/hex"
	"testing"

	"github.com/zsiec/tsprobe/mpegts"
)

func TestInstallCallback_DecodesMatchingTableID(t *testing.T) {
	t.Parallel()
	data, err := hex.DecodeString(spliceVectors[0].hex)
	if err != nil {
		t.Fatal(err)
	}

	var got *SpliceInfoSection
	cb := InstallCallback(func(sis *SpliceInfoSection) { got = sis })
	cb(mpegts.StoredSection(data))

	if got == nil {
		t.Fatal("expected callback to receive a decoded section")
	}
	if got.SpliceCommand == nil {
		t.Fatal("expected a decoded splice command")
	}
}

func TestInstallCallback_IgnoresOtherTableIDs(t *testing.T) {
	t.Parallel()
	var called bool
	cb := InstallCallback(func(*SpliceInfoSection) { called = true })
	cb(mpegts.StoredSection([]byte{0x00, 0x01, 0x02}))
	if called {
		t.Fatal("expected callback to ignore a non-0xFC table_id")
	}
}
