package mpegts

import "testing"

func TestDescriptorLoop_IteratesAll(t *testing.T) {
	t.Parallel()
	data := []byte{
		0x40, 0x02, 'A', 'B',
		0x41, 0x03, 0x00, 0x01, 0x02,
	}
	var tags []uint8
	DescriptorLoop(data, func(d Descriptor) bool {
		tags = append(tags, d.Tag)
		return true
	})
	if len(tags) != 2 || tags[0] != 0x40 || tags[1] != 0x41 {
		t.Fatalf("unexpected tags: %v", tags)
	}
}

func TestDescriptorLoop_StopsOnTruncatedTrailer(t *testing.T) {
	t.Parallel()
	data := []byte{0x40, 0x05, 'A', 'B'} // declares length 5, only 2 bytes follow
	descs := Descriptors(data)
	if len(descs) != 0 {
		t.Fatalf("expected 0 descriptors from truncated trailer, got %d", len(descs))
	}
}

func TestDescriptorLoop_CallbackCanStopEarly(t *testing.T) {
	t.Parallel()
	data := []byte{0x40, 0x00, 0x41, 0x00, 0x42, 0x00}
	var seen int
	DescriptorLoop(data, func(d Descriptor) bool {
		seen++
		return d.Tag != 0x41
	})
	if seen != 2 {
		t.Fatalf("expected loop to stop after second descriptor, saw %d", seen)
	}
}

func TestDecodeServiceListDescriptor(t *testing.T) {
	t.Parallel()
	body := []byte{0x00, 0x01, 0x01, 0x00, 0x02, 0x02}
	entries := DecodeServiceListDescriptor(body)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ServiceID != 1 || entries[0].ServiceType != 1 {
		t.Errorf("unexpected entry 0: %+v", entries[0])
	}
	if entries[1].ServiceID != 2 || entries[1].ServiceType != 2 {
		t.Errorf("unexpected entry 1: %+v", entries[1])
	}
}

func TestDecodeStreamIdentifierDescriptor(t *testing.T) {
	t.Parallel()
	got := DecodeStreamIdentifierDescriptor([]byte{0x07})
	if got.ComponentTag != 7 {
		t.Errorf("ComponentTag = %d, want 7", got.ComponentTag)
	}
}

func TestDecodeServiceDescriptor(t *testing.T) {
	t.Parallel()
	dec := NewStringDecoder(DefaultStringDecoderConfig())
	body := []byte{0x01, 3, 'F', 'o', 'o', 3, 'B', 'a', 'r'}
	svc := DecodeServiceDescriptor(body, dec)
	if svc.ServiceType != 1 || svc.ServiceProviderName != "Foo" || svc.ServiceName != "Bar" {
		t.Errorf("unexpected service descriptor: %+v", svc)
	}
}

func TestDecodeShortEventDescriptor(t *testing.T) {
	t.Parallel()
	dec := NewStringDecoder(DefaultStringDecoderConfig())
	body := append([]byte("eng"), 5, 'H', 'e', 'l', 'l', 'o', 5, 'W', 'o', 'r', 'l', 'd')
	sed := DecodeShortEventDescriptor(body, dec)
	if sed.LanguageCode != "eng" || sed.EventName != "Hello" || sed.Text != "World" {
		t.Errorf("unexpected short event descriptor: %+v", sed)
	}
}

func TestDecodeParentalRatingDescriptor(t *testing.T) {
	t.Parallel()
	body := append([]byte("gbr"), 4)
	entries := DecodeParentalRatingDescriptor(body)
	if len(entries) != 1 || entries[0].CountryCode != "gbr" || entries[0].Rating != 4 {
		t.Fatalf("unexpected parental rating entries: %+v", entries)
	}
}

func TestDecodePrivateDataSpecifierDescriptor(t *testing.T) {
	t.Parallel()
	body := []byte{0x00, 0x00, 0x00, 0x2A}
	got := DecodePrivateDataSpecifierDescriptor(body)
	if got.PrivateDataSpecifier != 0x2A {
		t.Errorf("PrivateDataSpecifier = 0x%X, want 0x2A", got.PrivateDataSpecifier)
	}
}
