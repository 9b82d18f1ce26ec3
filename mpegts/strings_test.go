package mpegts

import "testing"

func TestStringDecoder_DefaultCodepageASCII(t *testing.T) {
	t.Parallel()
	dec := NewStringDecoder(DefaultStringDecoderConfig())
	got := dec.Decode([]byte("Hello"))
	if got != "Hello" {
		t.Errorf("Decode = %q, want %q", got, "Hello")
	}
}

func TestStringDecoder_ISO8859Selector(t *testing.T) {
	t.Parallel()
	dec := NewStringDecoder(DefaultStringDecoderConfig())
	data := append([]byte{0x05}, []byte("Berlin")...)
	got := dec.Decode(data)
	if got != "Berlin" {
		t.Errorf("Decode = %q, want %q", got, "Berlin")
	}
}

func TestStringDecoder_ControlCodes(t *testing.T) {
	t.Parallel()
	cfg := StringDecoderConfig{EmphasisOn: "<em>", EmphasisOff: "</em>", LineBreak: "|"}
	dec := NewStringDecoder(cfg)
	data := []byte{'a', 0x86, 'b', 0x87, 0x8A, 'c'}
	got := dec.Decode(data)
	want := "a<em>b</em>|c"
	if got != want {
		t.Errorf("Decode = %q, want %q", got, want)
	}
}

func TestStringDecoder_UTF8Passthrough(t *testing.T) {
	t.Parallel()
	dec := NewStringDecoder(DefaultStringDecoderConfig())
	data := append([]byte{0x15}, []byte("héllo")...)
	got := dec.Decode(data)
	if got != "héllo" {
		t.Errorf("Decode = %q, want %q", got, "héllo")
	}
}

func TestStringDecoder_ReservedSelector(t *testing.T) {
	t.Parallel()
	dec := NewStringDecoder(DefaultStringDecoderConfig())
	got := dec.Decode([]byte{0x00, 'x'})
	if got != "[reserved codepage selector 0x00]" {
		t.Errorf("unexpected reserved-selector decode: %q", got)
	}
}

func TestStringDecoder_EmptyInput(t *testing.T) {
	t.Parallel()
	dec := NewStringDecoder(DefaultStringDecoderConfig())
	if got := dec.Decode(nil); got != "" {
		t.Errorf("Decode(nil) = %q, want empty", got)
	}
}
