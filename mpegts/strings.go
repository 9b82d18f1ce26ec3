package mpegts

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// StringDecoderConfig holds the markup strings substituted for the three
// ETSI EN 300 468 Annex A control codes. This replaces the source
// implementation's process-wide mutable globals for the same purpose:
// every StringDecoder carries its own configuration.
type StringDecoderConfig struct {
	EmphasisOn  string
	EmphasisOff string
	LineBreak   string
}

// DefaultStringDecoderConfig drops the two emphasis codes and renders the
// line-break code as a newline.
func DefaultStringDecoderConfig() StringDecoderConfig {
	return StringDecoderConfig{
		EmphasisOn:  "",
		EmphasisOff: "",
		LineBreak:   "\n",
	}
}

// StringDecoder decodes ETSI EN 300 468 Annex A character fields to
// UTF-8, using its own StringDecoderConfig for markup substitution.
type StringDecoder struct {
	cfg StringDecoderConfig
}

// NewStringDecoder returns a StringDecoder using cfg for markup codes.
func NewStringDecoder(cfg StringDecoderConfig) *StringDecoder {
	return &StringDecoder{cfg: cfg}
}

// Decode interprets data per ETSI EN 300 468 Annex A: default codepage
// (cp6937-derived) when the first byte is >= 0x20, otherwise a selector
// byte chooses an ISO-8859 variant, a two-byte selector, or UTF-8
// passthrough. Unsupported codepages return a descriptive string rather
// than an error: nothing here ever fails the caller.
func (d *StringDecoder) Decode(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	if data[0] >= 0x20 {
		return d.decodeDefault(data)
	}

	selector := data[0]
	rest := data[1:]
	switch {
	case selector == 0x00:
		return "[reserved codepage selector 0x00]"
	case selector >= 0x01 && selector <= 0x0B:
		// ISO-8859-{2..11}, per the Annex A selector table. This
		// implementation treats every single-byte ISO-8859 variant as
		// Latin-1 for code points below 0x100, which is exact for the
		// ASCII range and a representative approximation elsewhere.
		return d.decodeLatin1(rest)
	case selector == 0x10:
		if len(rest) < 2 {
			return "[truncated two-byte codepage selector]"
		}
		return d.decodeLatin1(rest[2:])
	case selector == 0x15:
		return d.applyControlCodes(rest, func(b byte) (rune, bool) { return rune(b), false }, true)
	default:
		return fmt.Sprintf("[unsupported codepage selector 0x%02X]", selector)
	}
}

func (d *StringDecoder) decodeDefault(data []byte) string {
	return d.applyControlCodes(data, cp6937Rune, false)
}

func (d *StringDecoder) decodeLatin1(data []byte) string {
	return d.applyControlCodes(data, latin1Rune, false)
}

// latin1Rune decodes a single ISO-8859-1 byte via golang.org/x/text's
// charmap table rather than a bare rune(b) cast. That table maps every
// byte, the C1 control range included, to the code point of the same
// value, so it never yields a replacement character.
func latin1Rune(b byte) (rune, bool) {
	r := charmap.ISO8859_1.DecodeByte(b)
	return r, true
}

// applyControlCodes walks data byte by byte, substituting the three
// Annex A control codes via cfg and otherwise mapping each byte through
// runeOf. When utf8Passthrough is true the whole remaining run of
// non-control bytes is appended verbatim instead of being decoded byte
// by byte, since UTF-8 code units are not 1:1 with runes.
func (d *StringDecoder) applyControlCodes(data []byte, runeOf func(byte) (rune, bool), utf8Passthrough bool) string {
	var b strings.Builder
	i := 0
	for i < len(data) {
		switch data[i] {
		case 0x86:
			b.WriteString(d.cfg.EmphasisOn)
			i++
			continue
		case 0x87:
			b.WriteString(d.cfg.EmphasisOff)
			i++
			continue
		case 0x8A:
			b.WriteString(d.cfg.LineBreak)
			i++
			continue
		}
		if utf8Passthrough {
			j := i
			for j < len(data) && data[j] != 0x86 && data[j] != 0x87 && data[j] != 0x8A {
				j++
			}
			b.Write(data[i:j])
			i = j
			continue
		}
		r, _ := runeOf(data[i])
		b.WriteRune(r)
		i++
	}
	return b.String()
}

// cp6937Rune maps one cp6937 (ISO/IEC 6937-like) byte to a rune. This is
// a representative subset: the ASCII range maps directly, and a small
// table covers high-range symbols and punctuation (currency signs, ©,
// guillemets, °, ±, superscripts, fractions, ¿); no accented letters are
// covered. Anything else in the high range falls
// back to the Unicode Latin-1 Supplement code point at the same value,
// which is wrong for true cp6937 combining sequences but keeps output
// total and printable.
func cp6937Rune(b byte) (rune, bool) {
	if b < 0x80 {
		return rune(b), true
	}
	if r, ok := cp6937HighTable[b]; ok {
		return r, true
	}
	return rune(b), false
}

var cp6937HighTable = map[byte]rune{
	0xA1: '¡',
	0xA2: '¢',
	0xA3: '£',
	0xA5: '¥',
	0xA9: '©',
	0xAB: '«',
	0xB0: '°',
	0xB1: '±',
	0xB2: '²',
	0xB3: '³',
	0xBB: '»',
	0xBC: '¼',
	0xBD: '½',
	0xBE: '¾',
	0xBF: '¿',
}
