package mpegts

// Descriptor is one decoded {tag, length, body} entry from a descriptor
// loop. Body aliases the source section bytes.
type Descriptor struct {
	Tag    uint8
	Length uint8
	Body   []byte
}

// DescriptorLoop iterates a generic descriptor loop: a concatenation of
// {tag(8), length(8), body(length)} elements whose per-element size is
// always length+2. It never materializes a slice of descriptors; call it
// with a callback, or collect into a slice yourself if you need one.
func DescriptorLoop(data []byte, fn func(Descriptor) bool) {
	for len(data) >= 2 {
		length := int(data[1])
		size := length + 2
		if size > len(data) {
			return
		}
		if !fn(Descriptor{Tag: data[0], Length: data[1], Body: data[2:size]}) {
			return
		}
		data = data[size:]
	}
}

// Descriptors collects every descriptor in a loop into a slice. Prefer
// DescriptorLoop when a caller can act on each descriptor as it is
// visited.
func Descriptors(data []byte) []Descriptor {
	var out []Descriptor
	DescriptorLoop(data, func(d Descriptor) bool {
		out = append(out, d)
		return true
	})
	return out
}

// Representative descriptor tags this package interprets beyond the
// generic {tag, length, body} view.
const (
	DescriptorTagNetworkName         uint8 = 0x40
	DescriptorTagServiceList         uint8 = 0x41
	DescriptorTagStreamIdentifier    uint8 = 0x52
	DescriptorTagService             uint8 = 0x48
	DescriptorTagShortEvent          uint8 = 0x4D
	DescriptorTagParentalRating      uint8 = 0x55
	DescriptorTagPrivateDataSpecifier uint8 = 0x5F
)

// NetworkNameDescriptor is descriptor tag 0x40: a single Annex A string.
type NetworkNameDescriptor struct {
	Name string
}

// DecodeNetworkNameDescriptor decodes a network_name_descriptor body.
func DecodeNetworkNameDescriptor(body []byte, dec *StringDecoder) NetworkNameDescriptor {
	return NetworkNameDescriptor{Name: dec.Decode(body)}
}

// ServiceListEntry is one (service_id, service_type) pair in a
// service_list_descriptor.
type ServiceListEntry struct {
	ServiceID   uint16
	ServiceType uint8
}

// DecodeServiceListDescriptor decodes a service_list_descriptor body:
// N 3-byte entries of (service_id u16, service_type u8).
func DecodeServiceListDescriptor(body []byte) []ServiceListEntry {
	n := len(body) / 3
	out := make([]ServiceListEntry, 0, n)
	for i := 0; i < n; i++ {
		e := Indexed(body, 0, 3, i)
		out = append(out, ServiceListEntry{
			ServiceID:   U16At(e, 0),
			ServiceType: U8At(e, 2),
		})
	}
	return out
}

// StreamIdentifierDescriptor is descriptor tag 0x52.
type StreamIdentifierDescriptor struct {
	ComponentTag uint8
}

// DecodeStreamIdentifierDescriptor decodes a stream_identifier_descriptor body.
func DecodeStreamIdentifierDescriptor(body []byte) StreamIdentifierDescriptor {
	return StreamIdentifierDescriptor{ComponentTag: U8At(body, 0)}
}

// ServiceDescriptor is descriptor tag 0x48.
type ServiceDescriptor struct {
	ServiceType         uint8
	ServiceProviderName string
	ServiceName         string
}

// DecodeServiceDescriptor decodes a service_descriptor body.
func DecodeServiceDescriptor(body []byte, dec *StringDecoder) ServiceDescriptor {
	sd := ServiceDescriptor{ServiceType: U8At(body, 0)}
	providerLen := int(U8At(body, 1))
	providerName := SubSlice(body, 2, providerLen)
	sd.ServiceProviderName = dec.Decode(providerName)

	nameLenOffset := 2 + providerLen
	nameLen := int(U8At(body, nameLenOffset))
	name := SubSlice(body, nameLenOffset+1, nameLen)
	sd.ServiceName = dec.Decode(name)
	return sd
}

// ShortEventDescriptor is descriptor tag 0x4D.
type ShortEventDescriptor struct {
	LanguageCode string
	EventName    string
	Text         string
}

// DecodeShortEventDescriptor decodes a short_event_descriptor body.
func DecodeShortEventDescriptor(body []byte, dec *StringDecoder) ShortEventDescriptor {
	sed := ShortEventDescriptor{LanguageCode: iso639String(U24At(body, 0))}
	nameLen := int(U8At(body, 3))
	name := SubSlice(body, 4, nameLen)
	sed.EventName = dec.Decode(name)

	textLenOffset := 4 + nameLen
	textLen := int(U8At(body, textLenOffset))
	text := SubSlice(body, textLenOffset+1, textLen)
	sed.Text = dec.Decode(text)
	return sed
}

func iso639String(code uint32) string {
	return string([]byte{byte(code >> 16), byte(code >> 8), byte(code)})
}

// ParentalRatingEntry is one (country_code, rating) pair.
type ParentalRatingEntry struct {
	CountryCode string
	Rating      uint8
}

// DecodeParentalRatingDescriptor decodes a parental_rating_descriptor
// body: N 4-byte entries of (country_code 3 bytes, rating u8).
func DecodeParentalRatingDescriptor(body []byte) []ParentalRatingEntry {
	n := len(body) / 4
	out := make([]ParentalRatingEntry, 0, n)
	for i := 0; i < n; i++ {
		e := Indexed(body, 0, 4, i)
		out = append(out, ParentalRatingEntry{
			CountryCode: iso639String(U24At(e, 0)),
			Rating:      U8At(e, 3),
		})
	}
	return out
}

// PrivateDataSpecifierDescriptor is descriptor tag 0x5F.
type PrivateDataSpecifierDescriptor struct {
	PrivateDataSpecifier uint32
}

// DecodePrivateDataSpecifierDescriptor decodes a
// private_data_specifier_descriptor body.
func DecodePrivateDataSpecifierDescriptor(body []byte) PrivateDataSpecifierDescriptor {
	return PrivateDataSpecifierDescriptor{PrivateDataSpecifier: U32At(body, 0)}
}
