package scte35

// SpliceNull is splice_null(): an empty command carrying no payload,
// used as a heartbeat between real splice events.
type SpliceNull struct{}

var _ SpliceCommand = (*SpliceNull)(nil)

func (cmd *SpliceNull) Type() uint32           { return SpliceNullType }
func (cmd *SpliceNull) decode([]byte) error     { return nil }
func (cmd *SpliceNull) encode() ([]byte, error) { return nil, nil }
func (cmd *SpliceNull) commandLength() int      { return 0 }
