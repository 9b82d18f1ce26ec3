package scte35

// TimeSignal is time_signal(): a bare splice_time() carrying just
// enough information to synchronize a downstream segmentation_descriptor
// to a PTS reference, without any of splice_insert's avail bookkeeping.
type TimeSignal struct {
	SpliceTime SpliceTime
}

var _ SpliceCommand = (*TimeSignal)(nil)

func (cmd *TimeSignal) Type() uint32 { return TimeSignalType }

func (cmd *TimeSignal) decode(data []byte) error {
	cmd.SpliceTime, _ = decodeSpliceTime(data)
	return nil
}

func (cmd *TimeSignal) encode() ([]byte, error) {
	return encodeSpliceTime(cmd.SpliceTime), nil
}

func (cmd *TimeSignal) commandLength() int {
	return spliceTimeLength(cmd.SpliceTime)
}
