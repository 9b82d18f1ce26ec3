package scte35

import "github.com/zsiec/tsprobe/mpegts"

// TableID is the table_id carried by every splice_info_section, per
// SCTE-35 6.1.
const TableID = tableID

// InstallCallback decodes every mpegts.StoredSection whose table_id is
// 0xFC and forwards the result to sink. Assign the returned func
// directly to a mpegts.SectionAssembler's SetInstallCallback to wire
// SCTE-35 decoding onto the transport stream's PSI/SI section store.
//
// Sections belonging to any other table_id are ignored rather than
// erroring: a SectionAssembler's install callback fires for every table
// it happens to be tracking, and filtering here lets a caller share one
// callback across every PID it binds.
func InstallCallback(sink func(*SpliceInfoSection)) mpegts.InstallCallback {
	return func(section mpegts.StoredSection) {
		if len(section) == 0 || section[0] != TableID {
			return
		}
		sis, err := DecodeBytes(section)
		if err != nil {
			return
		}
		sink(sis)
	}
}
