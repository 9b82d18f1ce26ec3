// Package mpegts implements MPEG-2 Transport Stream demuxing: packet
// resynchronization and PID dispatch, PSI/SI section reassembly with
// versioning, PES reassembly, and MPEG audio frame extraction from PES
// payload.
package mpegts
