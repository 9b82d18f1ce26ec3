package mpegts

import "errors"

// ErrShortBuffer is returned by Parser.Ingest when the caller passes
// fewer than Parser.MinIngest() bytes (four packet strides), violating
// the resync precondition.
var ErrShortBuffer = errors.New("mpegts: ingest buffer shorter than four packets")

// ErrBadPacketSize is returned when a byte slice that is claimed to be
// a single TS packet is not exactly packetSize bytes.
var ErrBadPacketSize = errors.New("mpegts: not a 188-byte packet")

// ErrBadPID is returned by AddBinding when a PID exceeds the 13-bit range.
var ErrBadPID = errors.New("mpegts: PID out of 13-bit range")
