package protocol

// M3Y covers the M3Y-W reader family. Commands are short ASCII strings
// wrapped in a 5A 00 <len16> ... <bcc> A5 envelope; the reader answers
// under a 5A 01 header, which is what distinguishes it during detection.
//
// The M3Y command surface over serial is narrow: version query and scan
// mode switching. Illumination, aimer and beeper have no serial mapping
// and report ErrUnsupportedCommand.
var M3Y = &Profile{
	ID:         "m3y",
	Name:       "M3Y-W",
	Framing:    FramingM3Y,
	Checksum:   ChecksumBCC,
	TxHeader:   []byte{0x5A, 0x00},
	RespHeader: []byte{0x5A, 0x01},
	Terminator: []byte{0xA5},
	Probe:      OpGetSwVersion,
	Ops: map[Op]OpSpec{
		OpGetSwVersion:      {Code: []byte("T_OUT_CVER")},
		OpSetContinuousMode: {Code: []byte("S_CMD_020E")},
		OpSetCommandMode:    {Code: []byte("S_CMD_020D")},
	},
}
