package protocol

// GM65 settings-zone bit layout (zone 0x0000). Illumination and aimer are
// two-bit fields; the beeper is a single bit. There are no dedicated
// opcodes for these: they are read-modify-write composites over the
// settings byte (see pkg/scanner).
const (
	SettingsIllumNormalBit = 2
	SettingsIllumAlwaysBit = 3
	SettingsAimNormalBit   = 4
	SettingsAimAlwaysBit   = 5
	SettingsBeepBit        = 6
)

// GM65BaudClock is the clock the GM65 divides to derive its UART rate.
// Zones 0x002A/0x002B hold the divisor little-endian: 9600 baud = 0x05DC.
const GM65BaudClock = 14400000

// GM65WildcardCRC is accepted by GM65-style readers in place of a real
// CRC on host-to-device frames (handy with --send-raw-cmd).
const GM65WildcardCRC uint16 = 0xABCD

// GM65 covers the GM65 and GM805 reader families, which share framing.
// Opcode bytes follow the vendor manual's zone read/write scheme:
// 07 01 <zone16> <count> reads, 08 01 <zone16> <value> writes.
var GM65 = &Profile{
	ID:         "gm65",
	Name:       "GM65/GM805",
	Framing:    FramingGM65,
	Checksum:   ChecksumCRC16,
	TxHeader:   []byte{0x7E, 0x00},
	RespHeader: []byte{0x02, 0x00, 0x00},
	Probe:      OpGetSwVersion,
	Ops: map[Op]OpSpec{
		OpGetHwVersion:        {Code: []byte{0x07, 0x01, 0x00, 0xE1, 0x01}},
		OpGetSwVersion:        {Code: []byte{0x07, 0x01, 0x00, 0xE2, 0x01}},
		OpGetSwYear:           {Code: []byte{0x07, 0x01, 0x00, 0xE3, 0x01}},
		OpGetSettings:         {Code: []byte{0x07, 0x01, 0x00, 0x00, 0x01}},
		OpSetSettings:         {Code: []byte{0x08, 0x01, 0x00, 0x00}, PayloadLen: 1},
		OpSaveSettings:        {Code: []byte{0x09, 0x01, 0x00, 0x00, 0x00}},
		OpSetContinuousMode:   {Code: []byte{0x08, 0x01, 0x00, 0x02, 0x01}},
		OpSetCommandMode:      {Code: []byte{0x08, 0x01, 0x00, 0x02, 0x00}},
		OpSetReadInterval:     {Code: []byte{0x08, 0x01, 0x00, 0x05}, PayloadLen: 1},
		OpSetSameBarcodeDelay: {Code: []byte{0x08, 0x01, 0x00, 0x13}, PayloadLen: 1},
		// Two-byte zone write starting at 0x002A: little-endian baud divisor.
		OpSetBaudrate: {Code: []byte{0x08, 0x02, 0x00, 0x2A}, PayloadLen: 2},
	},
}
