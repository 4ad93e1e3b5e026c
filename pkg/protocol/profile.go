// Package protocol implements the wire protocols spoken by the supported
// serial barcode reader families (GM65/GM805 and M3Y-W): per-model command
// tables, frame encoding/decoding and checksum rules.
//
// Profiles are immutable data. Adding support for a new reader model means
// adding one Profile value to the registry, not new control flow.
package protocol

import "errors"

var (
	// ErrUnsupportedCommand is returned when a profile has no opcode
	// mapping for the requested operation.
	ErrUnsupportedCommand = errors.New("command not supported by this reader")
	// ErrMalformedResponse is returned when received bytes do not form a
	// valid response frame for the profile (bad header, length or
	// checksum). Malformed frames are rejected whole, never partially
	// parsed.
	ErrMalformedResponse = errors.New("malformed response frame")
	// ErrShortFrame is returned when the buffer is a valid frame prefix
	// but more bytes are still needed. Callers keep reading; it is never
	// a terminal failure.
	ErrShortFrame = errors.New("incomplete response frame")
)

// Op identifies a logical reader operation.
type Op int

const (
	OpGetHwVersion Op = iota
	OpGetSwVersion
	OpGetSwYear
	OpGetSettings
	OpSetSettings
	OpSaveSettings
	OpSetContinuousMode
	OpSetCommandMode
	OpSetReadInterval
	OpSetSameBarcodeDelay
	OpSetBaudrate
	OpSetIllumination
	OpSetAimer
	OpSetBeeper
	OpRaw
)

var opNames = map[Op]string{
	OpGetHwVersion:        "get-hw-version",
	OpGetSwVersion:        "get-sw-version",
	OpGetSwYear:           "get-sw-year",
	OpGetSettings:         "get-settings",
	OpSetSettings:         "set-settings",
	OpSaveSettings:        "save-settings",
	OpSetContinuousMode:   "set-continuous-mode",
	OpSetCommandMode:      "set-command-mode",
	OpSetReadInterval:     "set-read-interval",
	OpSetSameBarcodeDelay: "set-same-barcode-delay",
	OpSetBaudrate:         "set-baudrate",
	OpSetIllumination:     "set-illumination",
	OpSetAimer:            "set-aimer",
	OpSetBeeper:           "set-beeper",
	OpRaw:                 "raw",
}

func (o Op) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return "unknown"
}

// Command is one logical operation plus its payload bytes, built per
// invocation. For most ops the payload is empty or a single value byte.
type Command struct {
	Op      Op
	Payload []byte
}

// Framing selects the frame layout a profile uses on the wire.
type Framing int

const (
	// FramingGM65: header + opcode bytes + payload + checksum.
	// Responses are header + 1-byte length + data + checksum.
	FramingGM65 Framing = iota
	// FramingM3Y: header + 2-byte big-endian length + command + payload +
	// checksum + terminator. Responses share the layout under the reply
	// header.
	FramingM3Y
)

// OpSpec is one entry of a profile's command table.
type OpSpec struct {
	Code       []byte // opcode bytes placed after the frame header
	PayloadLen int    // exact payload bytes the op takes; -1 allows any
}

// Profile holds the protocol rules for one reader model family.
// Values are package-level constants in spirit: constructed once, never
// mutated.
type Profile struct {
	ID         string
	Name       string
	Framing    Framing
	Checksum   ChecksumKind
	TxHeader   []byte // leads every outgoing command frame
	RespHeader []byte // leads every command response frame
	Terminator []byte // trails the checksum, if the protocol has one

	// Probe is the operation the Detector sends to identify the model.
	Probe Op

	Ops map[Op]OpSpec
}

// Supports reports whether the profile maps op to an opcode.
func (p *Profile) Supports(op Op) bool {
	_, ok := p.Ops[op]
	return ok
}

// Profiles is the detection registry, swept in order. GM805 readers share
// the GM65 framing and are deliberately not a separate entry.
var Profiles = []*Profile{GM65, M3Y}

// ProfileByName resolves a user-supplied model name to a profile.
func ProfileByName(name string) (*Profile, bool) {
	switch name {
	case "gm65", "gm805", "GM65", "GM805":
		return GM65, true
	case "m3y", "m3y-w", "M3Y", "M3Y-W":
		return M3Y, true
	}
	return nil, false
}
