package protocol

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// Decoded is a validated response frame with the envelope stripped.
type Decoded struct {
	Profile *Profile
	Data    []byte // payload between the length field and the checksum
	Raw     []byte // the complete frame as received
	Extra   []byte // bytes that followed the frame in the same buffer
}

// Encode builds the outgoing frame for cmd under profile p.
// It is a pure function: the same profile and command always produce the
// same bytes.
func Encode(p *Profile, cmd Command) ([]byte, error) {
	if cmd.Op == OpRaw {
		// Raw frames bypass the table entirely; the caller owns the bytes.
		return cmd.Payload, nil
	}

	spec, ok := p.Ops[cmd.Op]
	if !ok {
		return nil, fmt.Errorf("%w: %s on %s", ErrUnsupportedCommand, cmd.Op, p.Name)
	}
	if spec.PayloadLen >= 0 && len(cmd.Payload) != spec.PayloadLen {
		return nil, fmt.Errorf("%s: payload must be %d bytes, got %d", cmd.Op, spec.PayloadLen, len(cmd.Payload))
	}

	body := make([]byte, 0, len(spec.Code)+len(cmd.Payload))
	body = append(body, spec.Code...)
	body = append(body, cmd.Payload...)

	frame := make([]byte, 0, len(p.TxHeader)+2+len(body)+2+len(p.Terminator))
	frame = append(frame, p.TxHeader...)

	switch p.Framing {
	case FramingM3Y:
		// The length field is covered by the checksum, the header is not.
		var ln [2]byte
		binary.BigEndian.PutUint16(ln[:], uint16(len(body)))
		frame = append(frame, ln[:]...)
		frame = append(frame, body...)
		frame = append(frame, checksumBytes(p.Checksum, frame[len(p.TxHeader):])...)
	default:
		frame = append(frame, body...)
		frame = append(frame, checksumBytes(p.Checksum, body)...)
	}

	frame = append(frame, p.Terminator...)
	return frame, nil
}

// Decode validates raw against p's response framing and strips the
// envelope. It returns ErrShortFrame while raw is a valid prefix of a
// frame that has not fully arrived, and ErrMalformedResponse for anything
// that can never become a valid frame.
func Decode(p *Profile, raw []byte) (*Decoded, error) {
	switch p.Framing {
	case FramingM3Y:
		return decodeM3Y(p, raw)
	default:
		return decodeGM65(p, raw)
	}
}

func decodeGM65(p *Profile, raw []byte) (*Decoded, error) {
	hdr := len(p.RespHeader)
	if len(raw) < hdr+1 {
		if bytes.HasPrefix(p.RespHeader, raw) || bytes.HasPrefix(raw, p.RespHeader) {
			return nil, ErrShortFrame
		}
		return nil, fmt.Errorf("%w: bad header % X", ErrMalformedResponse, raw)
	}
	if !bytes.HasPrefix(raw, p.RespHeader) {
		return nil, fmt.Errorf("%w: bad header % X", ErrMalformedResponse, raw[:hdr])
	}

	dataLen := int(raw[hdr])
	total := hdr + 1 + dataLen + checksumLen(p.Checksum)
	if len(raw) < total {
		return nil, ErrShortFrame
	}

	// The CRC covers everything after the leading status byte: the two
	// zero bytes, the length and the data.
	declared := binary.BigEndian.Uint16(raw[hdr+1+dataLen : total])
	if computed := CRC16XModem(raw[1 : hdr+1+dataLen]); computed != declared {
		return nil, fmt.Errorf("%w: checksum %04X, want %04X", ErrMalformedResponse, declared, computed)
	}

	return &Decoded{
		Profile: p,
		Data:    raw[hdr+1 : hdr+1+dataLen],
		Raw:     raw[:total],
		Extra:   raw[total:],
	}, nil
}

func decodeM3Y(p *Profile, raw []byte) (*Decoded, error) {
	hdr := len(p.RespHeader)
	if len(raw) < hdr+2 {
		if bytes.HasPrefix(p.RespHeader, raw) || bytes.HasPrefix(raw, p.RespHeader) {
			return nil, ErrShortFrame
		}
		return nil, fmt.Errorf("%w: bad header % X", ErrMalformedResponse, raw)
	}
	if !bytes.HasPrefix(raw, p.RespHeader) {
		return nil, fmt.Errorf("%w: bad header % X", ErrMalformedResponse, raw[:hdr])
	}

	dataLen := int(binary.BigEndian.Uint16(raw[hdr : hdr+2]))
	total := hdr + 2 + dataLen + checksumLen(p.Checksum) + len(p.Terminator)
	if len(raw) < total {
		return nil, ErrShortFrame
	}

	// The BCC covers everything after the leading 0x5A: the reply marker
	// byte, the length field and the data.
	body := raw[1 : hdr+2+dataLen]
	if computed, declared := BCC(body), raw[hdr+2+dataLen]; computed != declared {
		return nil, fmt.Errorf("%w: checksum %02X, want %02X", ErrMalformedResponse, declared, computed)
	}
	if term := raw[hdr+2+dataLen+1]; term != p.Terminator[0] {
		return nil, fmt.Errorf("%w: terminator %02X", ErrMalformedResponse, term)
	}

	return &Decoded{
		Profile: p,
		Data:    raw[hdr+2 : hdr+2+dataLen],
		Raw:     raw[:total],
		Extra:   raw[total:],
	}, nil
}

// CommandOp recovers the logical operation from an encoded command frame,
// the echo field the session matches on. The second return is false when
// the frame does not start with the profile's header or matches no table
// entry.
func CommandOp(p *Profile, frame []byte) (Op, bool) {
	if !bytes.HasPrefix(frame, p.TxHeader) {
		return 0, false
	}
	body := frame[len(p.TxHeader):]
	if p.Framing == FramingM3Y {
		if len(body) < 2 {
			return 0, false
		}
		body = body[2:]
	}

	best, bestLen, found := Op(0), -1, false
	for op, spec := range p.Ops {
		if bytes.HasPrefix(body, spec.Code) && len(spec.Code) > bestLen {
			best, bestLen, found = op, len(spec.Code), true
		}
	}
	return best, found
}

// HexString renders bytes as dash-separated hex pairs, the format used in
// logs and console output so frames can be copied verbatim.
func HexString(b []byte) string {
	hexDigits := hex.EncodeToString(b)
	var builder strings.Builder
	for i, r := range hexDigits {
		if i > 0 && i%2 == 0 {
			builder.WriteString("-")
		}
		builder.WriteRune(r)
	}
	return builder.String()
}

// ParseHexString is the inverse of HexString; it also tolerates spaces and
// bare hex, for --send-raw-cmd input.
func ParseHexString(s string) ([]byte, error) {
	s = strings.NewReplacer("-", "", " ", "", ":", "").Replace(s)
	return hex.DecodeString(s)
}
