package protocol

// ChecksumKind selects the integrity check a profile appends to its frames.
type ChecksumKind int

const (
	// ChecksumCRC16 is CRC-16/XMODEM (poly 0x1021, init 0), big-endian on
	// the wire. Used by GM65-style readers.
	ChecksumCRC16 ChecksumKind = iota
	// ChecksumBCC is a single XOR block-check character. Used by M3Y-style
	// readers.
	ChecksumBCC
)

// CRC16XModem computes the CRC-16/XMODEM checksum over data.
func CRC16XModem(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// BCC computes the XOR block-check character over data.
func BCC(data []byte) byte {
	var bcc byte
	for _, b := range data {
		bcc ^= b
	}
	return bcc
}

// checksumBytes returns the on-wire checksum for data under kind.
func checksumBytes(kind ChecksumKind, data []byte) []byte {
	switch kind {
	case ChecksumBCC:
		return []byte{BCC(data)}
	default:
		crc := CRC16XModem(data)
		return []byte{byte(crc >> 8), byte(crc)}
	}
}

// checksumLen is the number of trailing checksum bytes for kind.
func checksumLen(kind ChecksumKind) int {
	if kind == ChecksumBCC {
		return 1
	}
	return 2
}
