package protocol

import "testing"

func TestCRC16XModem(t *testing.T) {
	// Standard CRC-16/XMODEM check value.
	if got := CRC16XModem([]byte("123456789")); got != 0x31C3 {
		t.Fatalf("crc = %04X, want 31C3", got)
	}
	if got := CRC16XModem(nil); got != 0 {
		t.Fatalf("crc of empty = %04X, want 0", got)
	}
}

func TestBCC(t *testing.T) {
	if got := BCC([]byte{0x01, 0x02, 0x03}); got != 0x00 {
		t.Fatalf("bcc = %02X, want 00", got)
	}
	if got := BCC([]byte{0x5A, 0x01}); got != 0x5B {
		t.Fatalf("bcc = %02X, want 5B", got)
	}
}

func TestChecksumBytes(t *testing.T) {
	crc := checksumBytes(ChecksumCRC16, []byte("123456789"))
	if len(crc) != 2 || crc[0] != 0x31 || crc[1] != 0xC3 {
		t.Fatalf("crc bytes = % X, want 31 C3", crc)
	}
	bcc := checksumBytes(ChecksumBCC, []byte{0xAA, 0x55})
	if len(bcc) != 1 || bcc[0] != 0xFF {
		t.Fatalf("bcc bytes = % X, want FF", bcc)
	}
}
