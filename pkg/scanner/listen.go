package scanner

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/barcodeworks/scanctl/internal/serialio"
	"github.com/barcodeworks/scanctl/pkg/protocol"
)

// Listener captures scanned barcode text from the serial line. Scan
// payloads and command responses share the channel; anything that parses
// as a response frame of a known profile is consumed and dropped, the
// rest is surfaced as newline-delimited text.
type Listener struct {
	Port           serialio.Port
	Window         time.Duration // total capture window
	StopAfterFirst bool          // capture mode: return after one payload

	chunkTimeout time.Duration
}

// NewListener returns a listener over the default 10 second window.
func NewListener(port serialio.Port) *Listener {
	return &Listener{Port: port, Window: 10 * time.Second}
}

// Run reads until the window closes (or the first payload in capture
// mode) and returns the scanned strings in arrival order.
func (l *Listener) Run(ctx context.Context) ([]string, error) {
	chunk := l.chunkTimeout
	if chunk <= 0 {
		chunk = 200 * time.Millisecond
	}

	deadline := time.Now().Add(l.Window)
	var buf []byte
	var scans []string

	for {
		if err := ctx.Err(); err != nil {
			return scans, err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		if remaining < chunk {
			chunk = remaining
		}

		data, err := l.Port.Read(256, chunk)
		if err != nil {
			return scans, err
		}
		buf = append(buf, data...)
		buf = sift(buf, &scans)

		if l.StopAfterFirst && len(scans) > 0 {
			return scans, nil
		}
	}

	// Window closed: surface any trailing unterminated text.
	if line := strings.TrimRight(string(buf), "\r\n"); line != "" && !framePrefix(buf) {
		scans = append(scans, line)
	}
	return scans, nil
}

// sift consumes complete items from the front of buf: response frames of
// any known profile are dropped, newline-terminated text becomes a scan.
// It returns the unconsumed remainder.
func sift(buf []byte, scans *[]string) []byte {
	for len(buf) > 0 {
		if dec, p, ok := decodeAny(buf); ok {
			log.Debug().
				Str("profile", p.ID).
				Str("frame", protocol.HexString(dec.Raw)).
				Msg("dropping spontaneous response frame")
			buf = dec.Extra
			continue
		}
		if framePrefix(buf) {
			// Could still grow into a valid frame; wait for more bytes.
			return buf
		}

		nl := strings.IndexAny(string(buf), "\r\n")
		if nl < 0 {
			return buf
		}
		if line := string(buf[:nl]); line != "" {
			*scans = append(*scans, line)
		}
		buf = buf[nl+1:]
	}
	return buf
}

// decodeAny tries every registry profile's response framing at the head
// of buf.
func decodeAny(buf []byte) (*protocol.Decoded, *protocol.Profile, bool) {
	for _, p := range protocol.Profiles {
		if dec, err := protocol.Decode(p, buf); err == nil {
			return dec, p, true
		}
	}
	return nil, nil, false
}

// framePrefix reports whether buf is an incomplete prefix of some
// profile's response frame.
func framePrefix(buf []byte) bool {
	for _, p := range protocol.Profiles {
		if _, err := protocol.Decode(p, buf); errors.Is(err, protocol.ErrShortFrame) {
			return true
		}
	}
	return false
}
