// Package scanner drives a serial barcode reader: model detection, the
// command/response session state machine, composite settings operations
// and the scan capture listener.
package scanner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/barcodeworks/scanctl/internal/serialio"
	"github.com/barcodeworks/scanctl/pkg/protocol"
)

var (
	// ErrDetectionFailed means no registry profile answered its probe.
	ErrDetectionFailed = errors.New("no supported reader detected; check the wiring or try --test-baudrates")
	// ErrNoResponse means the reader sent nothing within the timeout,
	// after the single resend retry.
	ErrNoResponse = errors.New("no response from reader")
	// ErrUnexpectedReply means bytes arrived but never formed a matching
	// response frame, after one discard-and-reread.
	ErrUnexpectedReply = errors.New("unexpected reply from reader")
	// ErrBaudrateUnverified means the reader acknowledged the baud change
	// but could not be reached at the new rate. The local transport is
	// left at the new rate; reverting is the caller's decision.
	ErrBaudrateUnverified = errors.New("baud rate change not verified at new rate")
)

// State is the per-operation session state.
type State int

const (
	StateIdle State = iota
	StateFrameSent
	StateAwaitingResponse
	StateMatched
	StateTimedOut
	StateMismatched
)

var stateNames = [...]string{"idle", "frame-sent", "awaiting-response", "matched", "timed-out", "mismatched"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

const (
	defaultTimeout = 500 * time.Millisecond
	defaultRetries = 1
	readChunkSize  = 64
)

// Session owns the active profile and the serial port for the lifetime of
// one process run. One command is in flight at a time; responses are
// matched to commands by temporal adjacency and frame-header echo, since
// the wire protocols carry no request IDs.
type Session struct {
	Port    serialio.Port
	Profile *protocol.Profile
	Timeout time.Duration // per-attempt response budget
	Retries int           // resend attempts after a timeout

	state State
}

// NewSession returns a session with the default timing policy: a short
// response budget (scanner replies are near-instant) and exactly one
// resend after a timeout.
func NewSession(port serialio.Port, profile *protocol.Profile) *Session {
	return &Session{
		Port:    port,
		Profile: profile,
		Timeout: defaultTimeout,
		Retries: defaultRetries,
	}
}

// State reports the outcome state of the most recent operation.
func (s *Session) State() State {
	return s.state
}

func (s *Session) transition(to State) {
	log.Debug().
		Stringer("from", s.state).
		Stringer("to", to).
		Msg("session state")
	s.state = to
}

// Do runs one logical command: encode, write, await the matching response.
// Unsupported ops fail before anything touches the wire. A timeout is
// retried by resending once; anything else surfaces as-is.
func (s *Session) Do(ctx context.Context, cmd protocol.Command) (*protocol.Decoded, error) {
	frame, err := protocol.Encode(s.Profile, cmd)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= s.Retries; attempt++ {
		if attempt > 0 {
			log.Warn().
				Stringer("op", cmd.Op).
				Int("attempt", attempt+1).
				Msg("no response, resending")
		}
		dec, err := s.exchange(ctx, frame)
		if err == nil {
			return dec, nil
		}
		lastErr = err
		if !errors.Is(err, ErrNoResponse) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s", lastErr, cmd.Op)
}

// exchange performs one FrameSent -> AwaitingResponse pass with the
// mismatch policy: stray bytes (typically a scan payload sharing the
// channel) are trimmed up to the next frame-start candidate and decoding
// re-armed once within the remaining budget.
func (s *Session) exchange(ctx context.Context, frame []byte) (*protocol.Decoded, error) {
	s.transition(StateIdle)
	if err := s.Port.Flush(); err != nil {
		return nil, fmt.Errorf("flush: %w", err)
	}
	if err := s.Port.Write(frame); err != nil {
		return nil, fmt.Errorf("write frame: %w", err)
	}
	s.transition(StateFrameSent)
	log.Debug().Str("tx", protocol.HexString(frame)).Msg("frame sent")

	s.transition(StateAwaitingResponse)
	deadline := time.Now().Add(s.Timeout)
	rearmed := false
	var buf []byte

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			if len(buf) == 0 {
				s.transition(StateTimedOut)
				return nil, ErrNoResponse
			}
			s.transition(StateMismatched)
			return nil, fmt.Errorf("%w: leftover bytes %s", ErrUnexpectedReply, protocol.HexString(buf))
		}

		chunk, err := s.Port.Read(readChunkSize, remaining)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		buf = append(buf, chunk...)
		if len(buf) == 0 {
			continue
		}

	decode:
		for len(buf) > 0 {
			dec, derr := protocol.Decode(s.Profile, buf)
			switch {
			case derr == nil:
				s.transition(StateMatched)
				log.Debug().Str("rx", protocol.HexString(dec.Raw)).Msg("response matched")
				return dec, nil
			case errors.Is(derr, protocol.ErrShortFrame):
				break decode
			case rearmed:
				s.transition(StateMismatched)
				return nil, fmt.Errorf("%w: %s", ErrUnexpectedReply, protocol.HexString(buf))
			}
			log.Warn().
				Str("stray", protocol.HexString(buf)).
				Msg("discarding stray bytes, re-arming read")
			rearmed = true
			buf = s.trimStray(buf)
		}
	}
}

// trimStray drops stray bytes from the front of buf up to the next
// possible frame start, so a reply that shares a chunk with a scan
// payload is kept rather than thrown away with it.
func (s *Session) trimStray(buf []byte) []byte {
	if idx := bytes.IndexByte(buf[1:], s.Profile.RespHeader[0]); idx >= 0 {
		return buf[idx+1:]
	}
	return nil
}

// Raw writes literal bytes and returns whatever arrives before the
// timeout, undecoded. The only failure mode is silence.
func (s *Session) Raw(ctx context.Context, frame []byte) ([]byte, error) {
	s.transition(StateIdle)
	if err := s.Port.Flush(); err != nil {
		return nil, fmt.Errorf("flush: %w", err)
	}
	if err := s.Port.Write(frame); err != nil {
		return nil, fmt.Errorf("write frame: %w", err)
	}
	s.transition(StateFrameSent)

	s.transition(StateAwaitingResponse)
	deadline := time.Now().Add(s.Timeout)
	var buf []byte
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		chunk, err := s.Port.Read(readChunkSize, remaining)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		buf = append(buf, chunk...)
	}
	if len(buf) == 0 {
		s.transition(StateTimedOut)
		return nil, ErrNoResponse
	}
	s.transition(StateMatched)
	return buf, nil
}

// SetBaudrate asks the reader to switch its UART rate, follows it on the
// local transport, and verifies the device is reachable at the new rate.
// On verification failure the transport stays at the new rate.
func (s *Session) SetBaudrate(ctx context.Context, baud int) error {
	payload, err := baudPayload(s.Profile, baud)
	if err != nil {
		return err
	}
	if _, err := s.Do(ctx, protocol.Command{Op: protocol.OpSetBaudrate, Payload: payload}); err != nil {
		return err
	}

	if err := s.Port.SetBaudRate(baud); err != nil {
		return fmt.Errorf("switch local baud to %d: %w", baud, err)
	}
	log.Debug().Int("baud", baud).Msg("local transport switched, verifying")

	if _, err := s.Do(ctx, protocol.Command{Op: protocol.OpGetHwVersion}); err != nil {
		return fmt.Errorf("%w (%d): %v", ErrBaudrateUnverified, baud, err)
	}
	return nil
}
