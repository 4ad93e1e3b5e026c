package scanner

import (
	"context"
	"fmt"

	"github.com/barcodeworks/scanctl/pkg/protocol"
)

// Mode values for illumination and aimer. Beeper accepts only Off and On.
const (
	ModeOff    = -1
	ModeNormal = 0
	ModeOn     = 1
)

// GetSettings reads the reader's settings-zone byte.
func (s *Session) GetSettings(ctx context.Context) (byte, error) {
	dec, err := s.Do(ctx, protocol.Command{Op: protocol.OpGetSettings})
	if err != nil {
		return 0, err
	}
	if len(dec.Data) < 1 {
		return 0, fmt.Errorf("%w: empty settings reply", protocol.ErrMalformedResponse)
	}
	return dec.Data[0], nil
}

// SetSettings writes the settings-zone byte and persists it to EEPROM.
func (s *Session) SetSettings(ctx context.Context, value byte) error {
	if _, err := s.Do(ctx, protocol.Command{Op: protocol.OpSetSettings, Payload: []byte{value}}); err != nil {
		return err
	}
	_, err := s.Do(ctx, protocol.Command{Op: protocol.OpSaveSettings})
	return err
}

// SetIllumination switches the illumination LED: ModeOff, ModeNormal
// (on while decoding) or ModeOn.
func (s *Session) SetIllumination(ctx context.Context, mode int) error {
	return s.setModeBits(ctx, protocol.OpSetIllumination,
		protocol.SettingsIllumNormalBit, protocol.SettingsIllumAlwaysBit, mode)
}

// SetAimer switches the aiming beam: ModeOff, ModeNormal or ModeOn.
func (s *Session) SetAimer(ctx context.Context, mode int) error {
	return s.setModeBits(ctx, protocol.OpSetAimer,
		protocol.SettingsAimNormalBit, protocol.SettingsAimAlwaysBit, mode)
}

// SetBeeper mutes (ModeOff) or unmutes (ModeOn) the good-read beep.
func (s *Session) SetBeeper(ctx context.Context, mode int) error {
	if mode == ModeNormal {
		return fmt.Errorf("beeper mode must be -1 (mute) or 1 (on)")
	}
	if !s.Profile.Supports(protocol.OpGetSettings) || !s.Profile.Supports(protocol.OpSetSettings) {
		return fmt.Errorf("%w: %s on %s", protocol.ErrUnsupportedCommand, protocol.OpSetBeeper, s.Profile.Name)
	}
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return err
	}
	if mode > 0 {
		settings = setBit(settings, protocol.SettingsBeepBit)
	} else {
		settings = clearBit(settings, protocol.SettingsBeepBit)
	}
	return s.SetSettings(ctx, settings)
}

// setModeBits implements the shared two-bit field scheme of the settings
// zone: <always><normal> = 00 off, 01 normal, 11 always on. Readers
// without a settings zone (M3Y) reject the op before any wire write.
func (s *Session) setModeBits(ctx context.Context, op protocol.Op, normalBit, alwaysBit int, mode int) error {
	if !s.Profile.Supports(protocol.OpGetSettings) || !s.Profile.Supports(protocol.OpSetSettings) {
		return fmt.Errorf("%w: %s on %s", protocol.ErrUnsupportedCommand, op, s.Profile.Name)
	}

	settings, err := s.GetSettings(ctx)
	if err != nil {
		return err
	}
	switch {
	case mode < 0:
		settings = clearBit(settings, alwaysBit)
		settings = clearBit(settings, normalBit)
	case mode == 0:
		settings = clearBit(settings, alwaysBit)
		settings = setBit(settings, normalBit)
	default:
		settings = setBit(settings, alwaysBit)
		settings = setBit(settings, normalBit)
	}
	return s.SetSettings(ctx, settings)
}

// SetReadInterval sets the delay between reads, in 100 ms units.
func (s *Session) SetReadInterval(ctx context.Context, units int) error {
	if units < 0 || units > 0xFF {
		return fmt.Errorf("read interval must be 0-255, got %d", units)
	}
	_, err := s.Do(ctx, protocol.Command{Op: protocol.OpSetReadInterval, Payload: []byte{byte(units)}})
	return err
}

// SetSameBarcodeDelay sets the re-read delay for an unchanged barcode, in
// 100 ms units.
func (s *Session) SetSameBarcodeDelay(ctx context.Context, units int) error {
	if units < 0 || units > 0xFF {
		return fmt.Errorf("same-barcode delay must be 0-255, got %d", units)
	}
	_, err := s.Do(ctx, protocol.Command{Op: protocol.OpSetSameBarcodeDelay, Payload: []byte{byte(units)}})
	return err
}

// baudPayload encodes the device-side representation of a baud rate. GM65
// readers store a clock divisor little-endian in the baud zones.
func baudPayload(p *protocol.Profile, baud int) ([]byte, error) {
	if !p.Supports(protocol.OpSetBaudrate) {
		return nil, fmt.Errorf("%w: %s on %s", protocol.ErrUnsupportedCommand, protocol.OpSetBaudrate, p.Name)
	}
	if baud <= 0 || protocol.GM65BaudClock%baud != 0 {
		return nil, fmt.Errorf("unsupported baud rate %d", baud)
	}
	divisor := protocol.GM65BaudClock / baud
	if divisor > 0xFFFF {
		return nil, fmt.Errorf("unsupported baud rate %d", baud)
	}
	return []byte{byte(divisor), byte(divisor >> 8)}, nil
}

func setBit(b byte, bit int) byte   { return b | 1<<bit }
func clearBit(b byte, bit int) byte { return b &^ (1 << bit) }
