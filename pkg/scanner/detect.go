package scanner

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/barcodeworks/scanctl/internal/serialio"
	"github.com/barcodeworks/scanctl/pkg/protocol"
)

// DetectionResult is the profile chosen for this run plus the raw probe
// reply that identified it. Detection runs once per process; the reader
// model does not change mid-connection.
type DetectionResult struct {
	Profile  *protocol.Profile
	ProbeRaw []byte
}

// Detect sweeps the profile registry in order, sending each profile's
// probe and accepting the first whose reply decodes under that profile's
// framing. A full-sweep miss is ErrDetectionFailed; the usual cause is a
// wrong line rate, which the baud sweep diagnostic finds.
func Detect(ctx context.Context, port serialio.Port, timeout time.Duration) (*DetectionResult, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	for _, p := range protocol.Profiles {
		log.Debug().Str("profile", p.ID).Msg("probing")
		// Probes get no resend: a silent profile is simply not the one
		// connected, and the sweep moves on.
		sess := &Session{Port: port, Profile: p, Timeout: timeout, Retries: 0}
		dec, err := sess.Do(ctx, protocol.Command{Op: p.Probe})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Debug().Str("profile", p.ID).Err(err).Msg("no probe reply")
			continue
		}
		log.Info().
			Str("profile", p.ID).
			Str("reply", protocol.HexString(dec.Raw)).
			Msg("reader identified")
		return &DetectionResult{Profile: p, ProbeRaw: dec.Raw}, nil
	}
	return nil, ErrDetectionFailed
}
