package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/barcodeworks/scanctl/internal/serialio"
)

// SweepRates are the line rates tried by the baud sweep diagnostic, the
// rates the supported readers can be configured to.
var SweepRates = []int{9600, 14400, 19200, 38400, 57600, 115200}

// SweepBaudrates probes the reader at each candidate rate and returns the
// rates at which a supported reader answered. It is a diagnostic for
// failed detection; the device itself is never reconfigured. The port is
// left at the last rate tried.
func SweepBaudrates(ctx context.Context, port serialio.Port, rates []int, timeout time.Duration) ([]int, error) {
	if len(rates) == 0 {
		rates = SweepRates
	}

	var working []int
	for _, rate := range rates {
		if err := ctx.Err(); err != nil {
			return working, err
		}
		if err := port.SetBaudRate(rate); err != nil {
			return working, fmt.Errorf("switch to %d baud: %w", rate, err)
		}
		res, err := Detect(ctx, port, timeout)
		if err != nil {
			log.Debug().Int("baud", rate).Msg("no reader at this rate")
			continue
		}
		log.Info().Int("baud", rate).Str("profile", res.Profile.ID).Msg("reader answered")
		working = append(working, rate)
	}
	return working, nil
}
