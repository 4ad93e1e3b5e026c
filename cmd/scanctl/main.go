package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"

	"github.com/barcodeworks/scanctl/internal/config"
	"github.com/barcodeworks/scanctl/internal/serialio"
	"github.com/barcodeworks/scanctl/pkg/protocol"
	"github.com/barcodeworks/scanctl/pkg/scanner"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "scanctl: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := flag.NewFlagSet("scanctl", flag.ExitOnError)
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: scanctl <port> [flags]\n\n")
		fmt.Fprintf(os.Stderr, "With no command flags, captures scans for the configured window.\n\n")
		flags.PrintDefaults()
	}

	hwVersion := flags.Bool("hw-version", false, "report hardware version")
	swVersion := flags.Bool("sw-version", false, "report software version")
	swYear := flags.Bool("sw-year", false, "report software year")
	getSettings := flags.Bool("get-settings", false, "read the settings-zone byte")
	setSettings := flags.Int("set-settings", 0, "write the settings-zone byte (0-255) and save")
	setIllum := flags.Int("set-illumination", 0, "illumination: -1 off, 0 normal, 1 always on")
	setAimer := flags.Int("set-aimer", 0, "aimer: -1 off, 0 normal, 1 always on")
	setBeeper := flags.Int("set-beeper", 0, "beeper: -1 mute, 1 on")
	setReadInterval := flags.Int("set-read-interval", 0, "delay between reads, 100ms units")
	setSameDelay := flags.Int("set-same-barcode-delay", 0, "same-barcode re-read delay, 100ms units")
	rawCmd := flags.String("send-raw-cmd", "", "send literal hex bytes (e.g. 7e-00-07-01-00-e2-01-ab-cd)")
	saveSettings := flags.Bool("save-settings", false, "persist settings to the reader's EEPROM")
	setContinuous := flags.Bool("set-continuous-mode", false, "switch the reader to continuous scan mode")
	setCommand := flags.Bool("set-command-mode", false, "switch the reader to command mode")
	setBaudrate := flags.Int("set-baudrate", 0, "reconfigure the reader's baud rate and verify")
	localBaud := flags.Int("baudrate", 0, "local transport baud rate (default from config, 9600)")
	testBaudrates := flags.Bool("test-baudrates", false, "probe every known baud rate and report which answer")
	scannerName := flags.String("scanner", "", "skip detection: gm65 or m3y")
	verbose := flags.BoolP("verbose", "v", false, "debug logging (frame hex dumps)")

	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		flags.Usage()
		return fmt.Errorf("exactly one serial port argument required")
	}
	portName := flags.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level, lerr := zerolog.ParseLevel(cfg.LogLevel)
	if lerr != nil {
		level = zerolog.InfoLevel
	}
	if *verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	baud := cfg.Baud
	if flags.Changed("baudrate") {
		baud = *localBaud
	}
	port, err := serialio.Open(portName, baud)
	if err != nil {
		return err
	}
	defer port.Close()

	if *testBaudrates {
		working, err := scanner.SweepBaudrates(ctx, port, nil, cfg.ReadTimeout)
		if err != nil {
			return err
		}
		if len(working) == 0 {
			return fmt.Errorf("no reader answered at any known baud rate")
		}
		fmt.Printf("reader answers at: %s\n", joinInts(working))
		return nil
	}

	profile, probeRaw, err := selectProfile(ctx, port, *scannerName, cfg.ReadTimeout)
	if err != nil {
		return err
	}
	fmt.Printf("reader: %s\n", profile.Name)
	if len(probeRaw) > 0 {
		log.Debug().Str("probe", protocol.HexString(probeRaw)).Msg("detection reply")
	}

	sess := scanner.NewSession(port, profile)
	sess.Timeout = cfg.ReadTimeout
	sess.Retries = cfg.Retries

	switch {
	case *hwVersion:
		return query(ctx, sess, protocol.OpGetHwVersion, "hardware version")
	case *swVersion:
		return query(ctx, sess, protocol.OpGetSwVersion, "software version")
	case *swYear:
		return query(ctx, sess, protocol.OpGetSwYear, "software year")

	case *getSettings:
		settings, err := sess.GetSettings(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("settings: 0x%02X (0b%08b)\n", settings, settings)
		return nil

	case flags.Changed("set-settings"):
		if *setSettings < 0 || *setSettings > 0xFF {
			return fmt.Errorf("--set-settings wants 0-255, got %d", *setSettings)
		}
		if err := sess.SetSettings(ctx, byte(*setSettings)); err != nil {
			return err
		}
		fmt.Printf("settings written and saved: 0x%02X\n", *setSettings)
		return nil

	case flags.Changed("set-illumination"):
		return report(sess.SetIllumination(ctx, *setIllum), "illumination", *setIllum)
	case flags.Changed("set-aimer"):
		return report(sess.SetAimer(ctx, *setAimer), "aimer", *setAimer)
	case flags.Changed("set-beeper"):
		return report(sess.SetBeeper(ctx, *setBeeper), "beeper", *setBeeper)

	case flags.Changed("set-read-interval"):
		return report(sess.SetReadInterval(ctx, *setReadInterval), "read interval", *setReadInterval)
	case flags.Changed("set-same-barcode-delay"):
		return report(sess.SetSameBarcodeDelay(ctx, *setSameDelay), "same-barcode delay", *setSameDelay)

	case *saveSettings:
		if _, err := sess.Do(ctx, protocol.Command{Op: protocol.OpSaveSettings}); err != nil {
			return err
		}
		fmt.Println("settings saved to EEPROM")
		return nil

	case *setContinuous:
		return modeSwitch(ctx, sess, protocol.OpSetContinuousMode, "continuous mode set")
	case *setCommand:
		return modeSwitch(ctx, sess, protocol.OpSetCommandMode, "command mode set")

	case flags.Changed("set-baudrate"):
		if err := sess.SetBaudrate(ctx, *setBaudrate); err != nil {
			return err
		}
		fmt.Printf("reader and transport now at %d baud\n", *setBaudrate)
		return nil

	case *rawCmd != "":
		frame, err := protocol.ParseHexString(*rawCmd)
		if err != nil {
			return fmt.Errorf("--send-raw-cmd: %w", err)
		}
		fmt.Printf("sent: %s\n", protocol.HexString(frame))
		reply, err := sess.Raw(ctx, frame)
		if err != nil {
			return err
		}
		fmt.Printf("got:  %s\n", protocol.HexString(reply))
		return nil
	}

	// No command flags: capture mode.
	return capture(ctx, sess, port, profile, cfg.ScanWindow)
}

func selectProfile(ctx context.Context, port serialio.Port, name string, timeout time.Duration) (*protocol.Profile, []byte, error) {
	if name != "" {
		p, ok := protocol.ProfileByName(name)
		if !ok {
			return nil, nil, fmt.Errorf("unknown scanner %q (want gm65 or m3y)", name)
		}
		return p, nil, nil
	}
	res, err := scanner.Detect(ctx, port, timeout)
	if err != nil {
		return nil, nil, err
	}
	return res.Profile, res.ProbeRaw, nil
}

func query(ctx context.Context, sess *scanner.Session, op protocol.Op, label string) error {
	dec, err := sess.Do(ctx, protocol.Command{Op: op})
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s\n", label, renderData(dec.Data))
	return nil
}

func report(err error, what string, value int) error {
	if err != nil {
		return err
	}
	fmt.Printf("%s set to %d and saved\n", what, value)
	return nil
}

func modeSwitch(ctx context.Context, sess *scanner.Session, op protocol.Op, done string) error {
	if _, err := sess.Do(ctx, protocol.Command{Op: op}); err != nil {
		return err
	}
	fmt.Println(done)
	return nil
}

func capture(ctx context.Context, sess *scanner.Session, port serialio.Port, profile *protocol.Profile, window time.Duration) error {
	// Kick the reader into continuous mode when the protocol has a switch
	// for it, then listen for payloads.
	if profile.Supports(protocol.OpSetContinuousMode) {
		if _, err := sess.Do(ctx, protocol.Command{Op: protocol.OpSetContinuousMode}); err != nil {
			log.Warn().Err(err).Msg("could not start continuous mode, listening anyway")
		}
	}

	fmt.Printf("scanning for %s...\n", window)
	listener := &scanner.Listener{Port: port, Window: window}
	scans, err := listener.Run(ctx)

	if profile.Supports(protocol.OpSetCommandMode) {
		if _, serr := sess.Do(ctx, protocol.Command{Op: protocol.OpSetCommandMode}); serr != nil {
			log.Warn().Err(serr).Msg("could not stop continuous mode")
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if len(scans) == 0 {
		fmt.Println("no scans captured")
		return nil
	}
	for _, s := range scans {
		fmt.Println(s)
	}
	return nil
}

func renderData(data []byte) string {
	if len(data) == 1 {
		return fmt.Sprintf("%d (0x%02X)", data[0], data[0])
	}
	if printable(data) {
		return fmt.Sprintf("%s (%s)", string(data), protocol.HexString(data))
	}
	return protocol.HexString(data)
}

func printable(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if c < 0x20 || c > 0x7E {
			return false
		}
	}
	return true
}

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}
