// Command capture prints an autoauth request body for a simulated device,
// rendered with the software runtime.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"os"

	"github.com/peterbourgon/ff/v3"

	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/capture"
	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/logger"
)

func main() {
	var device capture.DeviceInfo

	fs := flag.NewFlagSet("capture", flag.ContinueOnError)
	mode := fs.String("mode", "structured", "legacy, hashed or structured")
	logLevel := fs.String("log-level", "info", "log level")
	fs.StringVar(&device.Platform, "platform", "Linux x86_64", "device platform")
	fs.StringVar(&device.UserAgent, "user-agent", "", "device user agent")
	fs.IntVar(&device.ScreenWidth, "screen-width", 1920, "screen width")
	fs.IntVar(&device.ScreenHeight, "screen-height", 1080, "screen height")
	fs.Float64Var(&device.PixelRatio, "pixel-ratio", 1, "device pixel ratio")
	fs.Float64Var(&device.DeviceMemory, "device-memory", 8, "device memory in GiB")
	fs.IntVar(&device.ColorDepth, "color-depth", 24, "color depth")
	fs.IntVar(&device.HardwareConcurrency, "hardware-concurrency", 8, "logical cores")

	err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("CAPTURE"))
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	log := logger.New(os.Stderr, *logLevel)
	if err != nil {
		log.Fatal("failed to parse flags", map[string]any{"error": err.Error()})
	}

	c := capture.New(
		capture.NewSoftwareRuntime(device),
		capture.WithTamperHook(func() {
			log.Warn("canvas export primitive tampered, discarding capture", nil)
		}),
	)

	var res capture.Result
	switch *mode {
	case "legacy":
		res, err = c.Legacy()
	case "hashed":
		res, err = c.HashedLegacy()
	case "structured":
		res, err = c.Structured()
	default:
		log.Fatal("unknown mode", map[string]any{"mode": *mode})
	}
	if err != nil {
		log.Fatal("capture failed", map[string]any{"error": err.Error()})
	}

	log.Debug("captured fingerprint", map[string]any{"kind": res.Kind.String()})

	enc := json.NewEncoder(os.Stdout)
	if err := enc.Encode(map[string]any{"fingerprint": res.Fingerprint}); err != nil {
		log.Fatal("failed to write request body", map[string]any{"error": err.Error()})
	}
}
