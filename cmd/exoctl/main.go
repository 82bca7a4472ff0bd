package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"os"

	"exoplanet-api/internal/client"
	"exoplanet-api/internal/common"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const usage = `usage: exoctl [flags] <command> [args]

commands:
  predict <file|->   submit a candidate read from a JSON file or stdin
  fields             list the expected input fields
  health             check that the API is up
  inspect <dir>      load a model directory locally and classify a sample

flags:
`

func main() {
	var (
		server    = flag.String("server", envOrDefault(common.EnvServerURL, common.DefaultServerURL), "API base URL")
		timeout   = flag.Duration("timeout", common.DefaultClientTimeout, "Request timeout")
		threshold = flag.Float64("threshold", -1, "Decision threshold override in [0,1] (predict and inspect)")
		python    = flag.String("python", os.Getenv(common.EnvPythonPath), "Python interpreter for AutoGluon models (inspect only)")
		logLevel  = flag.String("log-level", "warn", "Log level: debug, info, warn, error")
	)
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	c := client.New(*server, *timeout)
	ctx := context.Background()

	thresholdSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "threshold" {
			thresholdSet = true
		}
	})
	override, err := thresholdOverride(*threshold, thresholdSet)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid flag")
	}

	var out any
	switch cmd := flag.Arg(0); cmd {
	case "predict":
		if flag.NArg() < 2 {
			log.Fatal().Msg("predict needs a file argument, use - for stdin")
		}
		candidate, err := readCandidate(flag.Arg(1))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to read candidate")
		}
		if override != nil {
			candidate["threshold"] = *override
		}
		out, err = c.Predict(ctx, candidate)
		if err != nil {
			log.Fatal().Err(err).Msg("prediction failed")
		}
	case "fields":
		out, err = c.Fields(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to fetch fields")
		}
	case "health":
		out, err = c.Health(ctx)
		if err != nil {
			log.Fatal().Err(err).Str("server", *server).Msg("health check failed")
		}
	case "inspect":
		if flag.NArg() < 2 {
			log.Fatal().Msg("inspect needs a model directory")
		}
		out, err = inspectModel(ctx, flag.Arg(1), *python, override)
		if err != nil {
			log.Fatal().Err(err).Msg("model inspection failed")
		}
	default:
		log.Error().Str("command", cmd).Msg("unknown command")
		flag.Usage()
		os.Exit(2)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatal().Err(err).Msg("failed to write output")
	}
}

func readCandidate(path string) (map[string]any, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var candidate map[string]any
	if err := json.NewDecoder(r).Decode(&candidate); err != nil {
		return nil, fmt.Errorf("invalid candidate JSON: %w", err)
	}
	if candidate == nil {
		candidate = map[string]any{}
	}
	return candidate, nil
}

// thresholdOverride returns nil when -threshold was not given. A given value
// must lie in [0,1], like the server's threshold field.
func thresholdOverride(v float64, set bool) (*float64, error) {
	if !set {
		return nil, nil
	}
	if math.IsNaN(v) || v < common.MinThreshold || v > common.MaxThreshold {
		return nil, fmt.Errorf("threshold must be between %g and %g, got %g", common.MinThreshold, common.MaxThreshold, v)
	}
	return &v, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
