// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// bureau-inference sends request files through an inference bridge.
// It loads a bridge configuration file, opens the bridge (spawning the
// worker), predicts each request file in order, and closes the bridge.
//
// Responses are written next to each request as <name>.response, or
// into --output-dir. With --diagnose each response is decoded as CBOR
// and printed in diagnostic notation instead, which is how the
// end-to-end setup of a new model is usually checked.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/inferencebridge/bridge"
	"github.com/bureau-foundation/inferencebridge/lib/codec"
	"github.com/bureau-foundation/inferencebridge/lib/config"
	"github.com/bureau-foundation/inferencebridge/lib/logging"
	"github.com/bureau-foundation/inferencebridge/lib/process"
	"github.com/bureau-foundation/inferencebridge/lib/version"
)

// closeTimeout bounds how long the worker gets to exit after
// end-of-stream before it is killed.
const closeTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

type options struct {
	configPath string
	profile    string
	outputDir  string
	diagnose   bool
	logLevel   string
}

func run() error {
	var opts options
	flagSet := pflag.NewFlagSet("bureau-inference", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.configPath, "config", "c", "", "bridge config file (.yaml, .yml, .json, .jsonc); default $"+config.PathEnv)
	flagSet.StringVar(&opts.profile, "profile", "", "config profile to apply; default $"+config.ProfileEnv)
	flagSet.StringVarP(&opts.outputDir, "output-dir", "o", "", "directory for .response files (default: next to each request)")
	flagSet.BoolVar(&opts.diagnose, "diagnose", false, "print responses as CBOR diagnostic notation instead of writing files")
	flagSet.StringVar(&opts.logLevel, "log-level", "info", "minimum log level: debug, info, warn, error")
	flagSet.BoolP("help", "h", false, "show help")

	// Handle --version before flag parsing to match the worker binary.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Println(version.Banner("bureau-inference"))
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	requests := flagSet.Args()
	if len(requests) == 0 {
		return errors.New("at least one request file is required")
	}

	level, err := logging.ParseLevel(opts.logLevel)
	if err != nil {
		return err
	}
	logger := logging.New(level)
	slog.SetDefault(logger)

	bridgeConfig, err := loadBridgeConfig(opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inference := bridge.New(bridgeConfig, bridge.Options{Logger: logger})
	if err := inference.Open(ctx); err != nil {
		return err
	}

	predictErr := predictAll(ctx, inference, requests, opts, logger)

	closeContext, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	closeErr := inference.Close(closeContext)
	return errors.Join(predictErr, closeErr)
}

func loadBridgeConfig(opts options) (bridge.Config, error) {
	var (
		values map[string]any
		err    error
	)
	if opts.configPath == "" {
		values, err = config.Load(opts.profile)
	} else {
		profile := opts.profile
		if profile == "" {
			profile = os.Getenv(config.ProfileEnv)
		}
		values, err = config.LoadProfile(opts.configPath, profile)
	}
	if err != nil {
		return bridge.Config{}, err
	}
	return bridge.ConfigFromMap(values)
}

// predictAll sends each request in order. It stops at the first
// failure: after a worker crash or an interruption no later response
// could be trusted.
func predictAll(ctx context.Context, inference *bridge.Bridge, requests []string, opts options, logger *slog.Logger) error {
	for _, requestPath := range requests {
		request, err := os.ReadFile(requestPath)
		if err != nil {
			return fmt.Errorf("reading request: %w", err)
		}
		started := time.Now() //nolint:realclock wall-clock duration for the log
		response, err := inference.Predict(ctx, request)
		if err != nil {
			return fmt.Errorf("predicting %s: %w", requestPath, err)
		}
		logger.Info("prediction complete",
			"request", requestPath,
			"request_bytes", len(request),
			"response_bytes", len(response),
			"duration", time.Since(started), //nolint:realclock
		)

		if opts.diagnose {
			notation, err := codec.Diagnose(response)
			if err != nil {
				return fmt.Errorf("response to %s is not CBOR: %w", requestPath, err)
			}
			fmt.Printf("%s: %s\n", filepath.Base(requestPath), notation)
			continue
		}

		if err := writeResponse(requestPath, opts.outputDir, response); err != nil {
			return err
		}
	}
	return nil
}

// responsePath returns where the response to requestPath is written.
func responsePath(requestPath, outputDir string) string {
	name := filepath.Base(requestPath) + ".response"
	if outputDir == "" {
		return filepath.Join(filepath.Dir(requestPath), name)
	}
	return filepath.Join(outputDir, name)
}

func writeResponse(requestPath, outputDir string, response []byte) error {
	path := responsePath(requestPath, outputDir)
	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, response, 0o644); err != nil {
		return fmt.Errorf("writing response: %w", err)
	}
	return nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `bureau-inference - send request files through an inference bridge

USAGE
    bureau-inference [flags] REQUEST...

FLAGS
%s
EXAMPLES
    # Check a new model end to end
    bureau-inference --config ranker.yaml --diagnose batch.cbor

    # Debug the worker in-process under the host's debugger
    bureau-inference --config ranker.yaml --profile debug batch.cbor
`, flagSet.FlagUsages())
}
