// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// bureau-inference-worker is the external inference worker. The host
// spawns it with five positional arguments:
//
//	bureau-inference-worker PREDICTOR READ_QUEUE WRITE_QUEUE CONFIG READY_MARKER
//
// It binds both queues, sets up the predictor, deletes the readiness
// marker, and answers requests until the host writes end-of-stream.
// It exits 0 after a clean end-of-stream and nonzero on any failure.
// Logs go to stderr, where the host collects them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/inferencebridge/lib/logging"
	"github.com/bureau-foundation/inferencebridge/lib/process"
	"github.com/bureau-foundation/inferencebridge/lib/version"
	"github.com/bureau-foundation/inferencebridge/lib/worker"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	// Handle --version before flag parsing to match the host binary.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Println(version.Banner("bureau-inference-worker"))
		return nil
	}

	flagSet := pflag.NewFlagSet("bureau-inference-worker", pflag.ContinueOnError)
	flagSet.BoolP("help", "h", false, "show help")
	// Positional arguments are paths and encoded config; stop at the
	// first one.
	flagSet.SetInterspersed(false)
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

	logger := logging.New(logging.LevelFromEnv())
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("inference worker starting",
		"version", version.Info(),
		"pid", os.Getpid(),
		"predictors", strings.Join(worker.Names(), ","),
	)
	return worker.Run(ctx, flagSet.Args(), worker.RunOptions{Logger: logger})
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `bureau-inference-worker - answer inference requests for a bureau-inference host

USAGE
    bureau-inference-worker PREDICTOR READ_QUEUE WRITE_QUEUE CONFIG READY_MARKER

The host starts this binary; it is not meant to be run by hand.

PREDICTORS
    %s

FLAGS
%s`, strings.Join(worker.Names(), ", "), flagSet.FlagUsages())
}
