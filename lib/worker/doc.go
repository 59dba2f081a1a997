// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package worker implements the worker side of the inference bridge.
//
// A worker is started with five positional arguments (see [Arguments]):
// the predictor name, the queue it reads requests from, the queue it
// writes responses to, its [Config] in text form, and the readiness
// marker path. [Run] binds both queues, builds the predictor (which
// typically loads a model), deletes the readiness marker, and then
// answers one response per request, in order, until the host writes
// end-of-stream.
//
// The same [Run] serves as the body of the bureau-inference-worker
// binary and as the entry function of an in-process worker, so both
// launch strategies exercise identical code.
//
// Predictors are registered by name with [Register], usually from an
// init function. The package registers "echo", which answers every
// request with its own bytes.
package worker
