// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bridge runs numeric inference in a separate worker and gives
// the host near-synchronous request/response calls over it.
//
// A [Bridge] moves opaque, already encoded batches. [Bridge.Open]
// allocates a private session directory holding an input queue, an
// output queue, and a readiness marker, launches the worker (a child
// process, or a goroutine when the worker config sets thread_mode),
// and blocks until the worker deletes the marker. [Bridge.Predict]
// appends one request frame and waits for the next response frame,
// racing the worker's termination so a crashed worker fails the call
// instead of hanging it. [Bridge.Close] writes end-of-stream, deletes
// the session files, and joins the worker.
//
// The state machine is Unopened, Open, Closed, plus Broken: a Predict
// abandoned by its context leaves a response in flight that would
// pair with the next request, so the bridge refuses further Predict
// calls and only Close remains useful.
//
// Calls are serialized; there is one outstanding request at a time.
//
// Configuration arrives as a map (see [ConfigFromMap]) so a host can
// pass the same values it loads with lib/config:
//
//	predictor: ranker
//	library_path: /opt/onnxruntime/lib
//	handshake_timeout: 2m
//	compression: lz4
//	worker:
//	  model_path: /models/ranker.onnx
//	  intra_op_num_threads: 2
package bridge
