// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package runtime defines the boundary between the task execution bridge and
// the conversational agent runtime that does the reasoning and tool calls.
//
// A Runner executes one turn of an Agent for a session and returns the
// turn's events as an iterator:
//
//	for ev, err := range runner.Run(ctx, userID, sessionID, runtime.NewUserContent(query)) {
//		if err != nil {
//			return err
//		}
//		if ev.IsFinalResponse() {
//			// publish the answer, but keep draining
//		}
//	}
//
// The sequence must be consumed to the end: after-agent callbacks, such as
// persisting the session to the memory service, run after the final event is
// yielded and are skipped if the consumer stops early.
package runtime
