// Package visualizer runs live visualization sessions.
//
// An Engine owns one audio source, one analyzer and a registry of
// subscribers. Start opens the source and launches three stages bound to a
// session context:
//
//	capture:    source.Read -> FrameBuffer.Push -> wake
//	processing: FrameBuffer.TryTakeWindow -> Analyze -> sensitivity -> emitter
//	emitter:    rate limited, latest frame wins -> per-subscriber mailbox
//
// Every subscriber has a one-slot mailbox and its own goroutine, so a slow
// callback only skips frames for itself. Stop cancels the session and returns
// after every stage and subscriber goroutine has exited.
package visualizer
