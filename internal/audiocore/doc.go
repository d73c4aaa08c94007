// Package audiocore defines the shared types of the audio visualization
// pipeline: captured frames, analysis windows, visualization frames, and the
// AudioSource and Analyzer contracts implemented by the sources and analyzers
// subpackages.
//
// # Architecture Overview
//
//	AudioSource -> capture.FrameBuffer -> Analyzer -> processors.SensitivityController -> visualizer.Engine
//
// Sources produce interleaved 16-bit PCM frames. The frame buffer downmixes
// them to mono and cuts overlapping analysis windows. An analyzer turns a
// window into a fixed number of normalized magnitudes, the sensitivity
// controller scales them, and the engine delivers them to subscribers at a
// capped rate.
//
// # Concurrency and Thread Safety
//
//   - AudioSource: Read is called from a single capture goroutine. Close may
//     be called concurrently with a blocked Read and must unblock it.
//   - Analyzer: Analyze is called from a single processing goroutine; all
//     normalization state is passed in and returned, so analyzers hold no
//     mutable state between calls.
//   - MetricsCollector: safe for concurrent use, a nil or disabled collector
//     is a no-op.
//
// # Error Handling
//
// Sentinel errors in this package are wrapped with the errors package builder
// at the failure site. Use errors.Is to test for them.
package audiocore
