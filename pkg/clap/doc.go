// Package clap detects clap sequences in a stream of audio amplitudes.
//
// The package has two parts:
//   - RMS converts a block of PCM16 samples into a loudness metric.
//   - Detector consumes (timestamp, amplitude, threshold) triples and
//     emits ClapDetected, SequenceCompleted and SequenceReset events.
//
// Detector is a pure reducer with a single writer. It never blocks and
// needs no goroutine, so tests can drive it with synthetic input:
//
//	d, _ := clap.NewDetector(clap.DefaultConfig())
//	for _, ev := range d.Process(0, 3000, 2000) {
//		fmt.Println(ev)
//	}
//
// The live threshold is shared through Threshold, which is lock-free and
// may be written from any goroutine while the processing loop reads it.
package clap
