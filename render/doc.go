// Package render drives an fm.Module outside a modular host: offline
// rendering to per-voice buffers, WAV export and a pull-based float32
// stream for audio devices.
package render
