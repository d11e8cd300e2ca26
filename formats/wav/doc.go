// Package wav decodes RIFF/WAVE files into the audio.Source stream interface,
// wrapping github.com/go-audio/wav.
package wav
