// Package aiff decodes AIFF files into the audio.Source stream interface,
// wrapping github.com/go-audio/aiff.
package aiff
