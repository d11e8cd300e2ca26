// Package mp3 decodes MPEG-1 layer 3 streams into the audio.Source stream
// interface, wrapping github.com/hajimehoshi/go-mp3.
package mp3
