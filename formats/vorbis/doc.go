// Package vorbis decodes Ogg Vorbis streams into the audio.Source stream
// interface, wrapping github.com/jfreymuth/oggvorbis.
package vorbis
