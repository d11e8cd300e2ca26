//go:build !cgo

package main

import (
	"github.com/padgrid/padgrid/engine"
)

// with no cgo, we cannot use MIDI, so return a null context
func newMidiContext() midiContext {
	return nullMidiContext{}
}

type nullMidiContext struct{}

func (nullMidiContext) TryToOpenBy(string, bool) {}
func (nullMidiContext) Dispatch(*engine.Model)   {}
func (nullMidiContext) Close()                   {}
