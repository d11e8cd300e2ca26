//go:build cgo

package main

import (
	"github.com/padgrid/padgrid/gomidi"
)

func newMidiContext() midiContext {
	return gomidi.NewContext()
}
