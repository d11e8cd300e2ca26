// Package gomidi maps MIDI note input onto the pad grid through the rtmidi
// driver. Notes 36..71 address pads 0..35, the layout hardware pad
// controllers use; everything else is ignored.
package gomidi

import (
	"errors"
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/padgrid/padgrid/engine"
)

const (
	baseNote = 36 // note of pad 0

	eventBufSize = 1024
)

type (
	RTMIDIContext struct {
		driver    *rtmididrv.Driver
		currentIn drivers.In
		events    chan noteMsg
	}

	RTMIDIDevice struct {
		context *RTMIDIContext
		in      drivers.In
	}

	noteMsg struct {
		on       bool
		note     uint8
		velocity uint8
	}
)

// NewContext opens the rtmidi driver. A machine with no MIDI support yields a
// context with no devices rather than an error.
func NewContext() *RTMIDIContext {
	m := RTMIDIContext{events: make(chan noteMsg, eventBufSize)}
	// there's not much we can do if this fails, so just use m.driver = nil to
	// indicate no driver available
	m.driver, _ = rtmididrv.New()
	return &m
}

func (c *RTMIDIContext) InputDevices(yield func(RTMIDIDevice) bool) {
	if c.driver == nil {
		return
	}
	ins, err := c.driver.Ins()
	if err != nil {
		return
	}
	for _, in := range ins {
		if !yield(RTMIDIDevice{context: c, in: in}) {
			break
		}
	}
}

// TryToOpenBy opens the first input whose name starts with namePrefix, or
// just the first input when takeFirst is set.
func (c *RTMIDIContext) TryToOpenBy(namePrefix string, takeFirst bool) {
	if namePrefix == "" && !takeFirst {
		return
	}
	for device := range c.InputDevices {
		if takeFirst || strings.HasPrefix(device.String(), namePrefix) {
			device.Open()
			return
		}
	}
}

// Open an input device, closing the currently open one if necessary.
func (d RTMIDIDevice) Open() error {
	if d.context.currentIn == d.in {
		return nil
	}
	if d.context.driver == nil {
		return errors.New("no driver available")
	}
	if d.context.HasDeviceOpen() {
		d.context.currentIn.Close()
	}
	d.context.currentIn = d.in
	if err := d.in.Open(); err != nil {
		d.context.currentIn = nil
		return fmt.Errorf("opening MIDI input failed: %w", err)
	}
	if _, err := midi.ListenTo(d.in, d.context.handleMessage); err != nil {
		d.in.Close()
		d.context.currentIn = nil
		return fmt.Errorf("listening to MIDI input failed: %w", err)
	}
	return nil
}

func (d RTMIDIDevice) String() string { return d.in.String() }

func (c *RTMIDIContext) HasDeviceOpen() bool {
	return c.currentIn != nil && c.currentIn.IsOpen()
}

func (c *RTMIDIContext) Close() {
	if c.driver == nil {
		return
	}
	if c.currentIn != nil && c.currentIn.IsOpen() {
		c.currentIn.Close()
	}
	c.driver.Close()
}

// handleMessage runs on the driver's callback goroutine; it only queues. If
// the channel is full the message is dropped.
func (c *RTMIDIContext) handleMessage(msg midi.Message, timestampms int32) {
	var channel, key, velocity uint8
	switch {
	case msg.GetNoteOn(&channel, &key, &velocity):
		select {
		case c.events <- noteMsg{on: true, note: key, velocity: velocity}:
		default:
		}
	case msg.GetNoteOff(&channel, &key, &velocity):
		select {
		case c.events <- noteMsg{on: false, note: key}:
		default:
		}
	}
}

// Dispatch drains queued notes into the model. Call it from the goroutine
// that owns the model; pads without a sample and notes outside the grid are
// ignored.
func (c *RTMIDIContext) Dispatch(m *engine.Model) {
	for {
		select {
		case msg := <-c.events:
			pad := int(msg.note) - baseNote
			if pad < 0 || pad >= engine.NumPads {
				continue
			}
			if msg.on && msg.velocity > 0 {
				m.Trigger(pad, float32(msg.velocity)/127)
			} else {
				m.Stop(pad)
			}
		default:
			return
		}
	}
}
