// Package oto wraps the oto/v3 platform audio output behind the
// padgrid.AudioContext interface. The engine renders by being pulled as an
// io.Reader, so the platform driver sets the pace and no intermediate
// buffering happens here.
package oto

import (
	"fmt"
	"io"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/padgrid/padgrid"
)

type (
	Context struct {
		context *oto.Context
	}

	Player struct {
		player *oto.Player
	}
)

const contextReadyTimeout = 5 * time.Second

// NewContext opens the platform audio device at rate in stereo float32.
// Blocks until the device is ready.
func NewContext(rate int) (*Context, error) {
	op := &oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	}
	context, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	select {
	case <-ready:
	case <-time.After(contextReadyTimeout):
		return nil, fmt.Errorf("oto context not ready after %v", contextReadyTimeout)
	}
	return &Context{context: context}, nil
}

// Play starts pulling little-endian float32 stereo from r and playing it.
func (c *Context) Play(r io.Reader) padgrid.CloserWaiter {
	p := c.context.NewPlayer(r)
	p.Play()
	return Player{player: p}
}

func (c *Context) Close() error {
	// oto contexts cannot be closed; the process owns the device until exit
	return nil
}

func (p Player) Close() error {
	if err := p.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}

// Wait blocks until the player drains. The underlying player has no
// completion signal so this polls.
func (p Player) Wait() {
	for p.player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}
}
