package audio

import "errors"

var (
	ErrInvalidDstSize     = errors.New("dst size must be multiple of channels")
	ErrUnsupportedLayout  = errors.New("unsupported channel layout: only mono and stereo are supported")
	ErrUnsupportedFormat  = errors.New("no decoder registered for format")
	ErrInvalidTargetRate  = errors.New("target sample rate must be positive")
)
