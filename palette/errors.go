package palette

import "errors"

var (
	ErrInvalidColorFormat        = errors.New("invalid color format")
	ErrInsufficientControlColors = errors.New("at least 2 control colors are required")
	ErrDegenerateSegment         = errors.New("degenerate gradient segment")
	ErrAnchorRange               = errors.New("gradient anchors must span [0, 1]")
)
