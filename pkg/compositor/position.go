package compositor

// Position is one of the named overlay anchor points.
type Position string

const (
	PositionTopLeft     = Position("top-left")
	PositionTopRight    = Position("top-right")
	PositionTopCenter   = Position("top-center")
	PositionBottomLeft  = Position("bottom-left")
	PositionBottomRight = Position("bottom-right")
	PositionCenter      = Position("center")
)

const (
	positionMargin       = 10
	positionBottomOffset = 60 // keeps bottom boxes clear of the ticker bar
)

// boxOrigin resolves a named position to the top-left corner of a box of
// the given size on the canvas. Unrecognized names resolve to top-left.
func boxOrigin(pos Position, boxW, boxH, canvasW, canvasH int) (int, int) {
	switch pos {
	case PositionTopRight:
		return canvasW - boxW - positionMargin, positionMargin
	case PositionTopCenter:
		return (canvasW - boxW) / 2, positionMargin
	case PositionBottomLeft:
		return positionMargin, canvasH - boxH - positionBottomOffset
	case PositionBottomRight:
		return canvasW - boxW - positionMargin, canvasH - boxH - positionBottomOffset
	case PositionCenter:
		return (canvasW - boxW) / 2, (canvasH - boxH) / 2
	default:
		return positionMargin, positionMargin
	}
}
