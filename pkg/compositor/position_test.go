package compositor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBoxOrigin(t *testing.T) {
	type origin struct{ x, y int }
	check := func(pos Position, want origin) {
		x, y := boxOrigin(pos, 100, 50, 1280, 720)
		require.Equal(t, want, origin{x, y}, "position %q", pos)
	}

	check(PositionTopLeft, origin{10, 10})
	check(PositionTopRight, origin{1280 - 100 - 10, 10})
	check(PositionTopCenter, origin{(1280 - 100) / 2, 10})
	check(PositionBottomLeft, origin{10, 720 - 50 - 60})
	check(PositionBottomRight, origin{1280 - 100 - 10, 720 - 50 - 60})
	check(PositionCenter, origin{(1280 - 100) / 2, (720 - 50) / 2})

	// unknown names fall back to the top-left corner
	check(Position("somewhere"), origin{10, 10})
}
