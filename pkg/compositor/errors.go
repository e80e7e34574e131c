package compositor

import (
	"errors"
)

// ErrAssetLoad indicates a missing or undecodable asset file (overlay
// image, ticker text, indicator data). The layer keeps its previous state
// when a load fails.
var ErrAssetLoad = errors.New("unable to load asset")
