package starmap

import "github.com/saworbit/orbit-sub003/orbiterrors"

// Sentinel failure modes for opening and querying a Star Map. Each is an
// orbiterrors.Corruption, NotFound, or (for ErrEmpty) PolicyViolation so callers can still
// classify by Kind, while returning the sentinel itself (rather than
// wrapping it further) keeps errors.Is identity checks working.
var (
	ErrEmpty                  = orbiterrors.New(orbiterrors.PolicyViolation, "starmap: empty map (zero chunks or zero windows)")
	ErrInvalidMagic           = orbiterrors.New(orbiterrors.Corruption, "starmap: invalid magic")
	ErrVersionMismatch        = orbiterrors.New(orbiterrors.Corruption, "starmap: version mismatch")
	ErrCorruptData            = orbiterrors.New(orbiterrors.Corruption, "starmap: table sizes inconsistent with header")
	ErrChunkIndexOutOfBounds  = orbiterrors.New(orbiterrors.NotFound, "starmap: chunk index out of bounds")
	ErrWindowIndexOutOfBounds = orbiterrors.New(orbiterrors.NotFound, "starmap: window index out of bounds")
)
