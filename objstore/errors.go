package objstore

import "errors"

// Sentinel errors for package objstore.
var (
	ErrReservationConflict = errors.New("reserved object id already present in store")
	ErrUnknownObject       = errors.New("object not in store")
	ErrScratchName         = errors.New("object id collides with scratch naming")
)
