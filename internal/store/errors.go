package store

import "errors"

// ErrSequenceTaken reports that another ticket already holds the
// (counter, day, sequence) key.
var ErrSequenceTaken = errors.New("sequence number already taken")
