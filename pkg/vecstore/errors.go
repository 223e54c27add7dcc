package vecstore

import "errors"

var (
	ErrClosed      = errors.New("vecstore: store is closed")
	ErrNotFound    = errors.New("vecstore: vector not found")
	ErrCorrupt     = errors.New("vecstore: snapshot is corrupt")
	ErrElemSize    = errors.New("vecstore: element size mismatch")
	ErrPointerElem = errors.New("vecstore: element type contains pointers")
	ErrName        = errors.New("vecstore: invalid vector name")
)
