package domain

import "errors"

var (
	ErrBatchNotFound       = errors.New("batch not found")
	ErrEntryNotFound       = errors.New("entry not found")
	ErrEmptyImage          = errors.New("image bytes are empty")
	ErrImageTooLarge       = errors.New("image exceeds maximum allowed size")
	ErrUnsupportedImage    = errors.New("unsupported image type")
	ErrBatchSizeOutOfRange = errors.New("batch must contain between 1 and 10 tasks")
	ErrBatchNotTerminal    = errors.New("batch has not finished processing")
	ErrDuplicateTaskID     = errors.New("task identifier already present in batch")
	ErrUnknownField        = errors.New("unknown entry field")
)
