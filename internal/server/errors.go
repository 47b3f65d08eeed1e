package server

import "errors"

// Viewer-side errors
var (
	ErrHubClosed         = errors.New("hub is closed")
	ErrFeedClosed        = errors.New("feed is closed")
	ErrNilDependency     = errors.New("nil dependency")
	ErrFrameTooLarge     = errors.New("frame exceeds size limit")
	ErrUnexpectedPayload = errors.New("unexpected step payload")
)
