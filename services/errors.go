package services

import "errors"

var (
	ErrUnknownPlatform  = errors.New("unknown platform")
	ErrExtractionFailed = errors.New("no price could be extracted")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrNotFound         = errors.New("property not found")
)
