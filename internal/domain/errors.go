package domain

import "errors"

var (
	ErrInvalidImage       = errors.New("invalid image")
	ErrProcessingFailed   = errors.New("image processing failed")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrInvalidKind        = errors.New("invalid asset kind")
	ErrInvalidAssetURL    = errors.New("invalid asset url")
)
