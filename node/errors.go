package node

import "errors"

// Sentinel errors for consistent error handling.
var (
	ErrNodeClosed         = errors.New("node closed")
	ErrInvalidConfig      = errors.New("invalid node config")
	ErrIndexNotFound      = errors.New("index not found")
	ErrIndexAlreadyExists = errors.New("index already exists")
	ErrInvalidIndexName   = errors.New("invalid index name")
	ErrAliasConflict      = errors.New("alias conflict")
	ErrInvalidSettings    = errors.New("invalid index settings")
	ErrInvalidMapping     = errors.New("invalid index mapping")
	ErrInvalidQuery       = errors.New("invalid query")
	ErrEmptyBulk          = errors.New("bulk request has no items")
)
