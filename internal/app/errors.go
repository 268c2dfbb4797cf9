package app

import "errors"

var (
	// ErrArtifactsDisabled indicates no object store is configured.
	ErrArtifactsDisabled = errors.New("artifact store not configured")
)
