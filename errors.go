package modelarena

import "errors"

var (
	// ErrModelNotFound is returned when a selected model id does not exist
	// for the user.
	ErrModelNotFound = errors.New("modelarena: model not found")

	// ErrDatasetNotFound is returned when a selected dataset id does not
	// exist for the user.
	ErrDatasetNotFound = errors.New("modelarena: dataset not found")

	// ErrJudgeNotConfigured is returned when a judged benchmark is run
	// without a judge model.
	ErrJudgeNotConfigured = errors.New("modelarena: judge model not configured")

	// ErrBlindTestNotFound is returned for an unknown blind test id.
	ErrBlindTestNotFound = errors.New("modelarena: blind test not found")

	// ErrInvalidID is returned for ids that are neither numeric nor carry
	// a known prefix.
	ErrInvalidID = errors.New("modelarena: invalid id")

	// ErrUnsupportedFormat is returned for uploads that are not CSV or XLSX.
	ErrUnsupportedFormat = errors.New("modelarena: unsupported dataset format")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("modelarena: invalid configuration")
)
