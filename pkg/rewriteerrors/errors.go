package rewriteerrors

import (
	"strconv"

	"github.com/rs/zerolog"
)

// ConfigError occurs when the dataset or policy file named on the
// command line cannot be read or parsed.
type ConfigError struct {
	error
	path string
	kind string
}

// NewConfigError wraps err as a ConfigError naming the offending file.
func NewConfigError(kind, path string, err error) ConfigError {
	return ConfigError{error: err, path: path, kind: kind}
}

// Path returns the file path that could not be loaded.
func (e ConfigError) Path() string { return e.path }

// MarshalZerologObject implements zerolog object marshalling.
func (e ConfigError) MarshalZerologObject(event *zerolog.Event) {
	event.Err(e.error).Str("path", e.path).Str("kind", e.kind)
}

// DetailsMetadata returns the metadata for details for this error.
func (e ConfigError) DetailsMetadata() map[string]string {
	return map[string]string{
		"path": e.path,
		"kind": e.kind,
	}
}

// PolicyWarning occurs when a single policy file entry is malformed
// (unrecognized constraint kind or operator symbol). It is never
// fatal: pkg/policy.Load collects these and returns a usable Store
// alongside them.
type PolicyWarning struct {
	error
	index int
}

// NewPolicyWarning wraps err with the index of the offending entry in
// the policy file's JSON array.
func NewPolicyWarning(index int, err error) PolicyWarning {
	return PolicyWarning{error: err, index: index}
}

// Index returns the zero-based position of the offending entry.
func (e PolicyWarning) Index() int { return e.index }

// MarshalZerologObject implements zerolog object marshalling.
func (e PolicyWarning) MarshalZerologObject(event *zerolog.Event) {
	event.Err(e.error).Int("entryIndex", e.index)
}

// DetailsMetadata returns the metadata for details for this error.
func (e PolicyWarning) DetailsMetadata() map[string]string {
	return map[string]string{"entry_index": strconv.Itoa(e.index)}
}
