package attach

import "fmt"

// Kind identifies which staging rule rejected a file.
type Kind string

const (
	KindDocumentType Kind = "document_type"
	KindDocumentSize Kind = "document_size"
	KindImageBatch   Kind = "image_batch"
)

// ValidationError reports a file rejected at staging time.
// Staged state is never mutated when one is returned.
type ValidationError struct {
	Kind    Kind
	Name    string // offending file (first offender for a batch)
	Message string // user-facing text
}

func (e *ValidationError) Error() string {
	if e.Name == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

func formatMiB(n int64) string {
	const mib = 1024 * 1024
	if n%mib == 0 {
		return fmt.Sprintf("%dMB", n/mib)
	}
	return fmt.Sprintf("%.1fMB", float64(n)/mib)
}
