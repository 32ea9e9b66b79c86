package uploader

import "fmt"

// AuthError reports a failed authentication sub-flow. Authentication is
// a precondition for the whole batch, so this error is always fatal to
// the run; there is no per-document retry.
type AuthError struct {
	Step string
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed at %s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("authentication failed at %s", e.Step)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ComposeError fails a single document. The batch runner catches it, tallies
// the document as failed, and moves on; it never aborts the batch.
type ComposeError struct {
	Slug   string
	Reason string
	Err    error
}

func (e *ComposeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Slug, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Slug, e.Reason)
}

func (e *ComposeError) Unwrap() error { return e.Err }
