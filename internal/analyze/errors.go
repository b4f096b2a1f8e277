package analyze

import (
	"errors"
	"fmt"
)

// ErrAnalysisFailed matches every CompletionError.
var ErrAnalysisFailed = errors.New("analysis failed")

// CompletionError reports a failed or unusable model completion.
type CompletionError struct {
	Stage string // complete | parse | schema
	Err   error
	Raw   string
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("analysis failed at %s: %v", e.Stage, e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

func (e *CompletionError) Is(target error) bool { return target == ErrAnalysisFailed }
