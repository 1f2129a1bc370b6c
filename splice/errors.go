package splice

import "fmt"

// InvalidIndexError reports a caller-entered insertion index that is not an integer
type InvalidIndexError struct {
	DocTypeID string
	Name      string // display name of the doc type
	Value     string // raw index as entered
	Err       error
}

func (e *InvalidIndexError) Error() string {
	return fmt.Sprintf("Invalid page number for %s", e.Name)
}

func (e *InvalidIndexError) Unwrap() error {
	return e.Err
}

type UnknownDocTypeError struct {
	DocTypeID string
}

func (e *UnknownDocTypeError) Error() string {
	return fmt.Sprintf("unknown document type %q", e.DocTypeID)
}

type DuplicateRequestError struct {
	DocTypeID string
}

func (e *DuplicateRequestError) Error() string {
	return fmt.Sprintf("more than one insertion for document type %q", e.DocTypeID)
}
