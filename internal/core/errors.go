package core

import "fmt"

// ParseError is returned when a registry response does not match the
// schema the source expects. The fetch itself succeeded; the document is
// unusable.
type ParseError struct {
	Ecosystem string
	Name      string
	Detail    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parsing metadata for %s: %s", e.Ecosystem, e.Name, e.Detail)
}
