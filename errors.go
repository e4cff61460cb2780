package confstore

import (
	"errors"
	"fmt"
)

// ConversionError captures field metadata alongside the originating codec
// error. A load pass collects every failing field and joins the results, so
// callers can inspect all of them with errors.As in a loop or report the
// joined message directly.
type ConversionError struct {
	Field string
	Type  FieldType
	Raw   string
	Err   error
}

func (e *ConversionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("confstore: field %q %s: %v", e.Field, describeFieldType(e.Type), e.Err)
}

func (e *ConversionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeFieldType(fieldType FieldType) string {
	if fieldType == "" {
		return "(untyped)"
	}
	return fmt.Sprintf("(%s)", fieldType)
}

func wrapConversionError(field Field, raw string, err error) error {
	if err == nil {
		return nil
	}
	var convErr *ConversionError
	if errors.As(err, &convErr) {
		return err
	}
	return &ConversionError{
		Field: field.Name,
		Type:  field.Type,
		Raw:   raw,
		Err:   err,
	}
}
