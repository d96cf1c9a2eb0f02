// Package forms holds the server-side pieces of an HTML form's UX: inline
// field errors, password visibility, one-shot submission guards and
// struct validation with human-readable messages.
package forms

import "sort"

// ErrorSuffix is appended to an input's id to form the id of the element
// that displays its error message.
const ErrorSuffix = "-error"

// ErrorClass marks an input that currently has an error.
const ErrorClass = "error"

// Errors maps field ids to their inline error message.
// The zero value is ready to use.
type Errors struct {
	m map[string]string
}

// Set records msg against field, replacing any earlier message.
func (e *Errors) Set(field, msg string) {
	if e.m == nil {
		e.m = make(map[string]string)
	}
	e.m[field] = msg
}

// Clear removes every error.
func (e *Errors) Clear() {
	e.m = nil
}

// Has reports whether field has an error.
func (e *Errors) Has(field string) bool {
	_, ok := e.m[field]
	return ok
}

// Message returns field's error, or "" if it has none.
func (e *Errors) Message(field string) string {
	return e.m[field]
}

// Class returns ErrorClass for a field with an error, "" otherwise.
func (e *Errors) Class(field string) string {
	if e.Has(field) {
		return ErrorClass
	}
	return ""
}

// Any reports whether at least one field has an error.
func (e *Errors) Any() bool {
	return len(e.m) > 0
}

// Fields returns the ids that have errors, sorted.
func (e *Errors) Fields() []string {
	out := make([]string, 0, len(e.m))
	for k := range e.m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Unrendered returns the fields with errors that are not in rendered.
// Their messages have nowhere to show on the page.
func (e *Errors) Unrendered(rendered []string) []string {
	known := make(map[string]struct{}, len(rendered))
	for _, f := range rendered {
		known[f] = struct{}{}
	}
	var out []string
	for _, f := range e.Fields() {
		if _, ok := known[f]; !ok {
			out = append(out, f)
		}
	}
	return out
}

// ErrorID returns the id of the element showing id's error message.
func ErrorID(id string) string {
	return id + ErrorSuffix
}

// Field is what a template needs to render one input with its error slot.
type Field struct {
	ID    string
	Name  string
	Type  string
	Label string
	Value string
	Error string
}

// ErrorID returns the id of this field's error element.
func (f Field) ErrorID() string { return ErrorID(f.ID) }

// HasError reports whether the field should be marked.
func (f Field) HasError() bool { return f.Error != "" }

// Class returns ErrorClass when the field has an error.
func (f Field) Class() string {
	if f.HasError() {
		return ErrorClass
	}
	return ""
}

// NewField builds a Field whose name matches its id and whose error comes
// from errs.
func NewField(id, typ, label, value string, errs *Errors) Field {
	f := Field{ID: id, Name: id, Type: typ, Label: label, Value: value}
	if errs != nil {
		f.Error = errs.Message(id)
	}
	return f
}
