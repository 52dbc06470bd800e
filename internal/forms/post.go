// Package forms holds form binding and validation for the write views.
// A failed validation keeps the submitted values so nothing is lost when
// the form is re-rendered.
package forms

import "strings"

type PostForm struct {
	Text    string
	GroupID string // raw submitted value, empty means no group
	Errors  map[string]string
}

// Validate checks field constraints and records per-field errors. Group
// existence is checked by the handler against the store; it reports a
// failure through AddError.
func (f *PostForm) Validate() {
	f.Errors = map[string]string{}
	if strings.TrimSpace(f.Text) == "" {
		f.Errors["text"] = "Text is required."
	}
}

func (f *PostForm) AddError(field, msg string) {
	if f.Errors == nil {
		f.Errors = map[string]string{}
	}
	f.Errors[field] = msg
}

func (f *PostForm) Valid() bool { return len(f.Errors) == 0 }
