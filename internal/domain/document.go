package domain

import (
	"fmt"
	"time"
)

// Supported input languages of a saved document.
const (
	LanguageEnglish  = "english"
	LanguageHinglish = "hinglish"
	LanguageHindi    = "hindi"
)

// DocumentData is the editable part of a saved document record.
type DocumentData struct {
	InputText      string `json:"input_text"`
	InputLanguage  string `json:"input_language"`
	TranslatedText string `json:"translated_text"`
	HeaderText     string `json:"header_text"`
	FooterText     string `json:"footer_text"`
}

// Document is a persisted render record.
type Document struct {
	ID string `json:"id"`
	DocumentData
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DocumentPatch holds a partial update; nil fields are left untouched.
type DocumentPatch struct {
	InputText      *string `json:"input_text"`
	InputLanguage  *string `json:"input_language"`
	TranslatedText *string `json:"translated_text"`
	HeaderText     *string `json:"header_text"`
	FooterText     *string `json:"footer_text"`
}

// Empty reports whether the patch changes nothing.
func (p DocumentPatch) Empty() bool {
	return p.InputText == nil && p.InputLanguage == nil && p.TranslatedText == nil &&
		p.HeaderText == nil && p.FooterText == nil
}

// ValidLanguage reports whether lang is one of the supported input languages.
func ValidLanguage(lang string) bool {
	switch lang {
	case LanguageEnglish, LanguageHinglish, LanguageHindi:
		return true
	}
	return false
}

// Validate checks the fields required for a new document.
func (d DocumentData) Validate() error {
	if d.InputText == "" {
		return fmt.Errorf("%w: input_text is required", ErrInvalidDocument)
	}
	if !ValidLanguage(d.InputLanguage) {
		return fmt.Errorf("%w: unsupported input_language %q", ErrInvalidDocument, d.InputLanguage)
	}
	return nil
}

// Validate checks the fields present in a patch.
func (p DocumentPatch) Validate() error {
	if p.Empty() {
		return fmt.Errorf("%w: no fields to update", ErrInvalidDocument)
	}
	if p.InputText != nil && *p.InputText == "" {
		return fmt.Errorf("%w: input_text cannot be empty", ErrInvalidDocument)
	}
	if p.InputLanguage != nil && !ValidLanguage(*p.InputLanguage) {
		return fmt.Errorf("%w: unsupported input_language %q", ErrInvalidDocument, *p.InputLanguage)
	}
	return nil
}

// RenderRequest maps a saved document onto the three rendered regions.
func (d Document) RenderRequest() RenderRequest {
	return RenderRequest{
		HeaderText: d.HeaderText,
		BodyText:   d.TranslatedText,
		FooterText: d.FooterText,
	}
}
