package domain

import "fmt"

// RenderRequest carries the three text regions of a document. Empty fields
// render as empty regions; the layout does not reflow.
type RenderRequest struct {
	HeaderText string `json:"headerText" form:"headerText"`
	BodyText   string `json:"bodyText" form:"bodyText"`
	FooterText string `json:"footerText" form:"footerText"`
}

// Size returns the combined byte length of all text fields.
func (r RenderRequest) Size() int {
	return len(r.HeaderText) + len(r.BodyText) + len(r.FooterText)
}

// FontFormat is the CSS format() token of an embedded font.
type FontFormat string

const (
	FontTrueType FontFormat = "truetype"
	FontOpenType FontFormat = "opentype"
	FontWOFF     FontFormat = "woff"
	FontWOFF2    FontFormat = "woff2"
)

// MIMEType maps a font format to its data-URI media type.
func (f FontFormat) MIMEType() string {
	switch f {
	case FontOpenType:
		return "font/otf"
	case FontWOFF:
		return "font/woff"
	case FontWOFF2:
		return "font/woff2"
	default:
		return "font/ttf"
	}
}

// FontAsset is a font file resolved from disk and ready to be embedded.
type FontAsset struct {
	Path     string
	Size     int64
	Format   FontFormat
	MIMEType string
	Base64   string
	// Digest is the hex SHA-256 of the file content.
	Digest   string
	Warnings []string
}

// DataURI returns the font payload as a data: URI.
func (f *FontAsset) DataURI() string {
	return fmt.Sprintf("data:%s;base64,%s", f.MIMEType, f.Base64)
}

// BrowserEndpoint is a resolved, launch-ready browser binary.
type BrowserEndpoint struct {
	ExecutablePath string
	LaunchArgs     []string
	Installed      bool
}
