// Package compose builds the self-contained HTML page that the browser prints.
package compose

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"

	"textpdf/internal/domain"
)

// DefaultFamily is the CSS family name the embedded font is registered under.
const DefaultFamily = "NotoDevaEmbed"

const fallbackFamily = "sans-serif"

var familyPattern = regexp.MustCompile(`^[A-Za-z0-9 _-]+$`)

// ValidFamily reports whether family can be used as a CSS font-family name
// without quoting or escaping.
func ValidFamily(family string) bool {
	return familyPattern.MatchString(family)
}

// Page geometry in millimetres. The layout is fixed and never reflows.
const (
	PageWidthMM  = 210
	PageHeightMM = 297
	MarginMM     = 20
	BodyTopMM    = 50
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<style>
{{.FontFace}}
@page { size: A4; margin: 0; }
html, body { margin: 0; padding: 0; }
body, .page, .header, .body, .footer { font-family: {{.FontStack}} !important; }
.page {
  box-sizing: border-box;
  width: {{.Width}}mm;
  height: {{.Height}}mm;
  padding: {{.Margin}}mm;
  position: relative;
  overflow: hidden;
}
.header {
  position: absolute;
  top: {{.Margin}}mm;
  left: {{.Margin}}mm;
  font-size: 12pt;
  white-space: pre-wrap;
}
.body {
  margin-top: {{.BodyTop}}mm;
  font-size: 14pt;
  line-height: 1.7;
  white-space: pre-wrap;
  text-align: justify;
}
.footer {
  position: absolute;
  right: {{.Margin}}mm;
  bottom: {{.Margin}}mm;
  font-size: 12pt;
  white-space: pre-wrap;
}
</style>
</head>
<body>
<div class="page">
<div class="header">{{.Header}}</div>
<div class="body">{{.Body}}</div>
<div class="footer">{{.Footer}}</div>
</div>
</body>
</html>
`))

type pageData struct {
	FontFace  template.CSS
	FontStack template.CSS
	Width     int
	Height    int
	Margin    int
	BodyTop   int
	Header    string
	Body      string
	Footer    string
}

// Composer renders RenderRequests into HTML documents.
type Composer struct {
	family string
}

// New creates a Composer registering the embedded font under family.
// An empty family selects DefaultFamily.
func New(family string) (*Composer, error) {
	if family == "" {
		family = DefaultFamily
	}
	if !ValidFamily(family) {
		return nil, fmt.Errorf("invalid font family %q", family)
	}
	return &Composer{family: family}, nil
}

// Compose returns a complete HTML document for req. Text is escaped by the
// template engine. A nil font yields valid markup using the fallback family.
func (c *Composer) Compose(req domain.RenderRequest, font *domain.FontAsset) (string, error) {
	data := pageData{
		FontStack: template.CSS(fallbackFamily),
		Width:     PageWidthMM,
		Height:    PageHeightMM,
		Margin:    MarginMM,
		BodyTop:   BodyTopMM,
		Header:    req.HeaderText,
		Body:      req.BodyText,
		Footer:    req.FooterText,
	}
	if font != nil {
		data.FontFace = template.CSS(FontFace(c.family, font))
		data.FontStack = template.CSS(fmt.Sprintf("%q, %s", c.family, fallbackFamily))
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("compose document: %w", err)
	}
	return buf.String(), nil
}

// FontFace returns the @font-face rule embedding font as a data URI.
func FontFace(family string, font *domain.FontAsset) string {
	return fmt.Sprintf(`@font-face {
  font-family: %q;
  src: url("%s") format(%q);
  font-weight: normal;
  font-style: normal;
  font-display: block;
}`, family, font.DataURI(), string(font.Format))
}
