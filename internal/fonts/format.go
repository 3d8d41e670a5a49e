package fonts

import (
	"bytes"

	"textpdf/internal/domain"
)

var (
	magicOpenType = []byte("OTTO")
	magicWOFF     = []byte("wOFF")
	magicWOFF2    = []byte("wOF2")
	magicTrueType = []byte{0x00, 0x01, 0x00, 0x00}
)

// DetectFormat maps the leading four bytes of a font file to its format.
// Unknown or short headers report truetype with ok=false.
func DetectFormat(header []byte) (format domain.FontFormat, ok bool) {
	if len(header) < 4 {
		return domain.FontTrueType, false
	}
	switch h := header[:4]; {
	case bytes.Equal(h, magicOpenType):
		return domain.FontOpenType, true
	case bytes.Equal(h, magicWOFF):
		return domain.FontWOFF, true
	case bytes.Equal(h, magicWOFF2):
		return domain.FontWOFF2, true
	case bytes.Equal(h, magicTrueType):
		return domain.FontTrueType, true
	}
	return domain.FontTrueType, false
}
