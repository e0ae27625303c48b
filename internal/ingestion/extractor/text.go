package extractor

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

func extractText(data []byte) Result {
	text, encoding, err := decodeText(data)
	if err != nil {
		return failed(err)
	}
	lines := strings.Count(text, "\n") + 1
	return Result{
		Text:      text,
		Metadata:  map[string]string{"encoding": encoding},
		PageCount: atLeastOne(lines / 30),
	}
}

// decodeText honours a UTF-8 or UTF-16 byte order mark, then tries UTF-8 and
// falls back to Latin-1, which accepts any byte.
func decodeText(data []byte) (string, string, error) {
	if enc := bomEncoding(data); enc != "" {
		out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
		if err != nil {
			return "", "", err
		}
		return string(out), enc, nil
	}
	if utf8.Valid(data) {
		return string(data), "utf-8", nil
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", "", err
	}
	return string(out), "latin-1", nil
}

func bomEncoding(data []byte) string {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return "utf-8"
	case bytes.HasPrefix(data, bomUTF16LE):
		return "utf-16le"
	case bytes.HasPrefix(data, bomUTF16BE):
		return "utf-16be"
	}
	return ""
}
