package report

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
)

// BOMPrefix is the Base64 text of a UTF-8 byte-order mark. The backend prepends
// it to the encoded payload rather than to the decoded bytes.
const BOMPrefix = "77u/"

// ErrDecode marks payloads that are not Base64-encoded UTF-8 text.
var ErrDecode = eris.New("report: payload decode failed")

// DecodePayload turns a report response body into CSV text.
func DecodePayload(payload string) (string, error) {
	s := strings.TrimSpace(payload)
	s = strings.Trim(s, `"`)
	s = strings.TrimPrefix(s, BOMPrefix)

	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", eris.Wrapf(ErrDecode, "base64: %v", err)
	}
	if !utf8.Valid(raw) {
		return "", eris.Wrap(ErrDecode, "payload is not valid UTF-8")
	}
	return string(raw), nil
}

// EncodePayload is the inverse of DecodePayload, with the BOM marker prepended.
// Test backends use it to build responses.
func EncodePayload(text string) string {
	return BOMPrefix + base64.StdEncoding.EncodeToString([]byte(text))
}

// countLines returns the number of non-blank lines in text.
func countLines(text string) int {
	n := 0
	for line := range strings.SplitSeq(text, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

// stripHeader drops the first line of text.
func stripHeader(text string) string {
	i := strings.IndexByte(text, '\n')
	if i < 0 {
		return ""
	}
	return text[i+1:]
}
