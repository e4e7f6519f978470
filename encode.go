package img2aa

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/japanese"
)

// Output encodings accepted by EncodeDocument.
const (
	EncodingUTF8     = "utf8"
	EncodingShiftJIS = "sjis"
)

// EncodeDocument joins lines with CRLF for Shift_JIS, the convention of
// the boards that expect it, and LF for UTF-8.
func EncodeDocument(lines []string, encoding string) ([]byte, error) {
	switch strings.ToLower(encoding) {
	case "", EncodingUTF8, "utf-8":
		return []byte(strings.Join(lines, "\n") + "\n"), nil
	case EncodingShiftJIS, "shift_jis", "shift-jis":
		text := strings.Join(lines, "\r\n") + "\r\n"
		out, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("encode shift_jis: %w", err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown output encoding %q", encoding)
}
