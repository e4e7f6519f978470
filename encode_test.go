package img2aa

import (
	"bytes"
	"testing"
)

func TestEncodeDocument(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		lines    []string
		encoding string
		want     []byte
	}{
		{"utf8", []string{"ア", "A"}, EncodingUTF8, []byte("ア\nA\n")},
		{"default", []string{"A"}, "", []byte("A\n")},
		{"sjis", []string{"ア", "A"}, EncodingShiftJIS, []byte{0x83, 0x41, '\r', '\n', 'A', '\r', '\n'}},
		{"sjis full space", []string{"　"}, "Shift_JIS", []byte{0x81, 0x40, '\r', '\n'}},
	}
	for _, tt := range tests {
		got, err := EncodeDocument(tt.lines, tt.encoding)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.name, err)
			continue
		}
		if !bytes.Equal(got, tt.want) {
			t.Errorf("%s: Expected %x, got %x", tt.name, tt.want, got)
		}
	}
}

func TestEncodeDocumentErrors(t *testing.T) {
	t.Parallel()
	if _, err := EncodeDocument([]string{"A"}, "latin1"); err == nil {
		t.Error("Expected error for unknown encoding")
	}
	if _, err := EncodeDocument([]string{"😀"}, EncodingShiftJIS); err == nil {
		t.Error("Expected error for a rune Shift_JIS cannot represent")
	}
}
