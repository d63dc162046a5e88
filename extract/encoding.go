// CLAUDE:SUMMARY Fixed-priority character encoding resolution: utf-8 → latin-1 → windows-1252.
package extract

import (
	"errors"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ErrUndecodable means no candidate encoding accepted the content.
var ErrUndecodable = errors.New("no candidate encoding decodes content")

// encodingCandidate is one entry in the fixed decode priority order.
type encodingCandidate struct {
	name   string
	decode func([]byte) (string, bool)
}

// candidateEncodings is tried in order; the first that accepts the bytes
// wins and its name lands in result metadata under "encoding".
//
// Latin-1 would accept any byte sequence, which would make the later
// Windows-1252 candidate unreachable. It therefore rejects bytes in the C1
// control range 0x80–0x9F: real Latin-1 text does not use C1 controls, while
// Windows-1252 maps that range to curly quotes, dashes and similar
// typography. A file written in Windows-1252 thus resolves to
// "windows-1252", and its decoded text round-trips.
var candidateEncodings = []encodingCandidate{
	{"utf-8", decodeUTF8},
	{"latin-1", decodeLatin1},
	{"windows-1252", decodeWindows1252},
}

// decodeWithFallback resolves data against candidateEncodings.
// Returns the decoded text and the winning encoding name, or ErrUndecodable.
func decodeWithFallback(data []byte) (text, encoding string, err error) {
	for _, cand := range candidateEncodings {
		if s, ok := cand.decode(data); ok {
			return s, cand.name, nil
		}
	}
	return "", "", ErrUndecodable
}

func decodeUTF8(data []byte) (string, bool) {
	if !utf8.Valid(data) {
		return "", false
	}
	return string(data), true
}

func decodeLatin1(data []byte) (string, bool) {
	for _, b := range data {
		if b >= 0x80 && b <= 0x9F {
			return "", false
		}
	}
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", false
	}
	return string(s), true
}

// windows1252Undefined are the five code points Windows-1252 leaves unmapped.
var windows1252Undefined = map[byte]bool{
	0x81: true, 0x8D: true, 0x8F: true, 0x90: true, 0x9D: true,
}

func decodeWindows1252(data []byte) (string, bool) {
	for _, b := range data {
		if windows1252Undefined[b] {
			return "", false
		}
	}
	s, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", false
	}
	return string(s), true
}
