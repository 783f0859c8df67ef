package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Encoding is a text encoding a source may be written in
type Encoding string

const (
	UTF8   Encoding = "utf-8"
	Latin1 Encoding = "latin-1"
	CP1252 Encoding = "cp1252"
)

// DefaultEncodings is the fallback order applied when Options leaves it empty
var DefaultEncodings = []Encoding{UTF8, Latin1}

// ErrUndecodable is returned when no configured encoding accepts the bytes
var ErrUndecodable = errors.New("no encoding could decode the file")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseEncoding maps a configuration string to an Encoding
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "utf-8", "utf8":
		return UTF8, nil
	case "latin-1", "latin1", "iso-8859-1", "iso8859-1":
		return Latin1, nil
	case "cp1252", "windows-1252":
		return CP1252, nil
	}
	return "", fmt.Errorf("unsupported encoding %q", s)
}

// decode converts data to UTF-8 text using enc. UTF-8 input must be valid.
func decode(data []byte, enc Encoding) (string, error) {
	switch enc {
	case UTF8:
		data = bytes.TrimPrefix(data, utf8BOM)
		if !utf8.Valid(data) {
			return "", fmt.Errorf("invalid %s byte sequence", enc)
		}
		return string(data), nil
	case Latin1:
		out, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), data)
		if err != nil {
			return "", fmt.Errorf("%s decode: %w", enc, err)
		}
		return string(out), nil
	case CP1252:
		out, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
		if err != nil {
			return "", fmt.Errorf("%s decode: %w", enc, err)
		}
		return string(out), nil
	}
	return "", fmt.Errorf("unsupported encoding %q", enc)
}

// decodeFallback tries each encoding in order and reports which one succeeded
func decodeFallback(data []byte, encodings []Encoding) (string, Encoding, error) {
	if len(encodings) == 0 {
		encodings = DefaultEncodings
	}
	var errs []error
	for _, enc := range encodings {
		text, err := decode(data, enc)
		if err == nil {
			return text, enc, nil
		}
		errs = append(errs, err)
	}
	return "", "", fmt.Errorf("%w: %w", ErrUndecodable, errors.Join(errs...))
}
