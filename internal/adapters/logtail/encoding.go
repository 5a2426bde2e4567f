package logtail

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/brianly1003/warden/internal/domain"
)

// decoder converts raw log bytes to UTF-8 text.
type decoder func([]byte) string

// newDecoder returns the decoder for a configured encoding name.
func newDecoder(name string) (decoder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return func(b []byte) string {
			if utf8.Valid(b) {
				return string(b)
			}
			return strings.ToValidUTF8(string(b), "�")
		}, nil
	case "latin1", "latin-1", "iso-8859-1":
		return charmapDecoder(charmap.ISO8859_1), nil
	case "windows-1252", "cp1252":
		return charmapDecoder(charmap.Windows1252), nil
	default:
		return nil, fmt.Errorf("%w: unsupported log encoding %q", domain.ErrConfiguration, name)
	}
}

func charmapDecoder(cm *charmap.Charmap) decoder {
	return func(b []byte) string {
		out, err := cm.NewDecoder().Bytes(b)
		if err != nil {
			return string(b)
		}
		return string(out)
	}
}
