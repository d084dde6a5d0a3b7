// Package encoding wraps around the various encoding stuff in
// golang.org/x/text/encoding. Part of the reason this exists is that
// the package names such as "unicode" clash with the stdlib, and
// it's rather easier if we just hide it from the rest of the module.
package encoding

import (
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	enc "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// InvalidRune marks table entries for bytes that have no mapping in the
// source charset. Consumers must treat such bytes as fatal rather than
// substitute a guessed codepoint.
const InvalidRune = rune(-1)

func normalize(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "_", "-")
	return name
}

// Load resolves a charset name to a golang.org/x/text encoding, or nil
// when the name is not recognized.
func Load(name string) enc.Encoding {
	switch normalize(name) {
	case "utf8", "utf-8":
		return unicode.UTF8
	case "euc-jp":
		return japanese.EUCJP
	case "shift-jis", "shiftjis", "cp932":
		return japanese.ShiftJIS
	case "jis", "iso-2022-jp":
		return japanese.ISO2022JP
	case "big5":
		return traditionalchinese.Big5
	case "euc-kr":
		return korean.EUCKR
	case "hz-gb2312":
		return simplifiedchinese.HZGB2312
	}
	if m := singleByte(name); m != nil {
		return m
	}
	return nil
}

func singleByte(name string) *charmap.Charmap {
	switch normalize(name) {
	case "iso-8859-1", "iso8859-1", "latin-1", "latin1", "l1":
		return charmap.ISO8859_1
	case "iso-8859-2", "iso8859-2":
		return charmap.ISO8859_2
	case "iso-8859-3", "iso8859-3":
		return charmap.ISO8859_3
	case "iso-8859-4", "iso8859-4":
		return charmap.ISO8859_4
	case "iso-8859-5", "iso8859-5":
		return charmap.ISO8859_5
	case "iso-8859-6", "iso8859-6":
		return charmap.ISO8859_6
	case "iso-8859-7", "iso8859-7":
		return charmap.ISO8859_7
	case "iso-8859-8", "iso8859-8":
		return charmap.ISO8859_8
	case "iso-8859-10", "iso8859-10":
		return charmap.ISO8859_10
	case "iso-8859-13", "iso8859-13":
		return charmap.ISO8859_13
	case "iso-8859-14", "iso8859-14":
		return charmap.ISO8859_14
	case "iso-8859-15", "iso8859-15":
		return charmap.ISO8859_15
	case "iso-8859-16", "iso8859-16":
		return charmap.ISO8859_16
	case "koi8-r", "koi8r":
		return charmap.KOI8R
	case "koi8-u", "koi8u":
		return charmap.KOI8U
	case "cp437":
		return charmap.CodePage437
	case "cp866":
		return charmap.CodePage866
	case "macintosh":
		return charmap.Macintosh
	case "macintosh-cyrillic", "macintoshcyrillic":
		return charmap.MacintoshCyrillic
	case "windows-1250", "windows1250":
		return charmap.Windows1250
	case "windows-1251", "windows1251":
		return charmap.Windows1251
	case "windows-1252", "windows1252", "cp1252":
		return charmap.Windows1252
	case "windows-1253", "windows1253":
		return charmap.Windows1253
	case "windows-1254", "windows1254":
		return charmap.Windows1254
	case "windows-1255", "windows1255":
		return charmap.Windows1255
	case "windows-1256", "windows1256":
		return charmap.Windows1256
	case "windows-1257", "windows1257":
		return charmap.Windows1257
	case "windows-1258", "windows1258":
		return charmap.Windows1258
	case "windows-874", "windows874":
		return charmap.Windows874
	case "x-user-defined", "xuserdefined":
		return charmap.XUserDefined
	}
	return nil
}

// CharTable builds a 256-entry byte-to-rune translation table for a
// single-byte charset. Bytes without a mapping get InvalidRune.
func CharTable(name string) (*[256]rune, error) {
	m := singleByte(name)
	if m == nil {
		if Load(name) != nil {
			return nil, errors.Errorf("encoding %q is not a single-byte encoding", name)
		}
		return nil, errors.Errorf("unknown encoding %q", name)
	}

	var table [256]rune
	for i := 0; i < 256; i++ {
		r := m.DecodeByte(byte(i))
		if r == utf8.RuneError {
			r = InvalidRune
		}
		table[i] = r
	}
	return &table, nil
}
