package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// CharsetAuto detects the encoding from the BOM or the XML declaration.
const CharsetAuto = "auto"

var xmlEncodingDecl = regexp.MustCompile(`^\s*<\?xml[^>]*\bencoding\s*=\s*["']([A-Za-z0-9._:-]+)["']`)

// decodeCharset converts raw document bytes to UTF-8 text.
func decodeCharset(data []byte, charset string) (string, error) {
	enc, err := lookupEncoding(data, charset)
	if err != nil {
		return "", err
	}
	if enc == nil {
		data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
		if !utf8.Valid(data) {
			return "", fmt.Errorf("document is not valid UTF-8; set parser.charset")
		}
		return string(data), nil
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", charset, err)
	}
	return string(out), nil
}

// lookupEncoding returns nil for UTF-8.
func lookupEncoding(data []byte, charset string) (encoding.Encoding, error) {
	name := strings.ToLower(strings.TrimSpace(charset))
	if name == "" || name == CharsetAuto {
		name = detectCharset(data)
	}
	switch name {
	case "utf-8", "utf8":
		return nil, nil
	case "utf-16":
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM), nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q", charset)
	}
	if enc == unicode.UTF8 {
		return nil, nil
	}
	return enc, nil
}

func detectCharset(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte("\xef\xbb\xbf")):
		return "utf-8"
	case bytes.HasPrefix(data, []byte("\xfe\xff")), bytes.HasPrefix(data, []byte("\xff\xfe")):
		return "utf-16"
	}
	head := data
	if len(head) > 256 {
		head = head[:256]
	}
	if m := xmlEncodingDecl.FindSubmatch(head); m != nil {
		return strings.ToLower(string(m[1]))
	}
	return "utf-8"
}
