package parser

import (
	"bytes"
	"encoding/xml"
	"regexp"
	"strings"

	"golang.org/x/net/html/charset"
)

// Kind tags the shape of a decoded sitemap document.
type Kind int

const (
	// KindMalformed covers undecodable XML and unrecognised root elements.
	KindMalformed Kind = iota
	KindURLSet
	KindIndex
)

func (k Kind) String() string {
	switch k {
	case KindURLSet:
		return "urlset"
	case KindIndex:
		return "sitemapindex"
	default:
		return "malformed"
	}
}

// Parsed is the structural form of one sitemap document. URLCount is only
// meaningful for KindURLSet and ChildLocations only for KindIndex.
type Parsed struct {
	Kind           Kind
	URLCount       int
	ChildLocations []string
}

// Malformed reports whether the document could not be used as a sitemap.
func (p Parsed) Malformed() bool {
	return p.Kind == KindMalformed
}

type document struct {
	XMLName  xml.Name
	URLs     []locEntry `xml:"url"`
	Sitemaps []locEntry `xml:"sitemap"`
}

type locEntry struct {
	Loc string `xml:"loc"`
}

// Parse decodes a sitemap body. It never fails: anything that is not a
// urlset or sitemapindex document comes back as KindMalformed.
func Parse(body []byte) Parsed {
	var doc document
	decoder := xml.NewDecoder(bytes.NewReader(body))
	decoder.CharsetReader = charset.NewReaderLabel
	if err := decoder.Decode(&doc); err != nil {
		return Parsed{Kind: KindMalformed}
	}

	switch doc.XMLName.Local {
	case "sitemapindex":
		locations := make([]string, 0, len(doc.Sitemaps))
		for _, entry := range doc.Sitemaps {
			loc := strings.TrimSpace(entry.Loc)
			if loc == "" {
				return Parsed{Kind: KindMalformed}
			}
			locations = append(locations, loc)
		}
		return Parsed{Kind: KindIndex, ChildLocations: locations}
	case "urlset":
		return Parsed{Kind: KindURLSet, URLCount: len(doc.URLs)}
	default:
		return Parsed{Kind: KindMalformed}
	}
}

var declaredEncoding = regexp.MustCompile(`\s+encoding\s*=\s*("[^"]*"|'[^']*')`)

// DropDeclaredEncoding removes the encoding attribute of a leading XML
// declaration. It is applied to bodies that were already transcoded to
// UTF-8, so Parse does not decode them a second time.
func DropDeclaredEncoding(body []byte) []byte {
	trimmed := bytes.TrimLeft(body, " \t\r\n\ufeff")
	if !bytes.HasPrefix(trimmed, []byte("<?xml")) {
		return body
	}
	end := bytes.Index(trimmed, []byte("?>"))
	if end < 0 {
		return body
	}

	offset := len(body) - len(trimmed)
	out := make([]byte, 0, len(body))
	out = append(out, body[:offset]...)
	out = append(out, declaredEncoding.ReplaceAll(trimmed[:end], nil)...)
	return append(out, trimmed[end:]...)
}
