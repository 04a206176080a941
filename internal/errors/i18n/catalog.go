// Package i18n translates error codes into user-facing messages per locale.
package i18n

import (
	"bytes"
	"text/template"

	"golang.org/x/text/language"
)

// Catalog holds user-facing messages for one locale.
type Catalog struct {
	locale   string
	tag      language.Tag
	messages map[string]string
}

var catalogs = []*Catalog{enUSCatalog}

var matcher = func() language.Matcher {
	tags := make([]language.Tag, 0, len(catalogs))
	for _, c := range catalogs {
		tags = append(tags, c.tag)
	}
	return language.NewMatcher(tags)
}()

// GetCatalog returns the catalog best matching the requested locale,
// falling back to en-US for unknown locales.
func GetCatalog(locale string) *Catalog {
	tag, err := language.Parse(locale)
	if err != nil {
		return enUSCatalog
	}
	_, index, _ := matcher.Match(tag)
	if index < 0 || index >= len(catalogs) {
		return enUSCatalog
	}
	return catalogs[index]
}

// Locale returns the catalog's locale identifier.
func (c *Catalog) Locale() string {
	return c.locale
}

// Format renders the message for code, substituting metadata values into
// {{.Key}} placeholders. Unknown codes return a generic message.
func (c *Catalog) Format(code string, metadata map[string]string) string {
	raw, ok := c.messages[code]
	if !ok {
		return c.messages[CodeUnknown]
	}
	if len(metadata) == 0 {
		return raw
	}
	tmpl, err := template.New(code).Parse(raw)
	if err != nil {
		return raw
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, metadata); err != nil {
		return raw
	}
	return buf.String()
}
