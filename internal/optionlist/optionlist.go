// Package optionlist implements spec §6's option-list emission
// collaborator: a text form for human-facing help output and an XML
// form (resource-agent metadata, OCF-flavored) for machine consumers,
// both driven off the same in-memory []Option slice. There is no
// teacher analog for OCF metadata specifically; the tree-walking and
// buffered-group style follows the teacher's own text-report helpers
// (strings.Builder, one entry per loop iteration) and the XML side
// uses encoding/xml directly since nothing in the example pack offers
// a generic XML-metadata library suited to this shape.
package optionlist

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// Option describes one agent parameter, the unit this package renders.
type Option struct {
	Name         string
	Type         string // "string", "integer", "boolean", "select", "duration", "nonnegative_integer", ...
	Values       []string // only meaningful when Type == "select"
	Default      string
	HasDefault   bool
	ShortDesc    string
	LongDesc     string
	Advanced     bool
	Deprecated   bool
	Generated    bool
	TranslatedShortDesc string // empty if no translation differs from ShortDesc
	TranslatedLongDesc  string
	Lang                string // translation's primary language tag, e.g. "ja"
}

// Filter selects which buffered groups the text emitter includes.
type Filter uint8

const (
	FilterNone Filter = 0
	FilterAdvanced Filter = 1 << iota
	FilterDeprecated
)

func (f Filter) has(bit Filter) bool { return f&bit != 0 }

// RenderText implements spec §6's text form: a header, then one entry
// per non-buffered option in input order, then the advanced and
// deprecated groups (each in input order) under their own headers,
// each suppressed unless the filter requests it or all is true.
func RenderText(agentName, shortDesc, longDesc string, opts []Option, filter Filter, all bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n%s\n\n", shortDesc, longDesc)

	var advanced, deprecated []Option
	for _, o := range opts {
		switch {
		case o.Deprecated:
			deprecated = append(deprecated, o)
		case o.Advanced:
			advanced = append(advanced, o)
		default:
			writeTextEntry(&b, o)
		}
	}

	if len(advanced) > 0 && (all || filter.has(FilterAdvanced)) {
		b.WriteString("ADVANCED OPTIONS\n")
		for _, o := range advanced {
			writeTextEntry(&b, o)
		}
	}
	if len(deprecated) > 0 && (all || filter.has(FilterDeprecated)) {
		b.WriteString("DEPRECATED OPTIONS (will be removed in a future release)\n")
		for _, o := range deprecated {
			writeTextEntry(&b, o)
		}
	}
	return b.String()
}

func writeTextEntry(b *strings.Builder, o Option) {
	fmt.Fprintf(b, "%s\n", o.Name)
	if o.ShortDesc != "" {
		fmt.Fprintf(b, "    %s\n", o.ShortDesc)
	}
	if o.LongDesc != "" {
		fmt.Fprintf(b, "    %s\n", o.LongDesc)
	}
	b.WriteString("    Possible values: ")
	b.WriteString(possibleValues(o))
	b.WriteString("\n\n")
}

// possibleValues renders the "Possible values" line. For select types
// this is a quoted, comma-separated value list with "(default)" after
// the matching entry. The null-default case is spec.md's first
// documented Open Question: when Type == "select" and Default is
// unset, foundDefault starts true, so no entry ever receives the
// "(default)" marker — preserved as-is rather than "fixed", since the
// spec records it as possibly intentional (no default means nothing
// to mark).
func possibleValues(o Option) string {
	if o.Type != "select" {
		if o.HasDefault {
			return fmt.Sprintf("%s (default: %q)", o.Type, o.Default)
		}
		return fmt.Sprintf("%s (no default)", o.Type)
	}
	foundDefault := !o.HasDefault
	parts := make([]string, 0, len(o.Values))
	for _, v := range o.Values {
		entry := fmt.Sprintf("%q", v)
		if !foundDefault && v == o.Default {
			entry += " (default)"
			foundDefault = true
		}
		parts = append(parts, entry)
	}
	return strings.Join(parts, ", ")
}

// Metadata is the XML root, resource-agent(name, version).
type Metadata struct {
	XMLName   xml.Name `xml:"resource-agent"`
	Name      string   `xml:"name,attr"`
	Version   string   `xml:"version,attr,omitempty"`
	OCF       string   `xml:"version"`
	LongDesc  []Desc   `xml:"longdesc"`
	ShortDesc []Desc   `xml:"shortdesc"`
	Parameters Parameters `xml:"parameters"`
}

// Desc is a lang-tagged description, used for both longdesc and
// shortdesc elements and for the translated sibling spec §6's
// "Translation" paragraph describes.
type Desc struct {
	Lang string `xml:"lang,attr,omitempty"`
	Text string `xml:",chardata"`
}

// Parameters wraps the per-option parameter list.
type Parameters struct {
	Parameter []Parameter `xml:"parameter"`
}

// Parameter is one option, OCF-shaped.
type Parameter struct {
	Name      string    `xml:"name,attr"`
	Advanced  string    `xml:"advanced,attr,omitempty"`
	Generated string    `xml:"generated,attr,omitempty"`
	LongDesc  []Desc    `xml:"longdesc"`
	ShortDesc []Desc    `xml:"shortdesc"`
	Deprecated *struct{} `xml:"deprecated"`
	Content   Content   `xml:"content"`
}

// Content is a parameter's type/default plus, for select types, its
// enumerated values.
type Content struct {
	Type    string         `xml:"type,attr"`
	Default string         `xml:"default,attr,omitempty"`
	Option  []ContentOption `xml:"option,omitempty"`
}

// ContentOption is one select value under content.
type ContentOption struct {
	Value string `xml:"value,attr"`
}

// BuildMetadata assembles the XML document. legacy toggles spec §6's
// "legacy" transform: duration/nonnegative_integer are rewritten to
// their OCF-1.0 names, the advanced/deprecated markers are folded into
// the short description text instead of emitted as attributes, the
// possible-value list is inlined into the long description, and the
// advanced/generated attributes are omitted entirely.
func BuildMetadata(agentName, ocfVersion, shortDesc, longDesc string, opts []Option, legacy bool) Metadata {
	m := Metadata{
		Name: agentName,
		OCF:  ocfVersion,
		LongDesc:  []Desc{{Lang: "en", Text: longDesc}},
		ShortDesc: []Desc{{Lang: "en", Text: shortDesc}},
	}
	for _, o := range opts {
		m.Parameters.Parameter = append(m.Parameters.Parameter, buildParameter(o, legacy))
	}
	return m
}

func buildParameter(o Option, legacy bool) Parameter {
	typ := o.Type
	if legacy {
		switch typ {
		case "duration":
			typ = "time"
		case "nonnegative_integer":
			typ = "integer"
		}
	}

	short := o.ShortDesc
	long := o.LongDesc
	if legacy {
		short = legacyShortDesc(o)
		if o.Type == "select" {
			long = strings.TrimRight(long+"\n\nPossible values: "+possibleValues(o), "\n")
		}
	}

	p := Parameter{
		Name:      o.Name,
		LongDesc:  descsFor(long, o.TranslatedLongDesc, o.Lang),
		ShortDesc: descsFor(short, o.TranslatedShortDesc, o.Lang),
		Content: Content{
			Type:    typ,
			Default: o.Default,
		},
	}
	if !legacy {
		p.Advanced = boolAttr(o.Advanced)
		p.Generated = boolAttr(o.Generated)
	}
	if o.Deprecated && !legacy {
		p.Deprecated = &struct{}{}
	}
	if o.Type == "select" {
		for _, v := range o.Values {
			p.Content.Option = append(p.Content.Option, ContentOption{Value: v})
		}
	}
	return p
}

// legacyShortDesc implements spec.md's second documented Open
// Question: when both Deprecated and Advanced are set, the markers
// and the original description are concatenated in the fixed order
// "Deprecated", then "Advanced Use Only", then the description.
// Preserved verbatim rather than reordered alphabetically or by flag
// precedence.
func legacyShortDesc(o Option) string {
	var prefix []string
	if o.Deprecated {
		prefix = append(prefix, "Deprecated")
	}
	if o.Advanced {
		prefix = append(prefix, "Advanced Use Only")
	}
	if len(prefix) == 0 {
		return o.ShortDesc
	}
	return strings.Join(prefix, ", ") + ", " + o.ShortDesc
}

func descsFor(original, translated, lang string) []Desc {
	out := []Desc{{Lang: "en", Text: original}}
	if translated != "" && translated != original && lang != "" {
		out = append(out, Desc{Lang: lang, Text: translated})
	}
	return out
}

func boolAttr(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// RenderXML marshals the metadata document with an XML header and
// indentation, the form every OCF-metadata consumer expects.
func RenderXML(m Metadata) (string, error) {
	raw, err := xml.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling resource-agent metadata: %w", err)
	}
	return xml.Header + string(raw), nil
}
