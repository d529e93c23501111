// Package frontmatter models YAML frontmatter: typed accessors for the
// fields vaultkeep actively reasons about, a catch-all that preserves
// every other key's insertion order and YAML value shape exactly, and
// the date validation/repair machinery that keeps date_created/
// date_modified in sync with the filesystem.
package frontmatter

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// PersistReasonKind enumerates why a file needs to be written back.
type PersistReasonKind int

const (
	DateCreatedUpdated PersistReasonKind = iota
	DateModifiedUpdated
	DateCreatedFixApplied
	BackPopulated
	ImageReferencesModified
)

func (k PersistReasonKind) String() string {
	switch k {
	case DateCreatedUpdated:
		return "DateCreatedUpdated"
	case DateModifiedUpdated:
		return "DateModifiedUpdated"
	case DateCreatedFixApplied:
		return "DateCreatedFixApplied"
	case BackPopulated:
		return "BackPopulated"
	case ImageReferencesModified:
		return "ImageReferencesModified"
	default:
		return "Unknown"
	}
}

// PersistReason is one entry of a file's ordered multi-set of reasons it
// was (or will be) rewritten.
type PersistReason struct {
	Kind   PersistReasonKind
	Detail string
}

// Document is the in-memory model of a single Markdown file's frontmatter
// block: the typed fields vaultkeep inspects, plus every other key
// preserved by node so serialization round-trips exactly.
type Document struct {
	DateCreated       *string
	DateModified      *string
	DateCreatedFix    *string
	Aliases           []string
	DoNotBackPopulate []string

	// RawDateCreated/RawDateModified carry the resolved filesystem
	// timestamps the persistence stage applies to disk. They are not
	// serialized.
	RawDateCreated  *UTCTime
	RawDateModified *UTCTime

	// node is the full parsed YAML mapping node; typed fields above are
	// kept in sync with it on every mutation so serialization always
	// reflects the latest state and unknown keys survive untouched.
	node *yaml.Node

	order []string // insertion order of top-level keys, including typed ones

	HadFrontmatter bool
	NeedsPersist   bool
	Reasons        []PersistReason
}

const (
	keyDateCreated        = "date_created"
	keyDateModified       = "date_modified"
	keyDateCreatedFix     = "date_created_fix"
	keyAliases            = "aliases"
	keyDoNotBackPopulate  = "do_not_back_populate"
)

// Parse splits raw file content into frontmatter and body. It tolerates a
// missing frontmatter block (returns an empty Document, HadFrontmatter
// false) and CRLF line endings.
func Parse(content string) (*Document, string, error) {
	normalized := strings.ReplaceAll(content, "\r\n", "\n")

	if !strings.HasPrefix(normalized, "---\n") {
		return emptyDocument(), content, nil
	}

	rest := normalized[len("---\n"):]
	end := strings.Index(rest, "\n---\n")
	var fmBlock, body string
	if end >= 0 {
		fmBlock = rest[:end]
		body = rest[end+len("\n---\n"):]
	} else if strings.HasSuffix(rest, "\n---") {
		fmBlock = rest[:len(rest)-len("\n---")]
		body = ""
	} else {
		return emptyDocument(), content, nil
	}

	var node yaml.Node
	if strings.TrimSpace(fmBlock) != "" {
		if err := yaml.Unmarshal([]byte(fmBlock), &node); err != nil {
			return nil, "", fmt.Errorf("parsing frontmatter YAML: %w", err)
		}
	}

	doc := emptyDocument()
	doc.HadFrontmatter = true
	if len(node.Content) > 0 && node.Kind == yaml.DocumentNode {
		doc.node = node.Content[0]
	} else {
		doc.node = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	}
	doc.loadTypedFields()
	return doc, body, nil
}

func emptyDocument() *Document {
	return &Document{
		node: &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"},
	}
}

// loadTypedFields walks the mapping node and copies known scalar/sequence
// fields into the typed struct fields, recording top-level key order.
func (d *Document) loadTypedFields() {
	m := d.node
	if m == nil || m.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		key := m.Content[i].Value
		d.order = append(d.order, key)
		val := m.Content[i+1]
		switch key {
		case keyDateCreated:
			s := val.Value
			d.DateCreated = &s
		case keyDateModified:
			s := val.Value
			d.DateModified = &s
		case keyDateCreatedFix:
			s := val.Value
			d.DateCreatedFix = &s
		case keyAliases:
			d.Aliases = decodeStringSeq(val)
		case keyDoNotBackPopulate:
			d.DoNotBackPopulate = decodeStringSeq(val)
		}
	}
}

func decodeStringSeq(val *yaml.Node) []string {
	if val.Kind != yaml.SequenceNode {
		return nil
	}
	out := make([]string, 0, len(val.Content))
	for _, c := range val.Content {
		out = append(out, c.Value)
	}
	return out
}

// setScalar upserts a string-valued key in the underlying mapping node,
// preserving its existing position or appending it at the end.
func (d *Document) setScalar(key, value string) {
	m := d.node
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
			return
		}
	}
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value},
	)
	d.order = append(d.order, key)
}

// deleteKey removes a key from the underlying mapping node, if present.
func (d *Document) deleteKey(key string) {
	m := d.node
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content = append(m.Content[:i], m.Content[i+2:]...)
			break
		}
	}
	for i, k := range d.order {
		if k == key {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// SetDateCreated sets date_created to the wikilinked date string.
func (d *Document) SetDateCreated(wikilinkedDate string) {
	d.setScalar(keyDateCreated, wikilinkedDate)
	s := wikilinkedDate
	d.DateCreated = &s
	d.NeedsPersist = true
}

// SetDateModified sets date_modified to the wikilinked date string.
func (d *Document) SetDateModified(wikilinkedDate string) {
	d.setScalar(keyDateModified, wikilinkedDate)
	s := wikilinkedDate
	d.DateModified = &s
	d.NeedsPersist = true
}

// RemoveDateCreatedFix deletes the date_created_fix field entirely.
func (d *Document) RemoveDateCreatedFix() {
	d.deleteKey(keyDateCreatedFix)
	d.DateCreatedFix = nil
	d.NeedsPersist = true
}

// AddReason appends a persist reason and marks the document as needing a
// rewrite.
func (d *Document) AddReason(r PersistReason) {
	d.Reasons = append(d.Reasons, r)
	d.NeedsPersist = true
}

// RemoveReasonsOfKind drops every PersistReason of the given kind, used by
// MarkBackPopulated to avoid redundant DateModifiedUpdated reporting.
func (d *Document) RemoveReasonsOfKind(kind PersistReasonKind) {
	filtered := d.Reasons[:0]
	for _, r := range d.Reasons {
		if r.Kind != kind {
			filtered = append(filtered, r)
		}
	}
	d.Reasons = filtered
}

// IsEmpty reports whether the document has no keys at all.
func (d *Document) IsEmpty() bool {
	return d.node == nil || len(d.node.Content) == 0
}

// Serialize renders the frontmatter block (without delimiters) as YAML.
// An empty document serializes to an empty string.
func (d *Document) Serialize() (string, error) {
	if d.IsEmpty() {
		return "", nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d.node); err != nil {
		return "", fmt.Errorf("marshaling frontmatter: %w", err)
	}
	enc.Close()
	return buf.String(), nil
}

// ComposeFile reassembles the full file text from frontmatter and body:
// the frontmatter block is elided only when the original file had none
// and no repair forced one into existence.
func (d *Document) ComposeFile(body string) (string, error) {
	body = strings.TrimRight(body, "\n")
	if d.IsEmpty() && !d.HadFrontmatter {
		return body, nil
	}
	yamlText, err := d.Serialize()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.WriteString(yamlText)
	if !strings.HasSuffix(yamlText, "\n") {
		buf.WriteString("\n")
	}
	buf.WriteString("---\n")
	buf.WriteString(body)
	return buf.String(), nil
}
