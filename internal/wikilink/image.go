package wikilink

import (
	"path"
	"strings"
)

// ClassifyImageLink turns a raw image-link substring found on lineNumber
// at byte position into a structured ImageLink. It does not know about
// the image-asset engine's Found/Missing/Duplicate/Incompatible
// classification — callers populate ImageLink.State once the image
// engine has run over the whole vault.
func ClassifyImageLink(raw RawImageLink, lineNumber int) ImageLink {
	relPath := raw.Target
	filename := strings.ToLower(path.Base(relPath))

	return ImageLink{
		MatchedText:   raw.Text,
		Filename:      filename,
		RelativePath:  relPath,
		AltText:       raw.Alt,
		SizeParameter: raw.Size,
		Position:      raw.Span.Start,
		LineNumber:    lineNumber,
		Syntax:        raw.Syntax,
		Mode:          raw.Mode,
		Locality:      raw.Locality,
		State:         ImageLinkState{Kind: StateFound},
	}
}
