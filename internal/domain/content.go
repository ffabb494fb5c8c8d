package domain

import (
	"net/url"
	"strings"
)

// ContentKind tags what a face holds.
type ContentKind int

const (
	EmptyContent ContentKind = iota
	TextContent
	ImageContent
)

func (k ContentKind) String() string {
	switch k {
	case TextContent:
		return "text"
	case ImageContent:
		return "image"
	default:
		return "empty"
	}
}

// FaceContent is what one side of a card shows: a text payload, an image
// reference (local path or remote URL), or nothing. Never both.
type FaceContent struct {
	Kind  ContentKind
	Value string
}

// Text returns text content, or empty content for blank input.
func Text(s string) FaceContent {
	s = strings.TrimSpace(s)
	if s == "" {
		return FaceContent{}
	}
	return FaceContent{Kind: TextContent, Value: s}
}

// Image returns an image reference, or empty content for a blank ref.
func Image(ref string) FaceContent {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return FaceContent{}
	}
	return FaceContent{Kind: ImageContent, Value: ref}
}

func (f FaceContent) IsEmpty() bool { return f.Kind == EmptyContent || f.Value == "" }
func (f FaceContent) IsText() bool  { return f.Kind == TextContent && f.Value != "" }
func (f FaceContent) IsImage() bool { return f.Kind == ImageContent && f.Value != "" }

// IsRemote reports whether the face is an image hosted at an http(s) URL.
func (f FaceContent) IsRemote() bool {
	if !f.IsImage() {
		return false
	}
	return IsRemoteRef(f.Value)
}

// LocalPath returns the path of a locally stored image, or "".
func (f FaceContent) LocalPath() string {
	if !f.IsImage() || f.IsRemote() {
		return ""
	}
	return f.Value
}

// IsRemoteRef reports whether ref is an absolute http or https URL.
func IsRemoteRef(ref string) bool {
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (f FaceContent) textPtr() *string {
	if !f.IsText() {
		return nil
	}
	v := f.Value
	return &v
}

func (f FaceContent) pathPtr() *string {
	if !f.IsImage() {
		return nil
	}
	v := f.Value
	return &v
}

// contentFromRecord rebuilds a face from its persisted columns. A path wins
// over text when a hand-edited record carries both.
func contentFromRecord(text, path *string) FaceContent {
	if path != nil {
		if c := Image(*path); !c.IsEmpty() {
			return c
		}
	}
	if text != nil {
		return Text(*text)
	}
	return FaceContent{}
}
