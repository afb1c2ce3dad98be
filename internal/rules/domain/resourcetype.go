package domain

import (
	"fmt"
	"strings"
)

// ResourceType classifies what kind of asset a request is loading. It mirrors
// the resource classes filter-list modifiers can target.
type ResourceType uint8

const (
	ResourceDocument ResourceType = iota
	ResourceScript
	ResourceImage
	ResourceStylesheet
	ResourceFont
	ResourceMedia
	ResourceXHR
	ResourceOther
)

// String returns the filter-list modifier spelling of the resource type.
func (rt ResourceType) String() string {
	switch rt {
	case ResourceDocument:
		return "document"
	case ResourceScript:
		return "script"
	case ResourceImage:
		return "image"
	case ResourceStylesheet:
		return "stylesheet"
	case ResourceFont:
		return "font"
	case ResourceMedia:
		return "media"
	case ResourceXHR:
		return "xmlhttprequest"
	case ResourceOther:
		return "other"
	default:
		return fmt.Sprintf("ResourceType(%d)", rt)
	}
}

// ParseResourceType converts a modifier spelling into a ResourceType.
// Accepts the aliases filter lists commonly use (case-insensitive).
func ParseResourceType(s string) (ResourceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "document", "doc":
		return ResourceDocument, nil
	case "script":
		return ResourceScript, nil
	case "image", "img":
		return ResourceImage, nil
	case "stylesheet", "css":
		return ResourceStylesheet, nil
	case "font":
		return ResourceFont, nil
	case "media":
		return ResourceMedia, nil
	case "xmlhttprequest", "xhr":
		return ResourceXHR, nil
	case "other":
		return ResourceOther, nil
	default:
		return 0, fmt.Errorf("unsupported resource type: %q", s)
	}
}

// Bit returns the type's position in a resource-type bitmask.
func (rt ResourceType) Bit() uint32 {
	return 1 << uint32(rt)
}
