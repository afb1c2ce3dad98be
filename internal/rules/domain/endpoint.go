package domain

import "strings"

// DefaultFeedPath is the path served by the rules CDN for this platform.
const DefaultFeedPath = "ios/latest.txt"

// Endpoint is the immutable description of the remote rules feed: where it
// lives and which extra headers every fetch carries.
type Endpoint struct {
	BaseURL string
	Path    string
	Headers map[string]string
}

// NewEndpoint builds an Endpoint, falling back to DefaultFeedPath when path
// is empty.
func NewEndpoint(baseURL, path string, headers map[string]string) Endpoint {
	if path == "" {
		path = DefaultFeedPath
	}
	return Endpoint{BaseURL: baseURL, Path: path, Headers: headers}
}

// URL joins the base URL and path into the fully-qualified fetch URL. A single
// leading slash on the path is dropped so a trailing slash on the base never
// produces a double separator.
func (e Endpoint) URL() string {
	base := strings.TrimSuffix(e.BaseURL, "/")
	path := strings.TrimPrefix(e.Path, "/")
	return base + "/" + path
}
