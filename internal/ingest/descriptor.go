// Package ingest holds the source-type descriptors the wizard endpoints
// share: accepted file types, size and count caps, and URL validation.
// The caps are a first line of defense; the trainer enforces its own
// authoritative limits.
package ingest

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/aqibaliakbar/chatbuddy/internal/domain"
)

// Descriptor parameterizes one knowledge-source wizard.
type Descriptor struct {
	Type         domain.SourceType
	MaxFiles     int
	MaxFileBytes int64
	AcceptedExts []string
	NeedsURL     bool
}

var descriptors = map[domain.SourceType]Descriptor{
	domain.SourceFiles: {
		Type:         domain.SourceFiles,
		MaxFiles:     10,
		MaxFileBytes: 10 << 20,
		AcceptedExts: []string{".pdf", ".txt", ".md", ".doc", ".docx", ".csv"},
	},
	domain.SourceLinks: {
		Type:     domain.SourceLinks,
		NeedsURL: true,
	},
	domain.SourceText: {
		Type: domain.SourceText,
	},
	domain.SourceAudio: {
		Type:         domain.SourceAudio,
		MaxFiles:     1,
		MaxFileBytes: 100 << 20,
		AcceptedExts: []string{".mp3", ".wav", ".m4a", ".ogg", ".flac"},
	},
	domain.SourceYouTube: {
		Type:     domain.SourceYouTube,
		NeedsURL: true,
	},
	domain.SourceWebsite: {
		Type:     domain.SourceWebsite,
		NeedsURL: true,
	},
	domain.SourceShopify: {
		Type: domain.SourceShopify,
	},
}

// ForType returns the descriptor for a source type
func ForType(t domain.SourceType) (Descriptor, bool) {
	d, ok := descriptors[t]
	return d, ok
}

// ValidateFile checks a file against the descriptor's caps
func (d Descriptor) ValidateFile(name string, size int64) error {
	if d.MaxFileBytes > 0 && size > d.MaxFileBytes {
		return fmt.Errorf("file %q exceeds the %dMB limit", name, d.MaxFileBytes>>20)
	}
	if len(d.AcceptedExts) == 0 {
		return nil
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range d.AcceptedExts {
		if ext == allowed {
			return nil
		}
	}
	return fmt.Errorf("file type %q is not accepted. Allowed: %s", ext, strings.Join(d.AcceptedExts, ", "))
}

// ValidateBatch checks a batch size against the descriptor's file-count
// ceiling.
func (d Descriptor) ValidateBatch(count int) error {
	if count == 0 {
		return fmt.Errorf("no files provided")
	}
	if d.MaxFiles > 0 && count > d.MaxFiles {
		return fmt.Errorf("too many files: %d (maximum %d per batch)", count, d.MaxFiles)
	}
	return nil
}

// ValidateScrapeURL parses a URL and restricts its scheme to http or
// https. Called before any network operation.
func ValidateScrapeURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("URL has no host")
	}
	return u, nil
}

// ValidateYouTubeURL checks that a URL points at a YouTube video
func ValidateYouTubeURL(raw string) error {
	u, err := ValidateScrapeURL(raw)
	if err != nil {
		return err
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch host {
	case "youtube.com", "m.youtube.com", "youtu.be":
		return nil
	}
	return fmt.Errorf("not a YouTube URL: %s", raw)
}
