package ingest_test

import (
	"testing"

	"github.com/aqibaliakbar/chatbuddy/internal/domain"
	"github.com/aqibaliakbar/chatbuddy/internal/ingest"
)

func TestValidateScrapeURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"https", "https://example.com/docs", false},
		{"http", "http://example.com", false},
		{"with query", "https://example.com/help?page=2", false},

		{"ftp", "ftp://example.com/file", true},
		{"javascript", "javascript:alert(1)", true},
		{"file", "file:///etc/passwd", true},
		{"no scheme", "example.com/docs", true},
		{"no host", "https://", true},
		{"empty", "", true},
		{"garbage", "not a url at all", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ingest.ValidateScrapeURL(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateScrapeURL(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
		})
	}
}

func TestValidateYouTubeURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"watch url", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", false},
		{"short url", "https://youtu.be/dQw4w9WgXcQ", false},
		{"mobile", "https://m.youtube.com/watch?v=dQw4w9WgXcQ", false},
		{"bare host", "https://youtube.com/watch?v=dQw4w9WgXcQ", false},

		{"vimeo", "https://vimeo.com/12345", true},
		{"lookalike", "https://youtube.com.evil.example/watch", true},
		{"ftp scheme", "ftp://youtube.com/watch", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ingest.ValidateYouTubeURL(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateYouTubeURL(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
		})
	}
}

func TestDescriptor_ValidateFile(t *testing.T) {
	files, ok := ingest.ForType(domain.SourceFiles)
	if !ok {
		t.Fatal("missing descriptor for files")
	}

	tests := []struct {
		name     string
		filename string
		size     int64
		wantErr  bool
	}{
		{"pdf", "manual.pdf", 1024, false},
		{"markdown", "README.md", 1024, false},
		{"case insensitive ext", "NOTES.TXT", 1024, false},
		{"at size cap", "big.pdf", 10 << 20, false},

		{"over size cap", "huge.pdf", 10<<20 + 1, true},
		{"executable", "malware.exe", 10, true},
		{"no extension", "Makefile", 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := files.ValidateFile(tt.filename, tt.size)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFile(%q, %d) error = %v, wantErr %v", tt.filename, tt.size, err, tt.wantErr)
			}
		})
	}
}

func TestDescriptor_ValidateBatch(t *testing.T) {
	files, _ := ingest.ForType(domain.SourceFiles)

	if err := files.ValidateBatch(0); err == nil {
		t.Error("expected error for an empty batch")
	}
	if err := files.ValidateBatch(10); err != nil {
		t.Errorf("batch at the cap should pass: %v", err)
	}
	if err := files.ValidateBatch(11); err == nil {
		t.Error("expected error for a batch over the cap")
	}

	audio, _ := ingest.ForType(domain.SourceAudio)
	if err := audio.ValidateBatch(2); err == nil {
		t.Error("audio accepts a single file per upload")
	}
}

func TestForType(t *testing.T) {
	for _, st := range []domain.SourceType{
		domain.SourceFiles, domain.SourceLinks, domain.SourceText,
		domain.SourceAudio, domain.SourceYouTube, domain.SourceWebsite,
		domain.SourceShopify,
	} {
		if _, ok := ingest.ForType(st); !ok {
			t.Errorf("missing descriptor for %q", st)
		}
	}

	if _, ok := ingest.ForType(domain.SourceType("unknown")); ok {
		t.Error("unexpected descriptor for unknown source type")
	}
}
