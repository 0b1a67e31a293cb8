package parser

import (
	"errors"
	"testing"
)

func TestNormalizeSiteReference(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "bare host", input: "example.com", expected: "https://example.com"},
		{name: "surrounding whitespace", input: "  example.com  ", expected: "https://example.com"},
		{name: "trailing slash", input: "example.com/", expected: "https://example.com"},
		{name: "http kept", input: "http://example.com", expected: "http://example.com"},
		{name: "https kept", input: "https://shop.example.com/", expected: "https://shop.example.com"},
		{name: "upper case scheme", input: "HTTPS://example.com", expected: "HTTPS://example.com"},
		{name: "path kept", input: "example.com/store/", expected: "https://example.com/store"},
		{name: "port kept", input: "localhost:8080", expected: "https://localhost:8080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeSiteReference(tt.input)
			if err != nil {
				t.Fatalf("NormalizeSiteReference(%q) error = %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("NormalizeSiteReference(%q) = %q, want %q", tt.input, got, tt.expected)
			}

			again, err := NormalizeSiteReference(got)
			if err != nil {
				t.Fatalf("second normalization of %q error = %v", got, err)
			}
			if again != got {
				t.Errorf("normalization not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestNormalizeSiteReferenceInvalid(t *testing.T) {
	for _, input := range []string{"", "   ", "\t\n", "/", "https://", "http:///"} {
		t.Run(input, func(t *testing.T) {
			if _, err := NormalizeSiteReference(input); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("NormalizeSiteReference(%q) error = %v, want ErrInvalidInput", input, err)
			}
		})
	}
}

func TestSitemapLocation(t *testing.T) {
	origin, err := NormalizeSiteReference("example.com/")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got := SitemapLocation(origin); got != "https://example.com/sitemap.xml" {
		t.Fatalf("SitemapLocation = %q", got)
	}
}
