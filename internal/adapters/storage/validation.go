package storage

import (
	"bytes"
	"fmt"
	"strings"
)

// AllowedContentTypes defines the allowed MIME types for catalog uploads.
var AllowedContentTypes = map[string]bool{
	"application/pdf":   true,
	"application/x-pdf": true,
}

var pdfMagic = []byte("%PDF-")

// ValidateContentType checks if the content type is allowed.
func (s *MinIOService) ValidateContentType(contentType string) error {
	return ValidateContentType(contentType)
}

// ValidateFileSize checks if the file size is within limits.
func (s *MinIOService) ValidateFileSize(sizeBytes int64) error {
	return ValidateFileSize(sizeBytes, s.maxFileSize)
}

// ValidateContentType checks a declared content type against AllowedContentTypes.
func ValidateContentType(contentType string) error {
	// Normalize content type (remove parameters like charset)
	normalized := strings.Split(contentType, ";")[0]
	normalized = strings.TrimSpace(strings.ToLower(normalized))

	if !AllowedContentTypes[normalized] {
		return fmt.Errorf("content type %q is not allowed", contentType)
	}
	return nil
}

// ValidateFileSize checks a size against maxBytes. A non-positive maxBytes disables the upper bound.
func ValidateFileSize(sizeBytes, maxBytes int64) error {
	if sizeBytes <= 0 {
		return fmt.Errorf("file size must be greater than 0")
	}
	if maxBytes > 0 && sizeBytes > maxBytes {
		return fmt.Errorf("file size %d bytes exceeds maximum allowed size of %d bytes", sizeBytes, maxBytes)
	}
	return nil
}

// LooksLikePDF reports whether head starts with the PDF header.
func LooksLikePDF(head []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(head, "\x00\t\r\n "), pdfMagic)
}
