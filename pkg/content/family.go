package content

import (
	"path/filepath"
	"strings"
)

// Family is the coarse file classification driving conversion and retrieval
// compatibility.
type Family string

const (
	FamilyText    Family = "text"
	FamilyImage   Family = "image"
	FamilyPDF     Family = "pdf"
	FamilyUnknown Family = "unknown"
)

// DetectFamily classifies by MIME type first, filename suffix as fallback.
func DetectFamily(mimeType, filename string) Family {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case mt == "application/pdf":
		return FamilyPDF
	case strings.HasPrefix(mt, "image/"):
		return FamilyImage
	case strings.HasPrefix(mt, "text/"),
		mt == "application/csv",
		mt == "text/markdown":
		return FamilyText
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return FamilyPDF
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return FamilyImage
	case ".txt", ".md", ".markdown", ".csv":
		return FamilyText
	}
	return FamilyUnknown
}

// RetrievalCompatible reports whether a file family can live in provider-side
// retrieval storage. Raw images never qualify; they are inline-only content.
func RetrievalCompatible(f Family) bool {
	return f == FamilyText || f == FamilyPDF
}
