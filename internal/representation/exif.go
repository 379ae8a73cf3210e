package representation

import (
	"errors"
	"fmt"
	"io"

	exif "github.com/dsoprea/go-exif/v3"

	"github.com/nao1215/ldcrawl/internal/fact"
)

// TagEXIF is the structural tag of image metadata facts: exif(tag, value).
const TagEXIF = "exif"

// maxImageSize caps how much of an image body is scanned for EXIF data.
const maxImageSize = 32 * 1024 * 1024

// EXIFHandler extracts EXIF metadata from images as exif(tagName, value)
// facts. It is read-only. An image without EXIF data yields an empty
// collection rather than an error.
type EXIFHandler struct {
	readOnly
}

// NewEXIFHandler creates an EXIFHandler.
func NewEXIFHandler() *EXIFHandler {
	return &EXIFHandler{}
}

// Tag implements Handler.
func (h *EXIFHandler) Tag() string { return TagEXIF }

// ContentTypes implements Handler.
func (h *EXIFHandler) ContentTypes() []string {
	return []string{"image/jpeg", "image/tiff"}
}

// Deserialize implements Handler.
func (h *EXIFHandler) Deserialize(r io.Reader, _, _ string) (fact.Collection, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxImageSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}

	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil {
		if errors.Is(err, exif.ErrNoExif) {
			return fact.Empty(), nil
		}
		return nil, unsupportedErr("unreadable EXIF block", err)
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return nil, unsupportedErr("malformed EXIF data", err)
	}

	facts := make(fact.Collection, 0, len(entries))
	for _, entry := range entries {
		facts = append(facts, fact.New(TagEXIF,
			fact.String(entry.TagName),
			fact.String(entry.Formatted),
		))
	}
	return facts, nil
}

var _ Handler = (*EXIFHandler)(nil)
