package sources

import (
	"context"
	"fmt"

	"chartly/internal/tabular"
)

// ── Upload Source ───────────────────────────────────────────
// Decodes a previously uploaded file (CSV, TSV, or XLSX) tracked by
// the upload store.

// FileProvider hands back the stored bytes of an upload. The storage
// layer implements this and is injected at startup.
type FileProvider interface {
	ReadUpload(ctx context.Context, uploadID string) (filename string, data []byte, err error)
}

type uploadSource struct {
	files FileProvider
}

func NewUploadSource(files FileProvider) Source {
	return &uploadSource{files: files}
}

func (s *uploadSource) Spec() SourceSpec {
	return SourceSpec{
		Type:  "upload",
		Label: "File Upload",
		Icon:  "IconFileUpload",
		ConfigFields: []ConfigField{
			{Key: "uploadId", Label: "Upload", Type: "file", Required: true, Help: "Identifier of a stored upload"},
		},
	}
}

func (s *uploadSource) Resolve(ctx context.Context, cfg SourceConfig, sampleSize int) (*tabular.Dataset, error) {
	uploadID, _ := cfg["uploadId"].(string)
	if uploadID == "" {
		return nil, fmt.Errorf("uploadId is required")
	}

	filename, data, err := s.files.ReadUpload(ctx, uploadID)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", uploadID, err)
	}

	format := tabular.FormatFromFilename(filename)
	if format == "" {
		return nil, fmt.Errorf("%w: %q", tabular.ErrUnsupportedFormat, filename)
	}

	return tabular.Decode(data, format, sampleSize)
}
