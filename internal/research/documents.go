package research

import (
	"context"
	"os"

	"deepresearch/internal/tools"
)

// DocumentReader extracts text from a fetched page body that is a
// recognized non-HTML document format (SPEC_FULL.md §6.1), keyed by the
// URL extension fetch.Result.DocumentExt carries.
type DocumentReader interface {
	Read(ctx context.Context, ext string, body []byte) (string, error)
}

// FileDocumentReader adapts the tools package's path-based document
// readers (PDF, DOCX, XLSX, CSV) to the Read step: a fetched document
// body has no path of its own, so it is spilled to a temp file with the
// matching extension and handed to the same readers the plug-in tool
// registry registers.
type FileDocumentReader struct {
	doc  *tools.DocumentReadTool // routes .pdf/.docx by extension
	xlsx *tools.XLSXReadTool
	csv  *tools.CSVAnalysisTool
}

// NewFileDocumentReader constructs a FileDocumentReader with the same
// document tools the plug-in registry registers.
func NewFileDocumentReader() *FileDocumentReader {
	return &FileDocumentReader{
		doc:  tools.NewDocumentReadTool(),
		xlsx: tools.NewXLSXReadTool(),
		csv:  tools.NewCSVAnalysisTool(),
	}
}

// Read spills body to a temp file named with ext and delegates
// extraction to the matching tool, removing the temp file afterward.
func (d *FileDocumentReader) Read(ctx context.Context, ext string, body []byte) (string, error) {
	f, err := os.CreateTemp("", "research-fetch-*"+ext)
	if err != nil {
		return "", err
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(body); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	args := map[string]interface{}{"path": path}
	switch ext {
	case ".pdf", ".docx":
		return d.doc.Execute(ctx, args)
	case ".xlsx":
		return d.xlsx.Execute(ctx, args)
	case ".csv":
		return d.csv.Execute(ctx, args)
	default:
		return string(body), nil
	}
}
