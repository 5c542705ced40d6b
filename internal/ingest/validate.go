// Package ingest accepts invoice files for processing: local uploads and an
// FTP inbox. Files are validated for size, extension and content signature
// before they reach the extraction pipeline.
package ingest

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-cli/internal/model"
)

// Invoices smaller than this are almost certainly not real documents.
const minFileSize = 100

// Validator checks candidate invoice files before processing.
type Validator struct {
	maxSize    int64
	extensions map[string]bool
}

// NewValidator creates a Validator. maxSizeMB bounds the accepted file size;
// formats lists allowed extensions (with leading dot, case-insensitive).
func NewValidator(maxSizeMB int, formats []string) *Validator {
	exts := make(map[string]bool, len(formats))
	for _, f := range formats {
		exts[strings.ToLower(f)] = true
	}
	return &Validator{
		maxSize:    int64(maxSizeMB) * 1024 * 1024,
		extensions: exts,
	}
}

// fileSignature maps a leading byte sequence to the extensions it matches.
type fileSignature struct {
	prefix []byte
	exts   []string
}

var knownSignatures = []fileSignature{
	{[]byte{0xFF, 0xD8, 0xFF}, []string{".jpg", ".jpeg"}},
	{[]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, []string{".png"}},
	{[]byte{'B', 'M'}, []string{".bmp"}},
	{[]byte{'I', 'I', 0x2A, 0x00}, []string{".tiff", ".tif"}},
	{[]byte{'M', 'M', 0x00, 0x2A}, []string{".tiff", ".tif"}},
	{[]byte("%PDF-"), []string{".pdf"}},
}

// Executable payloads are rejected outright regardless of extension.
var dangerousSignatures = map[string][]byte{
	"windows executable": {'M', 'Z'},
	"elf executable":     {0x7F, 'E', 'L', 'F'},
	"java class file":    {0xCA, 0xFE, 0xBA, 0xBE},
}

// Validate checks name, size and content of a candidate file. It returns the
// file metadata recorded on the processed invoice, or an error describing the
// first failed check.
func (v *Validator) Validate(name string, content []byte) (model.FileMetadata, error) {
	meta := model.FileMetadata{
		FileName: filepath.Base(name),
		FileSize: int64(len(content)),
		FileType: strings.ToLower(filepath.Ext(name)),
	}

	if meta.FileName == "" || meta.FileName == "." {
		return meta, eris.New("ingest: file has no name")
	}
	if len(meta.FileName) > 255 {
		return meta, eris.Errorf("ingest: filename too long (%d characters)", len(meta.FileName))
	}

	if meta.FileSize == 0 {
		return meta, eris.Errorf("ingest: %s is empty", meta.FileName)
	}
	if meta.FileSize < minFileSize {
		return meta, eris.Errorf("ingest: %s is suspiciously small (%d bytes)", meta.FileName, meta.FileSize)
	}
	if meta.FileSize > v.maxSize {
		return meta, eris.Errorf("ingest: %s exceeds size limit (%d bytes, max %d)",
			meta.FileName, meta.FileSize, v.maxSize)
	}

	if !v.extensions[meta.FileType] {
		return meta, eris.Errorf("ingest: unsupported file type %q", meta.FileType)
	}

	for desc, sig := range dangerousSignatures {
		if bytes.HasPrefix(content, sig) {
			return meta, eris.Errorf("ingest: %s rejected, %s signature", meta.FileName, desc)
		}
	}

	if !signatureMatches(meta.FileType, content) {
		zap.L().Warn("file content does not match extension",
			zap.String("file", meta.FileName),
			zap.String("ext", meta.FileType))
		return meta, eris.Errorf("ingest: %s content does not match %s", meta.FileName, meta.FileType)
	}

	return meta, nil
}

// MediaType returns the MIME type for a validated extension.
func MediaType(ext string) string {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".bmp":
		return "image/bmp"
	case ".tiff", ".tif":
		return "image/tiff"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

func signatureMatches(ext string, content []byte) bool {
	for _, sig := range knownSignatures {
		for _, e := range sig.exts {
			if e == ext {
				if bytes.HasPrefix(content, sig.prefix) {
					return true
				}
			}
		}
	}
	// Extensions without a known signature pass on extension alone.
	for _, sig := range knownSignatures {
		for _, e := range sig.exts {
			if e == ext {
				return false
			}
		}
	}
	return true
}
