package vision

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"lyra/internal/apperr"
)

// OCR shells out to the tesseract binary.
type OCR struct {
	// TesseractPath is the binary to run; plain "tesseract" resolves via PATH.
	TesseractPath string
}

func NewOCR(tesseractPath string) *OCR {
	if tesseractPath == "" {
		tesseractPath = "tesseract"
	}
	return &OCR{TesseractPath: tesseractPath}
}

// ExtractText runs OCR over the image at path and returns the trimmed text,
// which may be empty. A missing file reports apperr.ErrNotFound so callers
// can tell a stale capture from an engine failure.
func (o *OCR) ExtractText(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("vision: %w: %s", apperr.ErrNotFound, path)
		}
		return "", fmt.Errorf("vision: stat %s: %w", path, err)
	}

	cmd := exec.Command(o.TesseractPath, path, "stdout")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("vision: tesseract: %w", err)
	}

	return strings.TrimSpace(string(out)), nil
}
