// File: internal/infra/staging/staging.go
package staging

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"chopshop/internal/domain"
)

// StagedImage is a user-selected file converted into the transferable shape
// the submit endpoint accepts: a base64 data URL plus enough metadata to
// report what was staged.
type StagedImage struct {
	Name    string
	MIME    string
	Size    int64
	DataURL string
}

var acceptedMIME = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
}

// Load reads an image file into memory and encodes it as a data URL.
// Files over maxBytes are rejected before being read.
func Load(path string, maxBytes int64) (*StagedImage, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat image: %w", err)
	}
	if info.Size() > maxBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes (limit %d)", domain.ErrImageTooLarge, filepath.Base(path), info.Size(), maxBytes)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	mime := http.DetectContentType(raw)
	if !acceptedMIME[mime] {
		return nil, fmt.Errorf("%w: %s detected as %s", domain.ErrImageFormat, filepath.Base(path), mime)
	}

	return &StagedImage{
		Name:    filepath.Base(path),
		MIME:    mime,
		Size:    int64(len(raw)),
		DataURL: fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(raw)),
	}, nil
}
