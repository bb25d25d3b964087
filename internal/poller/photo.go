package poller

import (
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"reelgen/internal/domain"
)

// LoadPhoto reads an image file into a data URL photo.
func LoadPhoto(path string) (domain.Photo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Photo{}, err
	}
	if len(data) == 0 {
		return domain.Photo{}, fmt.Errorf("poller: %s is empty", path)
	}
	return domain.Photo{Name: filepath.Base(path), Data: DataURL(path, data)}, nil
}

// DataURL encodes data as data:<mime>;base64,... The type comes from the
// file extension, falling back to content sniffing.
func DataURL(name string, data []byte) string {
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
