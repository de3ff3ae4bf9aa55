package intake

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// UploadPrefix is where stored evidence is served from.
const UploadPrefix = "/api/uploads/"

var ErrImageTooLarge = errors.New("image exceeds the upload size limit")

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true, ".heic": true,
}

type uploadStore struct {
	dir      string
	maxBytes int64
}

// save writes data under a random name and returns its public path. The
// client's file name only contributes its extension.
func (u *uploadStore) save(filename string, data []byte) (string, error) {
	if u.maxBytes > 0 && int64(len(data)) > u.maxBytes {
		return "", ErrImageTooLarge
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !imageExtensions[ext] {
		ext = ".jpg"
	}
	name := uuid.NewString() + ext

	if err := os.MkdirAll(u.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(u.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return UploadPrefix + name, nil
}

func (u *uploadStore) remove(publicPath *string) {
	if publicPath == nil {
		return
	}
	name := strings.TrimPrefix(*publicPath, UploadPrefix)
	_ = os.Remove(filepath.Join(u.dir, name))
}
