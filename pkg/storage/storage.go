// Package storage keeps uploaded product images on the local filesystem.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/resinart/storefront-api/pkg/config"
	pkgerrors "github.com/resinart/storefront-api/pkg/errors"
	"github.com/resinart/storefront-api/pkg/logger"
)

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

// Object describes a stored file.
type Object struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Local writes files under a directory that the HTTP server exposes at PublicPath.
type Local struct {
	dir        string
	publicPath string
	maxBytes   int64
	logg       *logger.Logger
}

type Pinger interface {
	Ping(ctx context.Context) error
}

func NewLocal(cfg config.UploadConfig, logg *logger.Logger) (*Local, error) {
	dir := strings.TrimSpace(cfg.Dir)
	if dir == "" {
		return nil, fmt.Errorf("upload dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	public := "/" + strings.Trim(cfg.PublicPath, "/")
	return &Local{dir: dir, publicPath: public, maxBytes: cfg.MaxBytes(), logg: logg}, nil
}

func (l *Local) Dir() string {
	return l.dir
}

func (l *Local) PublicPath() string {
	return l.publicPath
}

// SaveImage stores an image under a generated name. Non-images and oversized payloads are rejected.
func (l *Local) SaveImage(ctx context.Context, prefix string, r io.Reader) (*Object, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload")
	}
	if int64(len(data)) > l.maxBytes {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "file exceeds %d bytes", l.maxBytes)
	}
	if len(data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is empty")
	}

	mime := mimetype.Detect(data)
	if !mimetype.EqualsAny(mime.String(), allowedImageTypes...) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only image files are allowed")
	}

	key := fmt.Sprintf("%s-%s%s", sanitizePrefix(prefix), uuid.NewString(), mime.Extension())
	tmp, err := os.CreateTemp(l.dir, ".upload-*")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create upload")
	}
	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write upload")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "close upload")
	}
	if err := os.Rename(tmp.Name(), filepath.Join(l.dir, key)); err != nil {
		_ = os.Remove(tmp.Name())
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store upload")
	}

	if l.logg != nil {
		l.logg.Info(l.logg.WithFields(ctx, map[string]any{"key": key, "size": len(data)}), "storage.saved")
	}

	return &Object{
		Key:         key,
		URL:         path.Join(l.publicPath, key),
		ContentType: mime.String(),
		Size:        int64(len(data)),
	}, nil
}

// Delete removes a file previously returned by SaveImage. URLs outside PublicPath are ignored.
func (l *Local) Delete(ctx context.Context, url string) error {
	prefix := l.publicPath + "/"
	if !strings.HasPrefix(url, prefix) {
		return nil
	}
	key := filepath.Base(strings.TrimPrefix(url, prefix))
	if key == "." || key == "/" || key == "" {
		return nil
	}
	err := os.Remove(filepath.Join(l.dir, key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Ping verifies the upload directory is still present.
func (l *Local) Ping(ctx context.Context) error {
	info, err := os.Stat(l.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", l.dir)
	}
	return nil
}

func sanitizePrefix(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "file"
	}
	return b.String()
}
