// Package blobstore persists uploaded media and hands back the public URL the
// stored file is served under.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store saves uploaded blobs. kind groups files ("audio", "covers").
type Store interface {
	Save(ctx context.Context, kind, filename string, r io.Reader) (string, error)
}

// Disk stores blobs under Dir/<kind>/ and serves them below URLPrefix.
// Filenames get a random suffix so repeated uploads of the same name never
// collide.
type Disk struct {
	Dir       string
	URLPrefix string
}

func NewDisk(dir, urlPrefix string) *Disk {
	return &Disk{Dir: dir, URLPrefix: strings.TrimSuffix(urlPrefix, "/")}
}

func (d *Disk) Save(ctx context.Context, kind, filename string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Join(d.Dir, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	name := suffixed(filename)
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}

	return d.URLPrefix + "/" + kind + "/" + name, nil
}

func suffixed(filename string) string {
	base := filepath.Base(filename)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" || stem == "." {
		stem = "upload"
	}
	return fmt.Sprintf("%s-%s%s", sanitize(stem), uuid.NewString()[:8], ext)
}

// sanitize keeps the stored name shell- and URL-friendly.
func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
