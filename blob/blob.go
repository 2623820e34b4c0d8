// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	_ "golang.org/x/image/webp"

	"github.com/danielhkuo/doudou/engine"
)

// URL prefix blobs are served under
const PathPrefix = "/blobs/"

var (
	ErrNotImage = fmt.Errorf("unsupported image format: %w", engine.ErrInvalidInput)
	ErrTooLarge = fmt.Errorf("image too large: %w", engine.ErrInvalidInput)
)

var extensions = map[string]string{
	"png":  ".png",
	"jpeg": ".jpg",
	"gif":  ".gif",
	"webp": ".webp",
}

// FSStore keeps blobs in an afero filesystem laid out as
// <session>/<participant>/<uuid><ext>
type FSStore struct {
	fs       afero.Fs
	baseURL  string
	maxBytes int64
}

// NewFSStore serves blobs at baseURL + PathPrefix. maxBytes <= 0 disables
// the size limit.
func NewFSStore(fs afero.Fs, baseURL string, maxBytes int64) *FSStore {
	return &FSStore{fs: fs, baseURL: strings.TrimRight(baseURL, "/"), maxBytes: maxBytes}
}

// NewOSStore roots a store at dir on the local disk
func NewOSStore(dir, baseURL string, maxBytes int64) (*FSStore, error) {
	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob dir: %w", err)
	}
	return NewFSStore(afero.NewBasePathFs(osFs, dir), baseURL, maxBytes), nil
}

func (s *FSStore) Put(ctx context.Context, obj engine.BlobObject, r io.Reader) (engine.StoredBlob, error) {
	if obj.SessionID == "" || obj.ParticipantID == "" {
		return engine.StoredBlob{}, fmt.Errorf("%w: blob needs session and participant", engine.ErrInvalidInput)
	}

	data, err := s.readLimited(r)
	if err != nil {
		return engine.StoredBlob{}, err
	}
	if err := ctx.Err(); err != nil {
		return engine.StoredBlob{}, err
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return engine.StoredBlob{}, ErrNotImage
	}
	ext, ok := extensions[format]
	if !ok {
		return engine.StoredBlob{}, ErrNotImage
	}

	dir := path.Join(obj.SessionID, obj.ParticipantID)
	key := path.Join(dir, uuid.NewString()+ext)
	if err := s.fs.MkdirAll("/"+dir, 0o755); err != nil {
		return engine.StoredBlob{}, engine.Upstream("create blob dir", err)
	}
	if err := afero.WriteFile(s.fs, "/"+key, data, 0o644); err != nil {
		return engine.StoredBlob{}, engine.Upstream("write blob", err)
	}

	return engine.StoredBlob{
		Key:  key,
		URL:  s.URL(key),
		Size: int64(len(data)),
	}, nil
}

func (s *FSStore) readLimited(r io.Reader) ([]byte, error) {
	if s.maxBytes <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, engine.Upstream("read upload", err)
		}
		return data, nil
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, fmt.Errorf("%w: limit is %s", ErrTooLarge, humanize.Bytes(uint64(s.maxBytes)))
		}
		return nil, engine.Upstream("read upload", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: limit is %s", ErrTooLarge, humanize.Bytes(uint64(s.maxBytes)))
	}
	return data, nil
}

func (s *FSStore) Delete(ctx context.Context, key string) error {
	if err := s.fs.Remove("/" + strings.TrimPrefix(key, "/")); err != nil && !errors.Is(err, afero.ErrFileNotFound) {
		return engine.Upstream("delete blob", err)
	}
	return nil
}

// URL returns the public URL of a stored key
func (s *FSStore) URL(key string) string {
	return s.baseURL + PathPrefix + key
}

// Handler serves stored blobs; mount it at PathPrefix. Directory listings
// are not served.
func (s *FSStore) Handler() http.Handler {
	files := http.StripPrefix(strings.TrimSuffix(PathPrefix, "/"), http.FileServer(afero.NewHttpFs(s.fs).Dir("/")))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}

var _ engine.BlobStore = (*FSStore)(nil)
