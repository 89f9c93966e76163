package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"

	adapterstorage "github.com/marcos-nsantos/menu-media-backend/internal/adapter/storage"
	"github.com/marcos-nsantos/menu-media-backend/internal/domain"
	"github.com/marcos-nsantos/menu-media-backend/internal/domain/entity"
	"github.com/marcos-nsantos/menu-media-backend/internal/infrastructure/config"
)

// LocalStorage keeps objects as files under a root directory using the same
// key layout as the bucket. Intended for development and tests.
type LocalStorage struct {
	root    string
	baseURL string
}

func NewLocalStorage(cfg config.LocalConfig) (*LocalStorage, error) {
	root := strings.TrimSpace(cfg.Root)
	if root == "" {
		return nil, errors.New("local storage: root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("local storage: resolving root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("local storage: creating root: %w", err)
	}
	return &LocalStorage{
		root:    abs,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}, nil
}

func (s *LocalStorage) Root() string {
	return s.root
}

// Put writes through a temp file and rename so readers never see a partial object.
func (s *LocalStorage) Put(ctx context.Context, key string, data []byte, contentType string) (*entity.StorageObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return nil, err
	}

	fullPath := s.path(cleanKey)
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("local storage: creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("local storage: creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return nil, fmt.Errorf("local storage: writing file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("local storage: closing file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("local storage: chmod: %w", err)
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("local storage: renaming file: %w", err)
	}

	sum := md5.Sum(data)
	return &entity.StorageObject{
		Key:         cleanKey,
		URL:         s.URLFor(cleanKey),
		ETag:        hex.EncodeToString(sum[:]),
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

func (s *LocalStorage) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(cleanKey))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", adapterstorage.ErrObjectNotFound, cleanKey)
		}
		return nil, fmt.Errorf("local storage: reading file: %w", err)
	}
	return data, nil
}

func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(s.path(cleanKey)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("local storage: removing file: %w", err)
	}
	return nil
}

func (s *LocalStorage) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	if prefix == "" {
		return 0, errors.New("local storage: empty prefix")
	}
	objects, err := s.List(ctx, prefix)
	if err != nil {
		return 0, err
	}

	deleted := 0
	var errs error
	for _, obj := range objects {
		if err := s.Delete(ctx, obj.Key); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		deleted++
	}
	return deleted, errs
}

// List walks the directory that contains prefix and returns the files whose
// key starts with it.
func (s *LocalStorage) List(ctx context.Context, prefix string) ([]entity.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := "."
	if prefix != "" {
		if strings.Contains(prefix, "..") {
			return nil, fmt.Errorf("local storage: invalid prefix %q", prefix)
		}
		dir = path.Dir(strings.TrimLeft(prefix, "/") + "x")
	}
	walkRoot := s.path(dir)

	var objects []entity.ObjectInfo
	err := filepath.WalkDir(walkRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return ctx.Err()
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, strings.TrimLeft(prefix, "/")) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		objects = append(objects, entity.ObjectInfo{
			Key:          key,
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("local storage: listing %q: %w", prefix, err)
	}
	return objects, nil
}

func (s *LocalStorage) URLFor(key string) string {
	return fmt.Sprintf("%s/%s", s.baseURL, key)
}

// KeyFromURL accepts both the relative form ("/uploads/...") and absolute
// URLs whose path lives under the base URL path.
func (s *LocalStorage) KeyFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidAssetURL, rawURL)
	}
	base, err := url.Parse(s.baseURL)
	if err != nil {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidAssetURL, rawURL)
	}
	if u.Host != "" && base.Host != "" && u.Host != base.Host {
		return "", fmt.Errorf("%w: %q is not served from local storage", domain.ErrInvalidAssetURL, rawURL)
	}

	rest, ok := strings.CutPrefix(u.Path, strings.TrimRight(base.Path, "/")+"/")
	if !ok {
		return "", fmt.Errorf("%w: %q is not served from local storage", domain.ErrInvalidAssetURL, rawURL)
	}
	key, err := sanitizeKey(rest)
	if err != nil {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidAssetURL, rawURL)
	}
	return key, nil
}

func (s *LocalStorage) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("local storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimLeft(strings.TrimPrefix(key, "./"), "/")
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("local storage: invalid key %q", key)
	}
	return cleaned, nil
}
