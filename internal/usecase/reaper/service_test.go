package reaper_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/marcos-nsantos/menu-media-backend/internal/domain/entity"
	"github.com/marcos-nsantos/menu-media-backend/internal/domain/valueobject"
	"github.com/marcos-nsantos/menu-media-backend/internal/infrastructure/config"
	"github.com/marcos-nsantos/menu-media-backend/internal/infrastructure/storage"
	"github.com/marcos-nsantos/menu-media-backend/internal/mocks"
	"github.com/marcos-nsantos/menu-media-backend/internal/usecase/reaper"
)

var sizes = valueobject.DefaultImagePolicy().Sizes

func seed(t *testing.T, s *storage.LocalStorage, key string, age time.Duration) {
	t.Helper()
	_, err := s.Put(context.Background(), key, []byte("x"), "application/octet-stream")
	require.NoError(t, err)
	mtime := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(filepath.Join(s.Root(), filepath.FromSlash(key)), mtime, mtime))
}

func remaining(t *testing.T, s *storage.LocalStorage) []string {
	t.Helper()
	objects, err := s.List(context.Background(), "")
	require.NoError(t, err)
	out := make([]string, 0, len(objects))
	for _, o := range objects {
		out = append(out, o.Key)
	}
	sort.Strings(out)
	return out
}

func newLocal(t *testing.T) *storage.LocalStorage {
	t.Helper()
	s, err := storage.NewLocalStorage(config.LocalConfig{Root: t.TempDir(), BaseURL: "/uploads"})
	require.NoError(t, err)
	return s
}

func TestService_Sweep(t *testing.T) {
	ctx := context.Background()

	t.Run("removes only stale leftovers", func(t *testing.T) {
		local := newLocal(t)
		old := 48 * time.Hour

		seed(t, local, "product/p_1-1-aaaa-processed.webp", old)
		seed(t, local, "sizes/p_1-1-aaaa-thumbnail.webp", old)
		seed(t, local, "sizes/p_1-1-aaaa-medium.webp", old)
		seed(t, local, "sizes/p_1-1-aaaa-large.webp", old)
		seed(t, local, "product/p_1-2-bbbb.jpg", old)
		seed(t, local, "product/.upload-123456", old)
		seed(t, local, "sizes/p_1-1-aaaa-huge.webp", old)
		seed(t, local, "category/c_1-3-cccc.png", time.Minute)

		removed, err := reaper.NewService(local, sizes, zap.NewNop()).Sweep(ctx, "", 24*time.Hour)

		require.NoError(t, err)
		assert.Equal(t, 3, removed)
		assert.Equal(t, []string{
			"category/c_1-3-cccc.png",
			"product/p_1-1-aaaa-processed.webp",
			"sizes/p_1-1-aaaa-large.webp",
			"sizes/p_1-1-aaaa-medium.webp",
			"sizes/p_1-1-aaaa-thumbnail.webp",
		}, remaining(t, local))
	})

	t.Run("unknown extensions are never treated as managed", func(t *testing.T) {
		local := newLocal(t)
		seed(t, local, "product/p_1-1-aaaa-processed.tmp", 48*time.Hour)

		removed, err := reaper.NewService(local, sizes, zap.NewNop()).Sweep(ctx, "", time.Hour)

		require.NoError(t, err)
		assert.Equal(t, 1, removed)
		assert.Empty(t, remaining(t, local))
	})

	t.Run("limits the sweep to the prefix", func(t *testing.T) {
		local := newLocal(t)
		seed(t, local, "product/raw.jpg", 48*time.Hour)
		seed(t, local, "category/raw.jpg", 48*time.Hour)

		removed, err := reaper.NewService(local, sizes, zap.NewNop()).Sweep(ctx, "product/", time.Hour)

		require.NoError(t, err)
		assert.Equal(t, 1, removed)
		assert.Equal(t, []string{"category/raw.jpg"}, remaining(t, local))
	})

	t.Run("empty store", func(t *testing.T) {
		removed, err := reaper.NewService(newLocal(t), sizes, zap.NewNop()).Sweep(ctx, "", time.Hour)

		require.NoError(t, err)
		assert.Zero(t, removed)
	})

	t.Run("continues past delete failures", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockObjectStorage(ctrl)
		stale := time.Now().Add(-48 * time.Hour)

		store.EXPECT().List(ctx, "").Return([]entity.ObjectInfo{
			{Key: "product/a.jpg", LastModified: stale},
			{Key: "product/b.jpg", LastModified: stale},
		}, nil)
		store.EXPECT().Delete(ctx, "product/a.jpg").Return(errors.New("permission denied"))
		store.EXPECT().Delete(ctx, "product/b.jpg").Return(nil)

		removed, err := reaper.NewService(store, sizes, zap.NewNop()).Sweep(ctx, "", time.Hour)

		require.NoError(t, err)
		assert.Equal(t, 1, removed)
	})

	t.Run("returns list failures", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockObjectStorage(ctrl)
		store.EXPECT().List(ctx, "").Return(nil, errors.New("disk gone"))

		_, err := reaper.NewService(store, sizes, zap.NewNop()).Sweep(ctx, "", time.Hour)

		assert.ErrorContains(t, err, "disk gone")
	})
}

func TestService_Run(t *testing.T) {
	t.Run("sweeps immediately and stops with the context", func(t *testing.T) {
		local := newLocal(t)
		seed(t, local, "product/raw.jpg", 48*time.Hour)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			reaper.NewService(local, sizes, zap.NewNop()).Run(ctx, time.Hour, "", 24*time.Hour)
		}()

		assert.Eventually(t, func() bool {
			return len(remaining(t, local)) == 0
		}, 5*time.Second, 10*time.Millisecond)

		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("reaper did not stop")
		}
	})

	t.Run("sweeps again on every tick", func(t *testing.T) {
		local := newLocal(t)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go reaper.NewService(local, sizes, zap.NewNop()).Run(ctx, 20*time.Millisecond, "", time.Hour)

		time.Sleep(50 * time.Millisecond)
		seed(t, local, "sizes/orphan.png", 48*time.Hour)

		assert.Eventually(t, func() bool {
			return len(remaining(t, local)) == 0
		}, 5*time.Second, 10*time.Millisecond)
	})
}
