package storage_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adapterstorage "github.com/marcos-nsantos/menu-media-backend/internal/adapter/storage"
	"github.com/marcos-nsantos/menu-media-backend/internal/domain"
	"github.com/marcos-nsantos/menu-media-backend/internal/infrastructure/config"
	"github.com/marcos-nsantos/menu-media-backend/internal/infrastructure/storage"
)

// fakeS3 is an in-memory bucket returning pages of pageSize keys.
type fakeS3 struct {
	mu            sync.Mutex
	objects       map[string][]byte
	pageSize      int
	failPut       error
	undeletable   map[string]bool
	deleteCalls   int
	batchRequests int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte), pageSize: 2, undeletable: make(map[string]bool)}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.failPut != nil {
		return nil, f.failPut
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{ETag: aws.String(`"etag-` + aws.ToString(in.Key) + `"`)}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjects(_ context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchRequests++
	out := &s3.DeleteObjectsOutput{}
	for _, obj := range in.Delete.Objects {
		key := aws.ToString(obj.Key)
		if f.undeletable[key] {
			out.Errors = append(out.Errors, types.Error{Key: obj.Key, Message: aws.String("access denied")})
			continue
		}
		delete(f.objects, key)
	}
	return out, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matching []string
	for key := range f.objects {
		if strings.HasPrefix(key, aws.ToString(in.Prefix)) && key > aws.ToString(in.ContinuationToken) {
			matching = append(matching, key)
		}
	}
	sort.Strings(matching)

	out := &s3.ListObjectsV2Output{}
	if len(matching) > f.pageSize {
		matching = matching[:f.pageSize]
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(matching[len(matching)-1])
	}
	for _, key := range matching {
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(key),
			Size:         aws.Int64(int64(len(f.objects[key]))),
			LastModified: aws.Time(time.Unix(1700000000, 0)),
		})
	}
	return out, nil
}

func newS3Storage(client storage.S3API) *storage.S3Storage {
	return storage.NewS3StorageWithClient(client, config.S3Config{
		Bucket:    "menus",
		PublicURL: "https://cdn.example.com/",
	})
}

func TestS3Storage_Put(t *testing.T) {
	ctx := context.Background()

	t.Run("uploads and returns the public url", func(t *testing.T) {
		fake := newFakeS3()
		s := newS3Storage(fake)

		obj, err := s.Put(ctx, "product/a-processed.webp", []byte("data"), "image/webp")

		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/product/a-processed.webp", obj.URL)
		assert.Equal(t, "etag-product/a-processed.webp", obj.ETag)
		assert.Equal(t, int64(4), obj.Size)
		assert.Equal(t, []byte("data"), fake.objects["product/a-processed.webp"])
	})

	t.Run("wraps upload failures", func(t *testing.T) {
		fake := newFakeS3()
		fake.failPut = errors.New("connection reset")

		_, err := newS3Storage(fake).Put(ctx, "product/a-processed.webp", []byte("data"), "image/webp")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection reset")
	})
}

func TestS3Storage_Get(t *testing.T) {
	fake := newFakeS3()
	fake.objects["sizes/a-medium.webp"] = []byte("medium")
	s := newS3Storage(fake)

	data, err := s.Get(context.Background(), "sizes/a-medium.webp")
	require.NoError(t, err)
	assert.Equal(t, []byte("medium"), data)

	_, err = s.Get(context.Background(), "sizes/missing.webp")
	assert.ErrorIs(t, err, adapterstorage.ErrObjectNotFound)
}

func TestS3Storage_DeleteByPrefix(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes every page under the prefix", func(t *testing.T) {
		fake := newFakeS3()
		for _, key := range []string{
			"sizes/gen1-large.webp", "sizes/gen1-medium.webp", "sizes/gen1-thumbnail.webp",
			"sizes/gen2-thumbnail.webp",
		} {
			fake.objects[key] = []byte("x")
		}

		n, err := newS3Storage(fake).DeleteByPrefix(ctx, "sizes/gen1-")

		require.NoError(t, err)
		assert.Equal(t, 3, n)
		assert.Len(t, fake.objects, 1)
		assert.Contains(t, fake.objects, "sizes/gen2-thumbnail.webp")
	})

	t.Run("reports keys the bucket refused to delete", func(t *testing.T) {
		fake := newFakeS3()
		fake.objects["sizes/gen1-large.webp"] = []byte("x")
		fake.objects["sizes/gen1-medium.webp"] = []byte("x")
		fake.undeletable["sizes/gen1-medium.webp"] = true

		n, err := newS3Storage(fake).DeleteByPrefix(ctx, "sizes/gen1-")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "sizes/gen1-medium.webp")
		assert.Equal(t, 1, n)
	})

	t.Run("nothing to delete makes no batch request", func(t *testing.T) {
		fake := newFakeS3()

		n, err := newS3Storage(fake).DeleteByPrefix(ctx, "sizes/none-")

		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Zero(t, fake.batchRequests)
	})

	t.Run("refuses an empty prefix", func(t *testing.T) {
		_, err := newS3Storage(newFakeS3()).DeleteByPrefix(ctx, "")
		assert.Error(t, err)
	})
}

func TestS3Storage_Delete(t *testing.T) {
	fake := newFakeS3()
	fake.objects["product/a-processed.webp"] = []byte("x")
	s := newS3Storage(fake)

	require.NoError(t, s.Delete(context.Background(), "product/a-processed.webp"))
	require.NoError(t, s.Delete(context.Background(), "product/a-processed.webp"))

	assert.Empty(t, fake.objects)
	assert.Equal(t, 2, fake.deleteCalls)
}

func TestS3Storage_List(t *testing.T) {
	fake := newFakeS3()
	fake.objects["product/a-processed.webp"] = []byte("abc")
	fake.objects["product/b-processed.webp"] = []byte("de")
	fake.objects["product/c-processed.webp"] = []byte("f")
	fake.objects["sizes/a-large.webp"] = []byte("g")

	objects, err := newS3Storage(fake).List(context.Background(), "product/")

	require.NoError(t, err)
	require.Len(t, objects, 3)
	assert.Equal(t, "product/a-processed.webp", objects[0].Key)
	assert.Equal(t, int64(3), objects[0].Size)
	assert.Equal(t, time.Unix(1700000000, 0), objects[0].LastModified)
}

func TestS3Storage_URLs(t *testing.T) {
	t.Run("public url round trip", func(t *testing.T) {
		s := newS3Storage(newFakeS3())

		key, err := s.KeyFromURL(s.URLFor("restaurant-logo/a-processed.png"))

		require.NoError(t, err)
		assert.Equal(t, "restaurant-logo/a-processed.png", key)
	})

	t.Run("ignores query strings", func(t *testing.T) {
		s := newS3Storage(newFakeS3())

		key, err := s.KeyFromURL("https://cdn.example.com/product/a-processed.webp?v=2")

		require.NoError(t, err)
		assert.Equal(t, "product/a-processed.webp", key)
	})

	t.Run("defaults to the virtual hosted bucket url", func(t *testing.T) {
		s := storage.NewS3StorageWithClient(newFakeS3(), config.S3Config{Bucket: "menus"})

		assert.Equal(t, "https://menus.s3.amazonaws.com/product/a.webp", s.URLFor("product/a.webp"))
	})

	t.Run("uses endpoint and bucket for s3 compatible stores", func(t *testing.T) {
		s := storage.NewS3StorageWithClient(newFakeS3(), config.S3Config{Bucket: "menus", Endpoint: "http://minio:9000"})

		assert.Equal(t, "http://minio:9000/menus/product/a.webp", s.URLFor("product/a.webp"))
	})

	t.Run("rejects foreign urls", func(t *testing.T) {
		_, err := newS3Storage(newFakeS3()).KeyFromURL("https://elsewhere.example.com/product/a.webp")

		assert.ErrorIs(t, err, domain.ErrInvalidAssetURL)
	})
}
