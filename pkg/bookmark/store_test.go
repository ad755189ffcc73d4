package bookmark

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	_ "github.com/mattn/go-sqlite3"
)

// fakeS3 is an in-memory S3API.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func stores(t *testing.T) map[string]Store {
	t.Helper()

	sqlStore, db, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "bookmarks.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlStore,
		"s3":     NewS3Store(newFakeS3(), "views", "bookmarks/"),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := &Bookmark{Hash: "/map?z=12&lat=51.27", Title: "Harbour"}
			if err := store.Save(ctx, b); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			if b.ID == "" || b.Hash != "#/map?z=12&lat=51.27" || b.CreatedAt.IsZero() {
				t.Fatalf("Save() did not prepare bookmark: %+v", b)
			}

			got, err := store.Get(ctx, b.ID)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got.Hash != b.Hash || got.Title != b.Title {
				t.Errorf("Get() = %+v, want %+v", got, b)
			}
			if !got.CreatedAt.Equal(b.CreatedAt) {
				t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, b.CreatedAt)
			}

			b.Hash = "#/map?z=3"
			if err := store.Save(ctx, b); err != nil {
				t.Fatalf("overwrite Save() error = %v", err)
			}
			if got, _ := store.Get(ctx, b.ID); got == nil || got.Hash != "#/map?z=3" {
				t.Errorf("overwritten Get() = %+v", got)
			}

			if err := store.Delete(ctx, b.ID); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if _, err := store.Get(ctx, b.ID); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get() after Delete error = %v, want ErrNotFound", err)
			}
			if err := store.Delete(ctx, b.ID); err != nil {
				t.Errorf("second Delete() error = %v", err)
			}
		})
	}
}

func TestStoreRejectsInvalid(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for _, hash := range []string{"", "#", "   ", "#/?q=" + strings.Repeat("x", 9000)} {
				err := store.Save(context.Background(), &Bookmark{Hash: hash})
				if !errors.Is(err, ErrInvalid) {
					t.Errorf("Save(%.10q) error = %v, want ErrInvalid", hash, err)
				}
			}
		})
	}
}

func TestStoreClosed(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Close(); err != nil {
				t.Fatal(err)
			}
			ctx := context.Background()
			if err := store.Save(ctx, &Bookmark{Hash: "#/"}); !errors.Is(err, ErrStoreClosed) {
				t.Errorf("Save() error = %v", err)
			}
			if _, err := store.Get(ctx, "x"); !errors.Is(err, ErrStoreClosed) {
				t.Errorf("Get() error = %v", err)
			}
		})
	}
}

func TestPrepareKeepsGivenFields(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	b := &Bookmark{ID: "fixed", Hash: "#/map", CreatedAt: created}
	if err := Prepare(b); err != nil {
		t.Fatal(err)
	}
	if b.ID != "fixed" || !b.CreatedAt.Equal(created) {
		t.Errorf("Prepare() changed fields: %+v", b)
	}
	if Path(b.ID) != "/b/fixed" {
		t.Errorf("Path() = %q", Path(b.ID))
	}
}

func TestNewIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewID()
		if len(id) != 8 {
			t.Fatalf("NewID() = %q, want 8 chars", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
