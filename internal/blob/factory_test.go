package blob

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"carveout/internal/blob/blobtest"
)

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()

	t.Setenv("CARVEOUT_BLOB_DRIVER", "memory")
	s, err := Open(ctx)
	if err != nil || s.Driver() != DriverMemory {
		t.Fatalf("memory: %v %v", s, err)
	}

	root := filepath.Join(t.TempDir(), "blobs")
	t.Setenv("CARVEOUT_BLOB_DRIVER", "")
	t.Setenv("CARVEOUT_BLOB_FS_ROOT", root)
	s, err = Open(ctx)
	if err != nil || s.Driver() != DriverFilesystem {
		t.Fatalf("fs default: %v %v", s, err)
	}

	t.Setenv("CARVEOUT_BLOB_DRIVER", "s3")
	t.Setenv("CARVEOUT_BLOB_S3_BUCKET", "")
	if s, err := Open(ctx); err == nil || s != nil {
		t.Fatalf("expected s3 to require a bucket, got %v %v", s, err)
	}

	t.Setenv("CARVEOUT_BLOB_DRIVER", "ftp")
	if _, err := Open(ctx); err == nil || !strings.Contains(err.Error(), "unknown blob driver") {
		t.Fatalf("expected unknown driver error, got %v", err)
	}
}

func TestFacadeConstructorsSatisfyContract(t *testing.T) {
	blobtest.Run(t, func(*testing.T) Store { return NewMemory() })
	blobtest.Run(t, func(*testing.T) Store { return NewMockS3ForTests() })
	blobtest.Run(t, func(t *testing.T) Store {
		s, err := NewFilesystem(t.TempDir())
		if err != nil {
			t.Fatalf("fs: %v", err)
		}
		return s
	})
}

func TestNewS3RequiresBucket(t *testing.T) {
	if s, err := NewS3(context.Background(), S3Config{}); err == nil || s != nil {
		t.Fatalf("expected bucket error with nil store, got %v %v", s, err)
	}
}
