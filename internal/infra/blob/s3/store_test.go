package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"slices"
	"strings"
	"testing"

	"carveout/internal/blob/blobtest"
	"carveout/internal/blob/core"
)

func TestStoreContract(t *testing.T) {
	blobtest.Run(t, func(*testing.T) core.Store { return NewMockForTests() })
}

func TestStore_ListFollowsContinuationTokens(t *testing.T) {
	fake := newFakeS3(2)
	store := newMockStore(fake)
	ctx := context.Background()
	for _, k := range []string{"d/e.co", "d/a.co", "d/c.co", "d/b.co", "d/f.co"} {
		if _, err := store.Put(ctx, k, bytes.NewReader([]byte("x")), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}
	list, err := store.List(ctx, "d/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var keys []string
	for _, info := range list {
		keys = append(keys, info.Key)
	}
	if !slices.Equal(keys, []string{"d/a.co", "d/b.co", "d/c.co", "d/e.co", "d/f.co"}) {
		t.Fatalf("expected all five keys across pages, got %v", keys)
	}
	if lists := countPrefix(fake.requests, "GET /mock-bucket"); lists != 3 {
		t.Fatalf("expected three list pages, got %d", lists)
	}
}

func TestStore_PutRoundTripsMetadata(t *testing.T) {
	store := NewMockForTests()
	ctx := context.Background()
	info, err := store.Put(ctx, "a.co", bytes.NewReader([]byte(`{"format":"carveout"}`)), core.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"version": "1"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.ContentType != "application/json" || info.Size != 21 || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}
	got, rc, err := store.Get(ctx, "a.co")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != `{"format":"carveout"}` || got.Metadata["version"] != "1" {
		t.Fatalf("unexpected object %+v %q", got, body)
	}
}

func TestStore_DeleteMissingSkipsRequest(t *testing.T) {
	fake := newFakeS3(10)
	store := newMockStore(fake)
	if ok, err := store.Delete(context.Background(), "ghost.co"); err != nil || ok {
		t.Fatalf("expected (false, nil), got (%v, %v)", ok, err)
	}
	if countPrefix(fake.requests, http.MethodDelete) != 0 {
		t.Fatalf("delete request sent for missing key: %v", fake.requests)
	}
}

func countPrefix(requests []string, prefix string) int {
	n := 0
	for _, r := range requests {
		if strings.HasPrefix(r, prefix) {
			n++
		}
	}
	return n
}

type brokenTransport struct{}

func (brokenTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return respond(http.StatusInternalServerError, nil, nil), nil
}

func TestStore_ServerErrorsAreNotNotFound(t *testing.T) {
	store := newMockStore(brokenTransport{})
	_, err := store.Head(context.Background(), "k.co")
	if err == nil || errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected a server error, got %v", err)
	}
	if _, err := store.Delete(context.Background(), "k.co"); err == nil {
		t.Fatalf("expected delete to surface the head failure")
	}
}

func TestNewAndOpenFromEnv(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIA")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "SECRET")
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error for missing bucket")
	}
	s, err := New(context.Background(), Config{Bucket: "bkt", Endpoint: "https://mock.s3.local", PathStyle: true, AccessKeyID: "AKIA", SecretAccessKey: "SECRET"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.Driver() != core.DriverS3 || s.Bucket() != "bkt" {
		t.Fatalf("unexpected store %s %s", s.Driver(), s.Bucket())
	}

	t.Setenv("CARVEOUT_BLOB_S3_BUCKET", "")
	if _, err := OpenFromEnv(context.Background()); err == nil {
		t.Fatalf("expected missing bucket error")
	}
	t.Setenv("CARVEOUT_BLOB_S3_BUCKET", "env-bucket")
	t.Setenv("CARVEOUT_BLOB_S3_REGION", "eu-west-1")
	t.Setenv("CARVEOUT_BLOB_S3_PATH_STYLE", "TRUE")
	s, err = OpenFromEnv(context.Background())
	if err != nil {
		t.Fatalf("OpenFromEnv: %v", err)
	}
	if s.Bucket() != "env-bucket" {
		t.Fatalf("unexpected bucket %s", s.Bucket())
	}
}

func TestDecodeChunked(t *testing.T) {
	if _, err := decodeChunked([]byte("not-chunked")); err == nil {
		t.Fatalf("expected framing error")
	}
	if _, err := decodeChunked([]byte("5\r\nabc")); err == nil {
		t.Fatalf("short chunk should fail")
	}
	got, err := decodeChunked([]byte("5;chunk-signature=x\r\nhello\r\n3\r\n!!!\r\n0\r\nx-amz-checksum-crc32:AAAA\r\n\r\n"))
	if err != nil || string(got) != "hello!!!" {
		t.Fatalf("decode: %q %v", got, err)
	}
}
