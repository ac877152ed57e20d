// Package blobtest provides blob stores for tests: a fake S3 server, a
// throwaway SQLite store and a wrapper that injects failures.
package blobtest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/savegamesync/internal/blobstore"
	"github.com/dmitrijs2005/savegamesync/internal/models"
	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
)

type MockS3 struct {
	Server *httptest.Server
	Client *s3.Client
	Bucket string
}

// StartMockS3 serves an in-memory S3 over HTTP and creates bucket in it.
func StartMockS3(ctx context.Context, bucket string) (*MockS3, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	backend := s3mem.New()
	faker := gofakes3.New(backend)
	server := httptest.NewServer(faker.Server())

	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
	)
	if err != nil {
		server.Close()
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String(server.URL)
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	if _, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)}); err != nil {
		server.Close()
		return nil, fmt.Errorf("create bucket %q: %w", bucket, err)
	}

	return &MockS3{Server: server, Client: client, Bucket: bucket}, nil
}

func (m *MockS3) Close() {
	if m == nil || m.Server == nil {
		return
	}
	m.Server.Close()
}

// NewSQLiteStore opens a migrated store in a temp dir, closed on cleanup.
func NewSQLiteStore(t testing.TB) *blobstore.SQLiteStore {
	t.Helper()

	s, err := blobstore.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "blobs.db"))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// Op names a Store method.
type Op string

const (
	OpListByName Op = "list-by-name"
	OpListAll    Op = "list-all"
	OpCreate     Op = "create"
	OpDelete     Op = "delete"
	OpUpload     Op = "upload"
	OpDownload   Op = "download"
)

type fault struct {
	nth int
	err error
}

// FaultStore wraps a Store and fails chosen calls, to simulate a crash or a
// lost connection partway through an operation.
type FaultStore struct {
	blobstore.Store

	mu     sync.Mutex
	calls  map[Op]int
	faults map[Op]fault
}

func NewFaultStore(s blobstore.Store) *FaultStore {
	return &FaultStore{Store: s, calls: make(map[Op]int), faults: make(map[Op]fault)}
}

// FailOn makes the nth call of op from now on return err. nth == 0 fails
// every call.
func (f *FaultStore) FailOn(op Op, nth int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op] = 0
	f.faults[op] = fault{nth: nth, err: err}
}

// Reset removes all faults.
func (f *FaultStore) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = make(map[Op]int)
	f.faults = make(map[Op]fault)
}

// Calls reports how many times op was invoked since its fault was set.
func (f *FaultStore) Calls(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *FaultStore) check(op Op) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	ft, ok := f.faults[op]
	if !ok {
		return nil
	}
	if ft.nth == 0 || ft.nth == f.calls[op] {
		return ft.err
	}
	return nil
}

func (f *FaultStore) ListByName(ctx context.Context, name string) ([]models.Blob, error) {
	if err := f.check(OpListByName); err != nil {
		return nil, err
	}
	return f.Store.ListByName(ctx, name)
}

func (f *FaultStore) ListAll(ctx context.Context) ([]models.Blob, error) {
	if err := f.check(OpListAll); err != nil {
		return nil, err
	}
	return f.Store.ListAll(ctx)
}

func (f *FaultStore) Create(ctx context.Context, name string) (string, error) {
	if err := f.check(OpCreate); err != nil {
		return "", err
	}
	return f.Store.Create(ctx, name)
}

func (f *FaultStore) Delete(ctx context.Context, id string) error {
	if err := f.check(OpDelete); err != nil {
		return err
	}
	return f.Store.Delete(ctx, id)
}

func (f *FaultStore) Upload(ctx context.Context, id string, r io.Reader) error {
	if err := f.check(OpUpload); err != nil {
		return err
	}
	return f.Store.Upload(ctx, id, r)
}

func (f *FaultStore) Download(ctx context.Context, id string, w io.Writer) error {
	if err := f.check(OpDownload); err != nil {
		return err
	}
	return f.Store.Download(ctx, id, w)
}

// Put creates a blob named name holding data, for seeding test fixtures.
func Put(ctx context.Context, s blobstore.Store, name string, data []byte) (string, error) {
	id, err := s.Create(ctx, name)
	if err != nil {
		return "", err
	}
	if err := s.Upload(ctx, id, bytes.NewReader(data)); err != nil {
		return "", err
	}
	return id, nil
}

// Names lists the names of every blob in s.
func Names(ctx context.Context, s blobstore.Store) ([]string, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(all))
	for _, b := range all {
		out = append(out, b.Name)
	}
	return out, nil
}
