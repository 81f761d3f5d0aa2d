package server

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	mu    sync.Mutex
	err   error
	calls []ConnectionRequest
}

func (f *fakeChecker) Check(_ context.Context, req ConnectionRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	return f.err
}

type storedObject struct {
	Bucket      string
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

type fakeStore struct {
	mu        sync.Mutex
	err       error
	exists    bool
	existsErr error
	uploads   []storedObject
}

func (f *fakeStore) Upload(_ context.Context, req UploadRequest) error {
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, storedObject{
		Bucket:      req.Bucket,
		Filename:    req.Filename,
		ContentType: req.ContentType,
		Size:        req.Size,
		Data:        data,
	})
	return f.err
}

func (f *fakeStore) BucketExists(_ context.Context, _ string) (bool, error) {
	return f.exists, f.existsErr
}

// newTestServer wires a Server around fakes. opts may adjust the config
// before construction.
func newTestServer(t *testing.T, opts ...func(*Config)) (*Server, *fakeChecker, *fakeStore) {
	t.Helper()
	checker := &fakeChecker{}
	store := &fakeStore{exists: true}
	cfg := Config{
		Hostname: "probe-host-1",
		Build:    BuildInfo{Version: "test", Commit: "abc123"},
		Logger:   zerolog.Nop(),
		Checker:  checker,
		Store:    store,
	}
	for _, o := range opts {
		o(&cfg)
	}
	s := New(cfg)
	t.Cleanup(func() {
		if s.limiter != nil {
			s.limiter.Close()
		}
	})
	return s, checker, store
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func formRequest(vals url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(vals.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

type filePart struct {
	name    string
	content []byte
}

// multipartRequest builds a multipart POST. file may be nil to omit the part.
func multipartRequest(t *testing.T, vals map[string]string, file *filePart) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range vals {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		part, err := w.CreateFormFile("file", file.name)
		require.NoError(t, err)
		_, err = part.Write(file.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func dbForm(extra map[string]string) url.Values {
	vals := url.Values{
		"test_db": {"1"},
		"db_host": {"db.internal"},
		"db_name": {"app"},
		"db_user": {"app"},
		"db_pass": {"s3cret"},
		"db_port": {"3306"},
	}
	for k, v := range extra {
		vals.Set(k, v)
	}
	return vals
}
