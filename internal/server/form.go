package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Severity controls how a StatusMessage is styled.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityDanger  Severity = "danger"
)

// StatusMessage is shown once, on the page rendered for the submission that
// produced it.
type StatusMessage struct {
	Text     string
	Severity Severity
}

const (
	msgDBConnected  = "Connected to database successfully!"
	msgDBFailed     = "Failed to connect to database"
	msgUploaded     = "File uploaded successfully! Download URL: "
	msgUploadFailed = "Failed to upload file"
)

// handleIndex serves both GET and POST on "/". GET and a POST with no action
// key render the same page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page := s.newPage(r)

	if r.Method == http.MethodPost {
		if s.cfg.MaxUploadBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
		}

		action, err := parseAction(r, s.cfg.DefaultDriver)
		// r is a copy made by the middleware, so net/http never sees this
		// form and would leave spilled parts in the temp dir.
		if r.MultipartForm != nil {
			defer func() { _ = r.MultipartForm.RemoveAll() }()
		}
		if err != nil {
			s.rejectForm(w, r, err)
			return
		}
		page.Message = s.dispatch(r.Context(), action)
	}

	s.render(w, r, page)
}

// rejectForm answers submissions that could not be parsed. No page is
// rendered.
func (s *Server) rejectForm(w http.ResponseWriter, r *http.Request, err error) {
	zerolog.Ctx(r.Context()).Warn().Err(err).Msg("form_rejected")

	switch {
	case isTooLarge(err):
		http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
	case errors.Is(err, errInvalidPort):
		http.Error(w, "port must be a number", http.StatusBadRequest)
	case errors.Is(err, errMissingField):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "bad form submission", http.StatusBadRequest)
	}
}

// isTooLarge reports whether err came from the MaxBytesReader. The multipart
// reader does not always wrap the underlying error, so fall back to its text.
func isTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}

// dispatch runs exactly one action and returns the message to show, or nil.
func (s *Server) dispatch(ctx context.Context, action Action) *StatusMessage {
	switch a := action.(type) {
	case DBTestAction:
		return s.testDatabase(ctx, a.Conn)
	case UploadAction:
		if a.File == nil {
			return nil
		}
		return s.uploadFile(ctx, a)
	case NoAction:
		return nil
	default:
		panic(fmt.Sprintf("server: unhandled action %T", action))
	}
}

func (s *Server) testDatabase(ctx context.Context, conn ConnectionRequest) *StatusMessage {
	logger := zerolog.Ctx(ctx).With().
		Str("driver", conn.Driver).
		Str("db_host", conn.Host).
		Int("db_port", conn.Port).
		Str("db_name", conn.Database).
		Logger()

	start := time.Now()
	err := s.checker.Check(ctx, conn)
	s.metrics.RecordDBTest(err == nil, time.Since(start))

	if err != nil {
		logger.Error().Err(err).Msg("db_test_failed")
		return s.failure(ctx, msgDBFailed, err)
	}

	logger.Info().Dur("took", time.Since(start)).Msg("db_test_ok")
	return &StatusMessage{Text: msgDBConnected, Severity: SeveritySuccess}
}

func (s *Server) uploadFile(ctx context.Context, a UploadAction) *StatusMessage {
	logger := zerolog.Ctx(ctx).With().
		Str("bucket", a.Bucket).
		Str("key", a.File.Filename).
		Int64("size", a.File.Size).
		Logger()

	f, err := a.File.Open()
	if err != nil {
		s.metrics.RecordUploadError()
		logger.Error().Err(err).Msg("upload_open_failed")
		return s.failure(ctx, msgUploadFailed, err)
	}
	defer func() { _ = f.Close() }()

	uctx, cancel := context.WithTimeout(ctx, s.cfg.UploadTimeout)
	defer cancel()

	start := time.Now()
	err = s.store.Upload(uctx, UploadRequest{
		Bucket:      a.Bucket,
		Filename:    a.File.Filename,
		ContentType: a.File.Header.Get("Content-Type"),
		Size:        a.File.Size,
		Body:        f,
	})
	if err != nil {
		s.metrics.RecordUploadError()
		logger.Error().Err(err).Msg("upload_failed")
		return s.failure(ctx, msgUploadFailed, err)
	}

	s.metrics.RecordUpload(a.File.Size, time.Since(start))
	logger.Info().Msg("upload_ok")
	return &StatusMessage{
		Text:     msgUploaded + objectURL(a.Bucket, a.File.Filename),
		Severity: SeveritySuccess,
	}
}

// failure builds the danger message for a backend error. The raw error text
// is only shown when ExposeErrors is set; otherwise the request id points
// operators at the logged detail.
func (s *Server) failure(ctx context.Context, prefix string, err error) *StatusMessage {
	text := prefix + "."
	if s.cfg.ExposeErrors {
		text = prefix + ": " + err.Error()
	} else if rid := RequestIDFromContext(ctx); rid != "" {
		text = fmt.Sprintf("%s. See server logs for request %s.", prefix, rid)
	}
	return &StatusMessage{Text: text, Severity: SeverityDanger}
}
