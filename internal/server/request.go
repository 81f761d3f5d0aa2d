package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
)

// Form field names posted by the index page.
const (
	fieldTestDB     = "test_db"
	fieldUploadFile = "upload_file"
	fieldDriver     = "db_driver"
	fieldHost       = "db_host"
	fieldName       = "db_name"
	fieldUser       = "db_user"
	fieldPass       = "db_pass"
	fieldPort       = "db_port"
	fieldBucket     = "bucket_name"
	fieldFile       = "file"
)

// maxMultipartMemory is how much of a multipart body is held in memory
// before parts spill to temporary files.
const maxMultipartMemory = 32 << 20

var (
	errMissingField = errors.New("missing form field")
	errInvalidPort  = errors.New("invalid port")
)

// ConnectionRequest holds the parameters for a one-shot database check.
// Values are used exactly as submitted.
type ConnectionRequest struct {
	Driver   string
	Host     string
	Database string
	Username string
	Password string
	Port     int
}

// UploadRequest is a single object write.
type UploadRequest struct {
	Bucket      string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Action is the outcome of parsing a form submission. Exactly one of
// DBTestAction, UploadAction or NoAction.
type Action interface {
	isAction()
}

// DBTestAction asks for a connectivity check.
type DBTestAction struct {
	Conn ConnectionRequest
}

// UploadAction asks for a file to be written to Bucket. File is nil when the
// form carried no file, which is not an error.
type UploadAction struct {
	Bucket string
	File   *multipart.FileHeader
}

// NoAction is a submission that carried neither action key.
type NoAction struct{}

func (DBTestAction) isAction() {}
func (UploadAction) isAction() {}
func (NoAction) isAction()     {}

// parseAction reads the submitted form and decides what was asked for.
// test_db wins when both action keys are present.
func parseAction(r *http.Request, defaultDriver string) (Action, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, err
	}

	switch {
	case hasKey(r, fieldTestDB):
		return parseDBTest(r, defaultDriver)
	case hasKey(r, fieldUploadFile):
		return parseUpload(r)
	default:
		return NoAction{}, nil
	}
}

func parseDBTest(r *http.Request, defaultDriver string) (Action, error) {
	fields := map[string]string{}
	for _, key := range []string{fieldHost, fieldName, fieldUser, fieldPass, fieldPort} {
		v, ok := formValue(r, key)
		if !ok {
			return nil, fmt.Errorf("%w: %s", errMissingField, key)
		}
		fields[key] = v
	}

	port, err := strconv.Atoi(strings.TrimSpace(fields[fieldPort]))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", errInvalidPort, fields[fieldPort])
	}

	driver, _ := formValue(r, fieldDriver)
	if driver == "" {
		driver = defaultDriver
	}

	return DBTestAction{Conn: ConnectionRequest{
		Driver:   driver,
		Host:     fields[fieldHost],
		Database: fields[fieldName],
		Username: fields[fieldUser],
		Password: fields[fieldPass],
		Port:     port,
	}}, nil
}

func parseUpload(r *http.Request) (Action, error) {
	bucket, ok := formValue(r, fieldBucket)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errMissingField, fieldBucket)
	}

	action := UploadAction{Bucket: bucket}
	if r.MultipartForm != nil {
		if files := r.MultipartForm.File[fieldFile]; len(files) > 0 && files[0].Filename != "" {
			action.File = files[0]
		}
	}
	return action, nil
}

// hasKey reports whether key was posted, even with an empty value.
func hasKey(r *http.Request, key string) bool {
	_, ok := formValue(r, key)
	return ok
}

// formValue looks a key up in the posted body only, never the query string.
func formValue(r *http.Request, key string) (string, bool) {
	if vs, ok := r.PostForm[key]; ok && len(vs) > 0 {
		return vs[0], true
	}
	return "", false
}
