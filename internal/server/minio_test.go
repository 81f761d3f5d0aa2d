package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormaliseEndpoint(t *testing.T) {
	tests := []struct {
		in           string
		wantEndpoint string
		wantSecure   bool
		wantErr      bool
	}{
		{"minio:9000", "minio:9000", false, false},
		{" minio:9000 ", "minio:9000", false, false},
		{"http://minio:9000", "minio:9000", false, false},
		{"https://s3.amazonaws.com", "s3.amazonaws.com", true, false},
		{"https://s3.eu-west-1.amazonaws.com/", "s3.eu-west-1.amazonaws.com", true, false},
		{"http://minio:9000/bucket", "", false, true},
		{"https://", "", false, true},
		{"", "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			ep, secure, err := normaliseEndpoint(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantEndpoint, ep)
			assert.Equal(t, tt.wantSecure, secure)
		})
	}
}

func TestObjectURL(t *testing.T) {
	assert.Equal(t, "https://test-bucket.s3.amazonaws.com/report.txt", objectURL("test-bucket", "report.txt"))
	assert.Equal(t, "https://b.s3.amazonaws.com/my file.pdf", objectURL("b", "my file.pdf"))
}

func TestNewMinioStore(t *testing.T) {
	store, err := NewMinioStore(StoreConfig{
		Endpoint:  "http://127.0.0.1:9000",
		Region:    "us-east-1",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	})
	require.NoError(t, err)
	assert.NotNil(t, store)

	_, err = NewMinioStore(StoreConfig{Endpoint: "http://host/path"})
	assert.Error(t, err)
}

func TestStoreCredentials(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")

	static := storeCredentials(StoreConfig{AccessKey: "ak", SecretKey: "sk"})
	v, err := static.Get()
	require.NoError(t, err)
	assert.Equal(t, "ak", v.AccessKeyID)
	assert.Equal(t, "sk", v.SecretAccessKey)

	t.Setenv("AWS_ACCESS_KEY_ID", "env-ak")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "env-sk")
	chain := storeCredentials(StoreConfig{AccessKey: "only-access"})
	v, err = chain.Get()
	require.NoError(t, err)
	assert.Equal(t, "env-ak", v.AccessKeyID)
}
