package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"incorpapi/internal/config"
)

func TestObjectKey(t *testing.T) {
	tests := []struct {
		location string
		want     string
	}{
		{"registrations/r1/passport.pdf", "registrations/r1/passport.pdf"},
		{"/registrations/r1/passport.pdf", "registrations/r1/passport.pdf"},
		{"s3://incorp-docs/registrations/r1/passport.pdf", "registrations/r1/passport.pdf"},
		{"  uploads/a.png ", "uploads/a.png"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ObjectKey(tt.location), tt.location)
	}
}

func TestNewMinIO_ValidatesConfig(t *testing.T) {
	_, err := NewMinIO(config.MinIOConfig{})
	assert.ErrorContains(t, err, "endpoint")

	_, err = NewMinIO(config.MinIOConfig{Endpoint: "localhost:9000"})
	assert.ErrorContains(t, err, "credentials")

	_, err = NewMinIO(config.MinIOConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	assert.ErrorContains(t, err, "bucket")
}
