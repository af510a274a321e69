package domain_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/pbundle/internal/core/domain"
)

func TestDefaultCachePath(t *testing.T) {
	t.Setenv(domain.CacheEnvVar, "/tmp/custom-cache")
	assert.Equal(t, "/tmp/custom-cache", domain.DefaultCachePath())

	t.Setenv(domain.CacheEnvVar, "")
	assert.Equal(t, domain.CacheDirName, filepath.Base(domain.DefaultCachePath()))
}

func TestDefaultPlatformTag(t *testing.T) {
	t.Setenv(domain.PlatformEnvVar, "")
	assert.Equal(t, domain.DefaultPlatform, domain.DefaultPlatformTag())

	t.Setenv(domain.PlatformEnvVar, "pypy")
	assert.Equal(t, "pypy", domain.DefaultPlatformTag())
}

func TestHTTPTimeout(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", domain.DefaultHTTPTimeout},
		{"5s", 5 * time.Second},
		{"garbage", domain.DefaultHTTPTimeout},
		{"-1s", domain.DefaultHTTPTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv(domain.HTTPTimeoutEnvVar, tt.value)
			assert.Equal(t, tt.want, domain.HTTPTimeout())
		})
	}
}
