package sources_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/pbundle/internal/adapters/distmeta"
	"go.trai.ch/pbundle/internal/adapters/fs"
	"go.trai.ch/pbundle/internal/adapters/sources"
	"go.trai.ch/pbundle/internal/core/domain"
	"go.trai.ch/pbundle/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func newFactory(t *testing.T) *sources.Factory {
	t.Helper()
	ctrl := gomock.NewController(t)
	return sources.NewFactory(mocks.NewMockLogger(ctrl), fs.NewWalker(), fs.NewHasher(), distmeta.NewReader(), time.Second)
}

func TestFactory_ForURL(t *testing.T) {
	f := newFactory(t)

	first, err := f.ForURL("https://pypi.org")
	require.NoError(t, err)
	assert.Equal(t, "https://pypi.org", first.URL())

	second, err := f.ForURL("https://pypi.org")
	require.NoError(t, err)
	assert.Same(t, first, second)

	other, err := f.ForURL("https://test.pypi.org")
	require.NoError(t, err)
	assert.NotSame(t, first, other)
}

func TestFactory_ForPath(t *testing.T) {
	f := newFactory(t)
	dir := t.TempDir()

	first := f.ForPath(dir)
	assert.Equal(t, domain.FileSourceURL(dir), first.URL())
	assert.Same(t, first, f.ForPath(dir+"/."))
}
