package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/pbundle/internal/core/domain"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"1.0", false},
		{"1.2.3", false},
		{"2.0.0rc1", false},
		{"1.0.dev3", false},
		{"1.0.post1", false},
		{"v3.1", false},
		{"not-a-version", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := domain.ParseVersion(tt.input)
			if tt.wantErr {
				require.ErrorContains(t, err, domain.ErrInvalidVersion.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, v.String())
			assert.False(t, v.IsZero())
		})
	}
}

func TestVersionCompare(t *testing.T) {
	v := domain.MustParseVersion
	assert.Equal(t, -1, v("0.9").Compare(v("1.0")))
	assert.Equal(t, 0, v("1.0").Compare(v("1.0.0")))
	assert.Equal(t, 1, v("1.2").Compare(v("1.0")))
	assert.Equal(t, -1, v("2.0.0rc1").Compare(v("2.0.0")))
	assert.Equal(t, 0, v("1.0.post1").Compare(v("1.0")))
	assert.True(t, v("1.0").Equal(v("1.0.0")))
	assert.Equal(t, -1, domain.Version{}.Compare(v("0.1")))
}

func TestParseConstraint(t *testing.T) {
	v := domain.MustParseVersion
	tests := []struct {
		constraint string
		version    string
		want       bool
	}{
		{"", "0.1", true},
		{"*", "9.9", true},
		{">=1.0", "0.9", false},
		{">=1.0", "1.0", true},
		{">=1.0, <2", "2.0", false},
		{"==1.2", "1.2.0", true},
		{"==1.2", "1.3", false},
		{"1.2", "1.2", true},
		{"!=1.1", "1.1", false},
		{"~=1.4", "1.9", true},
		{"~=1.4", "2.0", false},
		{"~=1.4.2", "1.4.9", true},
		{"~=1.4.2", "1.5.0", false},
		{"==1.4.*", "1.4.7", true},
		{"==1.4.*", "1.5.0", false},
		{"(>=2.0)", "2.1", true},
	}

	for _, tt := range tests {
		t.Run(tt.constraint+" "+tt.version, func(t *testing.T) {
			c, err := domain.ParseConstraint(tt.constraint)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Check(v(tt.version)))
		})
	}
}

func TestParseConstraint_Invalid(t *testing.T) {
	for _, input := range []string{">=", "~=1", ">=banana"} {
		t.Run(input, func(t *testing.T) {
			_, err := domain.ParseConstraint(input)
			require.Error(t, err)
		})
	}
}

func TestConstraint_Exact(t *testing.T) {
	pin, ok := domain.MustParseConstraint("==1.0").Exact()
	assert.True(t, ok)
	assert.Equal(t, "1.0", pin)

	_, ok = domain.MustParseConstraint(">=1.0").Exact()
	assert.False(t, ok)

	_, ok = domain.MustParseConstraint("==1.*").Exact()
	assert.False(t, ok)

	_, ok = domain.ExactConstraint(domain.MustParseVersion("2.1")).Exact()
	assert.True(t, ok)
}

func TestConstraint_Intersect(t *testing.T) {
	a := domain.MustParseConstraint(">=1.0")
	b := domain.MustParseConstraint("<2.0")

	merged := a.Intersect(b)
	assert.True(t, merged.IsMerged())
	assert.Equal(t, ">=1.0, <2.0", merged.String())
	assert.True(t, merged.Check(domain.MustParseVersion("1.5")))
	assert.False(t, merged.Check(domain.MustParseVersion("2.0")))
	assert.False(t, merged.Check(domain.MustParseVersion("0.5")))

	same := a.Intersect(domain.MustParseConstraint(">=1.0"))
	assert.False(t, same.IsMerged())

	assert.True(t, domain.AnyConstraint().IsAny())
	assert.Equal(t, "*", domain.AnyConstraint().String())
	assert.False(t, domain.AnyConstraint().Intersect(a).IsMerged())
}
