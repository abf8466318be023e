package natsbridge

import (
	"testing"

	"github.com/casualjim/swamp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubjectFor(t *testing.T) {
	tests := []struct {
		path    string
		subject string
	}{
		{"", "swamp"},
		{"/a", "swamp.a"},
		{"/a/b", "swamp.a.b"},
		{"/sensor-1/temp_c", "swamp.sensor-1.temp_c"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			subject, err := SubjectFor("swamp", swamp.NewPath(tt.path))
			require.NoError(t, err)
			assert.Equal(t, tt.subject, subject)

			back, err := PathFor("swamp", subject)
			require.NoError(t, err)
			assert.Equal(t, swamp.NewPath(tt.path), back)
		})
	}
}

func TestSubjectForRejects(t *testing.T) {
	for _, path := range []string{"a", "a/b", "/", "/a/", "//a", "/a.b", "/a/*", "/>", "/a b"} {
		_, err := SubjectFor("swamp", swamp.NewPath(path))
		assert.ErrorIs(t, err, ErrUnmappablePath, path)
	}
}

func TestPathForRejects(t *testing.T) {
	for _, subject := range []string{"other.a", "swampy.a", "swamp."} {
		_, err := PathFor("swamp", subject)
		assert.ErrorIs(t, err, ErrUnmappablePath, subject)
	}
}
