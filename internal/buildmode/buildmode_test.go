package buildmode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		value string
		want  Mode
	}{
		{"dev", Development},
		{"development", Development},
		{" DEV ", Development},
		{"", Release},
		{"release", Release},
		{"debug", Release},
		{"1", Release},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			require.Equal(t, tt.want, Parse(tt.value))
		})
	}
}

func TestFromEnv(t *testing.T) {
	unset := func(string) (string, bool) { return "", false }
	require.Equal(t, Release, FromEnv(unset))

	dev := func(key string) (string, bool) {
		require.Equal(t, EnvVar, key)
		return "dev", true
	}
	require.Equal(t, Development, FromEnv(dev))
}

func TestMode_Profile(t *testing.T) {
	require.Equal(t, "debug", Development.Profile())
	require.Equal(t, "release", Release.Profile())
	require.Equal(t, "development", Development.String())
	require.Equal(t, "release", Release.String())
}
