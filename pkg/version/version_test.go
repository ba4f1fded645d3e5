package version

import (
	"encoding/json"
	"regexp"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersion_SemverWhenStamped(t *testing.T) {
	require.NotEmpty(t, Version)
	if Version == "dev" {
		// Unstamped build; nothing more to check.
		return
	}
	assert.Regexp(t, regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.]+)?$`), Version,
		"ldflags-stamped versions must be semver")
}

func TestString_IncludesBuildMetadata(t *testing.T) {
	s := String()
	for _, want := range []string{"dwhsync", Version, "commit", "go"} {
		assert.Contains(t, s, want)
	}
}

func TestShort(t *testing.T) {
	assert.Equal(t, Version, Short())
}

func TestGetInfo_MirrorsPackageState(t *testing.T) {
	want := Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
	assert.Equal(t, want, GetInfo())
}

func TestInfo_JSONKeys(t *testing.T) {
	data, err := json.Marshal(GetInfo())
	require.NoError(t, err)

	var parsed map[string]string
	require.NoError(t, json.Unmarshal(data, &parsed))

	keys := make([]string, 0, len(parsed))
	for k := range parsed {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{"version", "commit", "date", "go_version", "os", "arch"}, keys)
}
