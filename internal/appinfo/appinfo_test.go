package appinfo

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetVersion(t *testing.T) {
	t.Run("ldflags wins", func(t *testing.T) {
		old := Version
		Version = "v1.2.3"
		t.Cleanup(func() { Version = old })
		t.Setenv("APP_VERSION", "v9.9.9")

		assert.Equal(t, "v1.2.3", GetVersion())
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv("APP_VERSION", "v2.0.0")
		assert.Equal(t, "v2.0.0", GetVersion())
	})
}

func TestGet(t *testing.T) {
	info := Get()
	assert.Equal(t, Name, info.Name)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.NotEmpty(t, info.Version)
}
