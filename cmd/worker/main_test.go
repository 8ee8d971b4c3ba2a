package main

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/briangreenhill/openlaw/internal/config"
)

func TestRunRequiresStore(t *testing.T) {
	t.Setenv("OPEN_LAW_OC", "key")
	t.Setenv("CACHE_BACKEND", "file")
	t.Setenv("STORE_URL", "")
	t.Setenv("STORE_ACCESS_KEY", "")

	err := run(zerolog.Nop())
	assert.True(t, errors.Is(err, config.ErrConfig), "got %v", err)
}
