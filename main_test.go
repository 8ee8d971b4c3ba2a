package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/briangreenhill/openlaw/internal/config"
	"github.com/briangreenhill/openlaw/openlaw"
)

type cliEnv struct {
	envPath string
	calls   *int32
}

// newCLIEnv starts a fake DRF endpoint and writes an env file pointing at it.
func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		q := r.URL.Query()
		if q.Get("OC") != "cli-key" || q.Get("type") != "JSON" {
			http.Error(w, "bad credential", http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/lawSearch.do":
			_, _ = w.Write([]byte(`{"LawSearch":{"target":"` + q.Get("target") + `","키워드":"` + q.Get("query") + `","totalCnt":"1"}}`))
		case "/lawService.do":
			if q.Has("ID") {
				_, _ = w.Write([]byte(`{"법령":{"기본정보":{"법령ID":"` + q.Get("ID") + `"}}}`))
				return
			}
			http.NotFound(w, r)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	envPath := filepath.Join(t.TempDir(), "cli.env")
	content := "OPEN_LAW_OC=cli-key\nOPEN_LAW_BASE_URL=" + srv.URL + "\n"
	require.NoError(t, os.WriteFile(envPath, []byte(content), 0o600))
	return cliEnv{envPath: envPath, calls: &calls}
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr, nil)
	return stdout.String(), stderr.String(), err
}

func TestVersion(t *testing.T) {
	out, _, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "openlaw "+version+"\n", out)
}

func TestSearchToStdout(t *testing.T) {
	env := newCLIEnv(t)

	out, _, err := runCLI(t, "law", "--query", "도로교통법", "--env-path", env.envPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{"LawSearch":{"target":"law","키워드":"도로교통법","totalCnt":"1"}}`, out)
	assert.True(t, strings.HasSuffix(out, "}\n"))
	assert.Contains(t, out, "\n  \"LawSearch\"", "two-space indentation")
}

func TestDetailToNestedFile(t *testing.T) {
	env := newCLIEnv(t)
	target := filepath.Join(t.TempDir(), "a", "b", "law.json")

	out, _, err := runCLI(t, "law", "--id", "011349", "--output", target, "--env-path", env.envPath)
	require.NoError(t, err)
	assert.Empty(t, out)

	b, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.JSONEq(t, `{"법령":{"기본정보":{"법령ID":"011349"}}}`, string(b))
	assert.Equal(t, int32(1), atomic.LoadInt32(env.calls))
}

func TestYAMLOutput(t *testing.T) {
	env := newCLIEnv(t)

	out, _, err := runCLI(t, "admrul", "--query", "개인정보", "--format", "yaml", "--env-path", env.envPath)
	require.NoError(t, err)

	var doc map[string]map[string]string
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "admrul", doc["LawSearch"]["target"])
	assert.Equal(t, "1", doc["LawSearch"]["totalCnt"])
}

func TestSelectorValidation(t *testing.T) {
	env := newCLIEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"neither", []string{"law"}},
		{"both", []string{"law", "--query", "x", "--id", "1"}},
		{"blank query", []string{"law", "--query", "   "}},
		{"negative display", []string{"law", "--query", "x", "--display", "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, append(tt.args, "--env-path", env.envPath)...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, openlaw.ErrValidation), "got %v", err)
		})
	}
	assert.Zero(t, atomic.LoadInt32(env.calls), "validation happens before any request")
}

func TestUsageErrors(t *testing.T) {
	_, _, err := runCLI(t)
	assert.Error(t, err, "kind argument is required")

	_, _, err = runCLI(t, "prec", "--query", "x")
	assert.Error(t, err)

	_, _, err = runCLI(t, "law", "--query", "x", "--format", "xml")
	assert.ErrorContains(t, err, "unsupported format")
}

func TestMissingEnvFile(t *testing.T) {
	_, _, err := runCLI(t, "law", "--query", "x", "--env-path", filepath.Join(t.TempDir(), "nope.env"))
	assert.True(t, errors.Is(err, config.ErrConfig), "got %v", err)
}

func TestPlaceholderCredential(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), "placeholder.env")
	require.NoError(t, os.WriteFile(envPath, []byte("OPEN_LAW_OC=your_api_key_here\n"), 0o600))

	_, _, err := runCLI(t, "law", "--query", "x", "--env-path", envPath)
	assert.True(t, errors.Is(err, config.ErrConfig), "got %v", err)
}

func TestUpstreamFailureExitsWithError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance window", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	envPath := filepath.Join(t.TempDir(), "down.env")
	require.NoError(t, os.WriteFile(envPath, []byte("OPEN_LAW_OC=k\nOPEN_LAW_BASE_URL="+srv.URL+"\n"), 0o600))

	out, _, err := runCLI(t, "law", "--query", "x", "--env-path", envPath)
	require.Error(t, err)
	assert.True(t, errors.Is(err, openlaw.ErrHTTPStatus), "got %v", err)
	assert.Contains(t, err.Error(), "maintenance window")
	assert.Empty(t, out)
}

func TestVerboseLogsToStderr(t *testing.T) {
	env := newCLIEnv(t)

	out, errOut, err := runCLI(t, "law", "--query", "x", "--verbose", "--env-path", env.envPath)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	assert.Contains(t, errOut, "cli.env")
	assert.NotContains(t, errOut, "cli-key", "credential must not be logged")
}

func TestWarmRequiresID(t *testing.T) {
	_, _, err := runCLI(t, "warm", "law")
	assert.True(t, errors.Is(err, openlaw.ErrValidation), "got %v", err)
}
