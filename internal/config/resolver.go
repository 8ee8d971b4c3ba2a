// Package config resolves the settings of the CLI (dotenv discovery) and the
// server processes (platform environment).
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// ErrConfig reports a missing or unusable configuration.
var ErrConfig = errors.New("configuration error")

// CredentialKey is the entry holding the API credential.
const CredentialKey = "OPEN_LAW_OC"

// DefaultMaxHops bounds the upward search for the project root.
const DefaultMaxHops = 10

type ResolveOptions struct {
	EnvPath  string   // explicit override file
	StartDir string   // defaults to the working directory
	MaxHops  int      // defaults to DefaultMaxHops
	Environ  []string // optional lowest-priority KEY=VALUE layer
	Logger   zerolog.Logger
}

// Resolved is the merged configuration. Keys are case-insensitive.
type Resolved struct {
	Values     map[string]string
	Loaded     []string
	Root       string
	Credential string
}

// Get returns the value of key, or "" when unset.
func (r *Resolved) Get(key string) string {
	if r == nil {
		return ""
	}
	return r.Values[strings.ToLower(key)]
}

// Resolve merges, in increasing priority, opts.Environ, the .env file at the
// project root and the override file, then validates the credential.
func Resolve(opts ResolveOptions) (*Resolved, error) {
	log := opts.Logger
	start := opts.StartDir
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("%w: working directory: %v", ErrConfig, err)
		}
		start = wd
	}
	hops := opts.MaxHops
	if hops <= 0 {
		hops = DefaultMaxHops
	}

	root, found := FindRoot(start, hops)
	log.Debug().Str("root", root).Bool("marker_found", found).Msg("project root")

	var files []string
	rootEnv := filepath.Join(root, ".env")
	if isFile(rootEnv) {
		files = append(files, rootEnv)
	}
	if opts.EnvPath != "" {
		p, err := filepath.Abs(opts.EnvPath)
		if err != nil {
			return nil, fmt.Errorf("%w: env path %s: %v", ErrConfig, opts.EnvPath, err)
		}
		if !isFile(p) {
			return nil, fmt.Errorf("%w: env file not found: %s", ErrConfig, p)
		}
		files = append(files, p)
	}

	v := viper.New()
	for _, kv := range opts.Environ {
		k, val, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		v.SetDefault(k, val)
	}

	for _, f := range files {
		entries, err := readEnvFile(f)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrConfig, f, err)
		}
		if err := v.MergeConfigMap(entries); err != nil {
			return nil, fmt.Errorf("%w: merge %s: %v", ErrConfig, f, err)
		}
		log.Debug().Str("path", f).Int("keys", len(entries)).Msg("loaded env file")
	}

	values := make(map[string]string)
	for _, k := range v.AllKeys() {
		values[k] = v.GetString(k)
	}

	res := &Resolved{Values: values, Loaded: files, Root: root}
	oc, err := ValidateCredential(res.Get(CredentialKey))
	if err != nil {
		return nil, err
	}
	res.Credential = oc
	return res, nil
}

// readEnvFile parses KEY=VALUE lines. Blank lines, lines starting with '#'
// and lines without '=' are skipped. A '#' inside a value is kept, and one
// matching pair of surrounding quotes is stripped with no escape processing.
func readEnvFile(path string) (map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	entries := make(map[string]any)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		entries[key] = unquote(strings.TrimSpace(val))
	}
	return entries, sc.Err()
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}

// FindRoot walks upward from start looking for a .git directory, a .env file
// or a .env.example file, checking at most maxHops directories. When none is
// found the cleaned start directory is returned with false.
func FindRoot(start string, maxHops int) (string, bool) {
	abs, err := filepath.Abs(start)
	if err != nil {
		abs = filepath.Clean(start)
	}
	dir := abs
	for i := 0; i < maxHops; i++ {
		if hasMarker(dir) {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return abs, false
}

func hasMarker(dir string) bool {
	if fi, err := os.Stat(filepath.Join(dir, ".git")); err == nil && fi.IsDir() {
		return true
	}
	return isFile(filepath.Join(dir, ".env")) || isFile(filepath.Join(dir, ".env.example"))
}

func isFile(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.Mode().IsRegular()
}

// ValidateCredential trims oc and rejects empty values and well-known
// placeholders.
func ValidateCredential(oc string) (string, error) {
	oc = strings.TrimSpace(oc)
	switch {
	case oc == "":
		return "", fmt.Errorf("%w: %s is not set", ErrConfig, CredentialKey)
	case strings.EqualFold(oc, "test"), strings.EqualFold(oc, "your_api_key_here"):
		return "", fmt.Errorf("%w: %s holds a placeholder value", ErrConfig, CredentialKey)
	case strings.HasPrefix(oc, "<") && strings.HasSuffix(oc, ">"):
		return "", fmt.Errorf("%w: %s holds a template value %s", ErrConfig, CredentialKey, oc)
	}
	return oc, nil
}
