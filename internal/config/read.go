package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"

	"github.com/jonathan/kb-refresh/internal/types"
)

// LocalPath returns the override file read next to path: kb_agent.json5 -> kb_agent.local.json5.
func LocalPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

// ReadConfig decodes the json5 file at path and merges LocalPath(path) over it, non-zero
// override fields winning. Errors are *types.ConfigError naming the file at fault; when
// neither file exists the error wraps fs.ErrNotExist.
func ReadConfig[T any](path string) (T, error) {
	var out T
	found, err := readLayer(path, &out)
	if err != nil {
		return out, err
	}

	local := LocalPath(path)
	var override T
	hasLocal, err := readLayer(local, &override)
	if err != nil {
		return out, err
	}
	if hasLocal {
		if err := mergo.Merge(&out, override, mergo.WithOverride); err != nil {
			return out, &types.ConfigError{Path: local, Message: "failed to merge local overrides", Cause: err}
		}
		slog.Debug("merged local config overrides", "path", local)
	}

	if !found && !hasLocal {
		return out, &types.ConfigError{Path: path, Message: "config not found", Cause: fs.ErrNotExist}
	}
	return out, nil
}

// readLayer decodes one config file into v. A missing or empty file reports false.
func readLayer(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, &types.ConfigError{Path: path, Message: "failed to read config", Cause: err}
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := json5.Unmarshal(data, v); err != nil {
		return false, &types.ConfigError{Path: path, Message: "failed to parse config", Cause: err}
	}
	return true, nil
}
