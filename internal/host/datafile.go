package host

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/sidebar/pkg/core"
)

// debounceDelay coalesces the burst of events editors emit on save.
const debounceDelay = 100 * time.Millisecond

// LoadFile reads a host data file. Files ending in .yaml or .yml are parsed
// as YAML, everything else as JSON.
func (d *Decoder) LoadFile(path string) (core.Snapshot, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from trusted config
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("failed to read data file: %w", err)
	}

	var raw map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("failed to parse data file %s: %w", path, err)
	}
	if raw == nil {
		return core.Snapshot{}, nil
	}
	return d.DecodeSnapshot(raw), nil
}

// WatchFile calls onChange with the re-read snapshot whenever path is
// written, until ctx is cancelled. The parent directory is watched so editors
// that replace the file on save are still seen.
func (d *Decoder) WatchFile(ctx context.Context, path string, onChange func(core.Snapshot)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve data file: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	// The timer fires on this goroutine's select, so reloads never overlap
	// and none runs after WatchFile returns.
	debounce := time.NewTimer(debounceDelay)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			debounce.Reset(debounceDelay)

		case <-debounce.C:
			d.logger.Debug("data file changed, reloading", slog.String("file", abs))
			snap, err := d.LoadFile(abs)
			if err != nil {
				d.logger.Error("reload failed", slog.Any("error", err))
				continue
			}
			onChange(snap)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			d.logger.Error("watcher error", slog.Any("error", err))
		}
	}
}
