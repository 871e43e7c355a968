package config

import (
	"context"
	"fmt"

	"github.com/knadh/koanf/providers/file"
)

// Watch reloads the configuration whenever the YAML file at path changes
// and passes each successfully validated result to onChange. Load and
// validation failures go to onError and leave the previous configuration
// in force. Watching stops when ctx is cancelled. Watch returns once the
// watcher is installed.
func Watch(ctx context.Context, path string, onChange func(*Config), onError func(error)) error {
	if path == "" {
		return fmt.Errorf("%w: no config file to watch", ErrLoadConfig)
	}
	if onError == nil {
		onError = func(error) {}
	}

	fp := file.Provider(path)
	err := fp.Watch(func(_ interface{}, err error) {
		if err != nil {
			onError(fmt.Errorf("%w: watch %s: %w", ErrLoadConfig, path, err))
			return
		}
		cfg, err := LoadFrom(ctx, path)
		if err != nil {
			onError(err)
			return
		}
		onChange(cfg)
	})
	if err != nil {
		return fmt.Errorf("%w: watch %s: %w", ErrLoadConfig, path, err)
	}

	go func() {
		<-ctx.Done()
		_ = fp.Unwatch()
	}()
	return nil
}
