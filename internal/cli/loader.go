package cli

import (
	"errors"
	"io/fs"
	"os"

	"github.com/lumsvm/vorax/internal/compiler"
	"github.com/lumsvm/vorax/internal/config"
	"github.com/lumsvm/vorax/internal/store"
)

// loadMachine returns the machine named by --config, or the default one.
func loadMachine(opts *RootOptions) (config.Config, error) {
	if opts.Config == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load machine configuration", err)
	}
	return cfg, nil
}

// loadProgram reads and compiles a program document against cfg.
// Missing files are command errors; invalid programs are failures.
func loadProgram(path string, cfg config.Config) (*compiler.Document, *compiler.Compiled, error) {
	doc, err := compiler.LoadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, WrapExitError(ExitCommandError, "program not found", err)
		}
		return nil, nil, WrapExitError(ExitFailure, "invalid program", err)
	}
	compiled, err := compiler.Compile(doc, machineOf(cfg))
	if err != nil {
		return doc, nil, WrapExitError(ExitFailure, "invalid program", err)
	}
	return doc, compiled, nil
}

func machineOf(cfg config.Config) compiler.Machine {
	return compiler.Machine{Zones: cfg.Zones, Buffers: cfg.Buffers}
}

// openStore opens the database at path. The file must exist unless
// create is set.
func openStore(path string, create bool) (*store.Store, error) {
	if path == "" {
		return nil, NewExitError(ExitCommandError, "--db is required")
	}
	if !create {
		if err := requireFile(path); err != nil {
			return nil, err
		}
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func requireFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return WrapExitError(ExitCommandError, "database not found: "+path, err)
	}
	return nil
}
