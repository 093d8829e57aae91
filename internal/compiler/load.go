package compiler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// Load failures. Callers map them to exit codes with errors.Is.
var (
	ErrNotFound    = errors.New("program not found")
	ErrNoFiles     = errors.New("no CUE files found")
	ErrLoadFailed  = errors.New("loading CUE files failed")
	ErrBuildFailed = errors.New("building CUE value failed")
)

// LoadProgram loads a program from a single .cue file or from every .cue
// file of a directory, then compiles it.
func LoadProgram(path string) (*Program, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, ErrNotFound, err)
	}

	var cfg *load.Config
	var args []string
	if info.IsDir() {
		files, err := FindCUEFiles(path)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", path, err)
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("%s: %w", path, ErrNoFiles)
		}
		cfg = &load.Config{Dir: path}
		args = []string{"."}
	} else {
		if filepath.Ext(path) != ".cue" {
			return nil, fmt.Errorf("%s: %w", path, ErrNoFiles)
		}
		cfg = &load.Config{Dir: filepath.Dir(path)}
		args = []string{filepath.Base(path)}
	}

	instances := load.Instances(args, cfg)
	if len(instances) == 0 {
		return nil, fmt.Errorf("%s: %w: no instances", path, ErrLoadFailed)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, ErrLoadFailed, inst.Err)
	}

	ctx := cuecontext.New()
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, ErrBuildFailed, formatCUEError(err))
	}

	return CompileProgram(value)
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
