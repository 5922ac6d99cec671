package eval

import (
	"embed"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/vito/warden/pkg/ast"
	"github.com/vito/warden/pkg/diag"
)

//go:embed std/*.ast.yaml
var embeddedStd embed.FS

// DefaultExtensions are the AST document extensions the Loader tries, in
// order.
var DefaultExtensions = []string{".ast.yaml", ".ast.yml", ".ast.json"}

// Loader resolves dotted module paths to AST documents. Paths are tried
// against each search path in order; paths under `std` fall back to
// StdRoot, or to the embedded standard library when StdRoot is empty.
type Loader struct {
	Paths      []string
	StdRoot    string
	Extensions []string
	Std        fs.FS
}

// NewLoader returns a loader that only knows the embedded standard library.
func NewLoader(paths ...string) *Loader {
	return &Loader{
		Paths:      paths,
		Extensions: DefaultExtensions,
		Std:        embeddedStd,
	}
}

// Load finds and decodes the module at a dotted path. A missing module is
// an E4011 runtime error; a malformed document is reported as E0001.
func (l *Loader) Load(modPath []string) (*ast.Module, error) {
	rel := filepath.Join(modPath...)
	exts := l.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	var tried []string
	for _, dir := range l.Paths {
		for _, ext := range exts {
			file := filepath.Join(dir, rel+ext)
			tried = append(tried, file)
			if _, err := os.Stat(file); err == nil {
				slog.Debug("loading module", "module", strings.Join(modPath, "."), "file", file)
				return decodeModule(ast.DecodeFile(file))
			}
		}
	}

	if len(modPath) > 1 && modPath[0] == "std" {
		if l.StdRoot != "" {
			for _, ext := range exts {
				file := filepath.Join(append([]string{l.StdRoot}, modPath[1:]...)...) + ext
				tried = append(tried, file)
				if _, err := os.Stat(file); err == nil {
					slog.Debug("loading std module", "module", strings.Join(modPath, "."), "file", file)
					return decodeModule(ast.DecodeFile(file))
				}
			}
		} else if l.Std != nil {
			for _, ext := range exts {
				file := path.Join(modPath...) + ext
				data, err := fs.ReadFile(l.Std, file)
				if err != nil {
					continue
				}
				slog.Debug("loading embedded std module", "module", strings.Join(modPath, "."))
				return decodeModule(ast.Decode(file, data))
			}
			tried = append(tried, "(embedded std)")
		}
	}

	slog.Debug("module not found", "module", strings.Join(modPath, "."), "tried", tried)
	return nil, fault(diag.ModuleNotFound, "module %s not found", strings.Join(modPath, "."))
}

func decodeModule(mod *ast.Module, err error) (*ast.Module, error) {
	if err != nil {
		return nil, &RuntimeError{Code: diag.Syntax, Message: err.Error(), Err: err}
	}
	return mod, nil
}
