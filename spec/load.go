package spec

import (
	"fmt"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"
)

var builtins = map[string]func() *Spec{
	"gizmo": GIZMO,
}

// Register makes a format description available to Lookup under name.
// It's meant to be called from init functions.
func Register(name string, ctor func() *Spec) {
	if _, ok := builtins[name]; ok {
		panic(fmt.Sprintf("spec: format '%s' registered twice", name))
	}
	builtins[name] = ctor
}

// Names returns the names of every registered format, sorted.
func Names() []string {
	out := make([]string, 0, len(builtins))
	for name := range builtins {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Lookup returns a fresh, validated copy of the registered format called
// name.
func Lookup(name string) (*Spec, error) {
	ctor, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("%w: '%s' (known formats: %v)",
			ErrUnknownSpec, name, Names())
	}
	sp := ctor()
	if err := sp.Validate(); err != nil {
		return nil, err
	}
	return sp, nil
}

// Parse reads a format description from TOML.
func Parse(data []byte) (*Spec, error) {
	sp := &Spec{}
	if err := toml.Unmarshal(data, sp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if err := sp.Validate(); err != nil {
		return nil, err
	}
	return sp, nil
}

// Load reads a TOML format description from path.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sp, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return sp, nil
}

// Resolve returns the registered format called nameOrPath, or, failing
// that, loads nameOrPath as a TOML file.
func Resolve(nameOrPath string) (*Spec, error) {
	if _, ok := builtins[nameOrPath]; ok {
		return Lookup(nameOrPath)
	}
	if _, err := os.Stat(nameOrPath); err == nil {
		return Load(nameOrPath)
	}
	return Lookup(nameOrPath)
}
