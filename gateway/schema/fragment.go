package schema

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/platform-mesh/graphql-module-gateway/common"
	"github.com/platform-mesh/graphql-module-gateway/gateway/resolver"
	"github.com/platform-mesh/graphql-module-gateway/gateway/schema/typedefs"
)

// Fragment is the contribution of one feature module: type definitions plus the
// resolvers it declares explicitly.
type Fragment struct {
	Name string
	// TypeDefs is SDL text, ignored when Document is set.
	TypeDefs  string
	Document  *ast.SchemaDocument
	Resolvers resolver.Map
}

func (f Fragment) source() typedefs.Source {
	return typedefs.Source{Name: f.Name, SDL: f.TypeDefs, Document: f.Document}
}

// FragmentsFromMap orders fragments keyed by module name by that name.
func FragmentsFromMap(fragments map[string]Fragment) []Fragment {
	names := make([]string, 0, len(fragments))
	for name := range fragments {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Fragment, 0, len(names))
	for _, name := range names {
		f := fragments[name]
		if f.Name == "" {
			f.Name = name
		}
		out = append(out, f)
	}
	return out
}

// LoadDir reads every SDL file below dir as a fragment without resolvers.
// Fragments are named after their path relative to dir and returned in path order.
func LoadDir(dir string) ([]Fragment, error) {
	if dir == "" {
		return nil, nil
	}

	exts := strings.Split(common.SchemaFileExtensions, ",")

	var fragments []Fragment
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if !containsString(exts, ext) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		name, err := filepath.Rel(dir, path)
		if err != nil {
			name = path
		}
		fragments = append(fragments, Fragment{Name: filepath.ToSlash(name), TypeDefs: string(content)})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return fragments, nil
}

func containsString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
