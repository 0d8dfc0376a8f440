// Package catalog is an offline recipe search service.
//
// It serves the same request/response contract as the remote service from a
// catalog of YAML recipe files: keyword search with session refinement,
// ordinal selection of the current results, and deterministic spicy, vegan
// and quick transformations.
package catalog

import (
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/aretw0/chefmate/pkg/domain"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"
)

// DefaultPattern matches recipe files at any depth.
const DefaultPattern = "**/*.{yaml,yml}"

//go:embed recipes/*.yaml
var builtin embed.FS

//go:embed catalog.schema.json
var catalogSchema string

// Catalog is an immutable set of recipes.
type Catalog struct {
	recipes []domain.Recipe
	files   []string
	digest  string
}

// Default returns the catalog shipped with the binary.
func Default() (*Catalog, error) {
	sub, err := fs.Sub(builtin, "recipes")
	if err != nil {
		return nil, err
	}
	return Load(sub, DefaultPattern)
}

// LoadDir loads the recipe files under dir matching pattern.
func LoadDir(dir, pattern string) (*Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open catalog: %s is not a directory", dir)
	}
	return Load(os.DirFS(dir), pattern)
}

// Load discovers recipe files by glob, validates each against the catalog schema
// and fingerprints the whole set.
func Load(fsys fs.FS, pattern string) (*Catalog, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	files, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no recipe files match %q", pattern)
	}
	sort.Strings(files)

	schema, err := compileSchema()
	if err != nil {
		return nil, fmt.Errorf("compile catalog schema: %w", err)
	}

	c := &Catalog{files: files}
	seen := make(map[string]string)
	hasher := blake3.New()
	for _, name := range files {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		_, _ = hasher.Write([]byte(name))
		_, _ = hasher.Write([]byte{0})
		_, _ = hasher.Write(data)

		recipes, err := decodeFile(schema, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		for _, r := range recipes {
			if r.ID == "" {
				r.ID = slug(r.Title)
			}
			if prev, dup := seen[r.ID]; dup {
				return nil, fmt.Errorf("%s: duplicate recipe id %q (first defined in %s)", name, r.ID, prev)
			}
			seen[r.ID] = name
			c.recipes = append(c.recipes, r)
		}
	}
	c.digest = hex.EncodeToString(hasher.Sum(nil))
	return c, nil
}

func compileSchema() (*jsonschema.Schema, error) {
	const name = "catalog.json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(catalogSchema)); err != nil {
		return nil, err
	}
	return compiler.Compile(name)
}

// decodeFile turns YAML into the JSON data model, validates it and decodes the recipes.
func decodeFile(schema *jsonschema.Schema, data []byte) ([]domain.Recipe, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("convert to json: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	if err := schema.Validate(generic); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	var file struct {
		Recipes []domain.Recipe `json:"recipes"`
	}
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, err
	}
	return file.Recipes, nil
}

// Recipes returns copies of all recipes in catalog order.
func (c *Catalog) Recipes() []domain.Recipe {
	out := make([]domain.Recipe, len(c.recipes))
	for i, r := range c.recipes {
		out[i] = r.Clone()
	}
	return out
}

// Get returns the recipe with the given ID.
func (c *Catalog) Get(id string) (domain.Recipe, bool) {
	for _, r := range c.recipes {
		if r.ID == id {
			return r.Clone(), true
		}
	}
	return domain.Recipe{}, false
}

// Len returns the number of recipes.
func (c *Catalog) Len() int { return len(c.recipes) }

// Files returns the loaded file names, relative to the catalog root.
func (c *Catalog) Files() []string { return append([]string(nil), c.files...) }

// Digest is the BLAKE3 fingerprint of the loaded files, stable across loads of the same content.
func (c *Catalog) Digest() string { return c.digest }

func slug(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
