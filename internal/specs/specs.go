// Package specs supplies the save spec of each supported game: which paths
// under the install directory make up its savegame.
package specs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dmitrijs2005/savegamesync/internal/common"
	"github.com/dmitrijs2005/savegamesync/internal/models"
	"gopkg.in/yaml.v3"
)

// Provider is consumed by the engine to resolve save specs.
type Provider interface {
	Spec(game string) (models.SaveSpec, error)
	All() []models.SaveSpec
}

// Repository is a read-only Provider loaded once at startup.
type Repository struct {
	specs map[string]models.SaveSpec
}

type document struct {
	Specs []models.SaveSpec `yaml:"specs"`
}

// NewRepository builds a repository from specs already in memory. Invalid or
// duplicate specs are not checked here.
func NewRepository(specs ...models.SaveSpec) *Repository {
	r := &Repository{specs: make(map[string]models.SaveSpec, len(specs))}
	for _, s := range specs {
		r.specs[s.GameName] = s
	}
	return r
}

// Load reads a YAML spec document from path.
func Load(path string) (*Repository, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open save specs: %w", err)
	}
	defer f.Close()

	return Parse(f, path)
}

// Parse decodes a YAML spec document:
//
//	specs:
//	  - name: Doom
//	    paths: [savegames, config.cfg]
func Parse(r io.Reader, source string) (*Repository, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read save specs %s: %w", source, err)
	}

	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, &common.ParseError{Source: source, Msg: err.Error()}
	}

	repo := &Repository{specs: make(map[string]models.SaveSpec, len(doc.Specs))}
	for i, s := range doc.Specs {
		s.GameName = strings.TrimSpace(s.GameName)
		if s.GameName == "" {
			return nil, &common.ParseError{Source: source, Msg: fmt.Sprintf("spec #%d has no name", i+1)}
		}
		if len(s.SavePaths) == 0 {
			return nil, &common.ParseError{Source: source, Msg: fmt.Sprintf("spec %q has no paths", s.GameName)}
		}
		for _, p := range s.SavePaths {
			if err := validatePath(p); err != nil {
				return nil, &common.ParseError{Source: source, Msg: fmt.Sprintf("spec %q: %v", s.GameName, err)}
			}
		}
		if _, dup := repo.specs[s.GameName]; dup {
			return nil, &common.ParseError{Source: source, Msg: fmt.Sprintf("spec %q defined twice", s.GameName)}
		}
		repo.specs[s.GameName] = s
	}

	return repo, nil
}

// validatePath keeps spec paths relative and inside the install directory.
func validatePath(p string) error {
	if strings.TrimSpace(p) == "" {
		return errors.New("empty path")
	}
	if filepath.IsAbs(p) || strings.HasPrefix(p, "/") || strings.HasPrefix(p, `\`) {
		return fmt.Errorf("path %q must be relative", p)
	}
	clean := filepath.Clean(filepath.FromSlash(p))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path %q leaves the install directory", p)
	}
	return nil
}

func (r *Repository) Spec(game string) (models.SaveSpec, error) {
	s, ok := r.specs[game]
	if !ok {
		return models.SaveSpec{}, fmt.Errorf("%w: %s", common.ErrSpecNotFound, game)
	}
	return s, nil
}

// All returns every spec sorted by game name.
func (r *Repository) All() []models.SaveSpec {
	out := make([]models.SaveSpec, 0, len(r.specs))
	for _, s := range r.specs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GameName < out[j].GameName })
	return out
}
