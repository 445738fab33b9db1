package yaml

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fwojciec/sift"
)

//go:embed profiles/*.yaml
var builtinFS embed.FS

// Registry holds profiles by name.
type Registry struct {
	profiles map[string]*sift.Profile
}

// NewRegistry returns a registry holding profiles. Later profiles replace
// earlier ones with the same name.
func NewRegistry(profiles ...*sift.Profile) *Registry {
	r := &Registry{profiles: make(map[string]*sift.Profile)}
	for _, p := range profiles {
		r.Add(p)
	}
	return r
}

// Builtin returns a registry of the profiles shipped with sift.
func Builtin() (*Registry, error) {
	profiles, err := loadFS(builtinFS, "profiles")
	if err != nil {
		return nil, err
	}
	return NewRegistry(profiles...), nil
}

// Add registers p, replacing any profile with the same name.
func (r *Registry) Add(p *sift.Profile) {
	r.profiles[p.Name] = p
}

// Get returns the named profile or ENOTFOUND.
func (r *Registry) Get(name string) (*sift.Profile, error) {
	p, ok := r.profiles[name]
	if !ok {
		return nil, sift.Errorf(sift.ENOTFOUND, "profile %q not found", name)
	}
	return p, nil
}

// List returns every profile sorted by name.
func (r *Registry) List() []*sift.Profile {
	out := make([]*sift.Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LoadDir loads every *.yaml and *.yml file in dir. A missing directory
// yields no profiles.
func LoadDir(dir string) ([]*sift.Profile, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}
	return loadFS(os.DirFS(dir), ".")
}

func loadFS(fsys fs.FS, dir string) ([]*sift.Profile, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile directory: %w", err)
	}

	var profiles []*sift.Profile
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		p, err := loadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("error loading %s: %w", e.Name(), err)
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

func loadFile(fsys fs.FS, path string) (*sift.Profile, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	return LoadProfile(f)
}
