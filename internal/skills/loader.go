package skills

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"arlo/internal/logging"
)

const manifestFileName = "SKILL.md"

// Bundled files are only picked up from these subdirectories next to
// the manifest, and only with whitelisted extensions. Anything else in
// a skill package is ignored.
var bundleDirs = []string{"scripts", "assets", "references"}

var allowedExtensions = map[string]bool{
	".py":   true,
	".sh":   true,
	".js":   true,
	".ts":   true,
	".md":   true,
	".txt":  true,
	".json": true,
	".yaml": true,
	".yml":  true,
	".csv":  true,
}

// Skill is a fully loaded skill: manifest, body, and bundled files
// keyed by their path relative to the manifest directory.
type Skill struct {
	Manifest Manifest
	// Dir is the on-disk directory the skill was loaded from. Empty for
	// skills loaded out of an archive.
	Dir   string
	Files map[string][]byte
}

// Name returns the skill's manifest name.
func (s Skill) Name() string { return s.Manifest.Name }

// Library is a loaded collection of skills keyed by name.
type Library struct {
	skills []Skill
	byName map[string]Skill
}

// List returns all skills sorted by name.
func (l Library) List() []Skill {
	out := append([]Skill(nil), l.skills...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Get returns a skill by name.
func (l Library) Get(name string) (Skill, bool) {
	if l.byName == nil {
		return Skill{}, false
	}
	skill, ok := l.byName[strings.ToLower(strings.TrimSpace(name))]
	return skill, ok
}

// Len returns the number of loaded skills.
func (l Library) Len() int { return len(l.skills) }

// Loader loads skills from a root directory. Each immediate child
// directory containing a SKILL.md is one skill; .zip archives in the
// root are unpacked in memory and loaded the same way.
type Loader struct {
	logger logging.Logger
}

// NewLoader returns a Loader. A nil logger is replaced with a no-op.
func NewLoader(logger logging.Logger) *Loader {
	return &Loader{logger: logging.OrNop(logger)}
}

// Load scans root and returns the library of all valid skills. A
// missing root yields an empty library. Skills that fail to parse are
// logged and skipped so one broken package cannot hide the rest.
func (l *Loader) Load(root string) (Library, error) {
	trimmed := strings.TrimSpace(root)
	if trimmed == "" {
		return Library{}, nil
	}

	info, err := os.Stat(trimmed)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Library{}, nil
		}
		return Library{}, fmt.Errorf("stat skills root: %w", err)
	}
	if !info.IsDir() {
		return Library{}, fmt.Errorf("skills root %s is not a directory", trimmed)
	}

	entries, err := os.ReadDir(trimmed)
	if err != nil {
		return Library{}, fmt.Errorf("read skills root: %w", err)
	}

	var skills []Skill
	byName := map[string]Skill{}
	add := func(skill Skill, source string) {
		key := strings.ToLower(skill.Name())
		if _, exists := byName[key]; exists {
			l.logger.Warn("skills: duplicate name %q in %s, keeping first", skill.Name(), source)
			return
		}
		byName[key] = skill
		skills = append(skills, skill)
	}

	for _, entry := range entries {
		source := filepath.Join(trimmed, entry.Name())
		switch {
		case entry.IsDir():
			skill, err := l.LoadDir(source)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					continue
				}
				l.logger.Warn("skills: skipping %s: %v", source, err)
				continue
			}
			add(skill, source)
		case strings.EqualFold(filepath.Ext(entry.Name()), ".zip"):
			skill, err := l.LoadArchive(source)
			if err != nil {
				l.logger.Warn("skills: skipping archive %s: %v", source, err)
				continue
			}
			add(skill, source)
		}
	}

	sort.Slice(skills, func(i, j int) bool { return skills[i].Name() < skills[j].Name() })
	return Library{skills: skills, byName: byName}, nil
}

// LoadDir loads a single skill from a directory containing SKILL.md.
func (l *Loader) LoadDir(dir string) (Skill, error) {
	manifestPath := filepath.Join(dir, manifestFileName)
	content, err := os.ReadFile(manifestPath)
	if err != nil {
		return Skill{}, err
	}
	manifest, err := ParseManifest(string(content))
	if err != nil {
		return Skill{}, fmt.Errorf("%s: %w", manifestPath, err)
	}

	files := map[string][]byte{}
	for _, sub := range bundleDirs {
		subRoot := filepath.Join(dir, sub)
		err := filepath.WalkDir(subRoot, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if !allowedExtensions[strings.ToLower(filepath.Ext(p))] {
				return nil
			}
			data, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(dir, p)
			if err != nil {
				return err
			}
			files[filepath.ToSlash(rel)] = data
			return nil
		})
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Skill{}, fmt.Errorf("walk %s: %w", subRoot, err)
		}
	}

	return Skill{Manifest: manifest, Dir: dir, Files: files}, nil
}

// LoadArchive loads a single skill from a .zip package. The manifest
// may live at the archive root or inside one top-level directory; all
// bundled paths are resolved relative to the manifest.
func (l *Loader) LoadArchive(archivePath string) (Skill, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return Skill{}, fmt.Errorf("open archive: %w", err)
	}
	defer reader.Close()

	base := ""
	var manifestFile *zip.File
	for _, f := range reader.File {
		clean := path.Clean(f.Name)
		if strings.HasPrefix(clean, "..") {
			return Skill{}, fmt.Errorf("archive entry escapes root: %s", f.Name)
		}
		if path.Base(clean) != manifestFileName {
			continue
		}
		dir := path.Dir(clean)
		if dir == "." {
			dir = ""
		}
		if manifestFile == nil || len(dir) < len(base) {
			manifestFile = f
			base = dir
		}
	}
	if manifestFile == nil {
		return Skill{}, fmt.Errorf("archive has no %s", manifestFileName)
	}

	content, err := readZipFile(manifestFile)
	if err != nil {
		return Skill{}, err
	}
	manifest, err := ParseManifest(string(content))
	if err != nil {
		return Skill{}, fmt.Errorf("%s: %w", archivePath, err)
	}

	prefix := base
	if prefix != "" {
		prefix += "/"
	}
	files := map[string][]byte{}
	for _, f := range reader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		clean := path.Clean(f.Name)
		if !strings.HasPrefix(clean, prefix) {
			continue
		}
		rel := strings.TrimPrefix(clean, prefix)
		if !inBundleDir(rel) || !allowedExtensions[strings.ToLower(path.Ext(rel))] {
			continue
		}
		data, err := readZipFile(f)
		if err != nil {
			return Skill{}, err
		}
		files[rel] = data
	}

	return Skill{Manifest: manifest, Files: files}, nil
}

func inBundleDir(rel string) bool {
	for _, sub := range bundleDirs {
		if strings.HasPrefix(rel, sub+"/") {
			return true
		}
	}
	return false
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	return data, nil
}
