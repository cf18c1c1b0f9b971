package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mimir-aip/attrition-risk/pkg/mlmodel/classifier"
	"github.com/mimir-aip/attrition-risk/pkg/models"
	"github.com/mimir-aip/attrition-risk/pkg/preprocess"
)

// File names inside the artifacts directory
const (
	PreprocessorFile = "preprocessor.json"
	FeatureListFile  = "feature_list.json"
	ModelFile        = "best_model.json"
	MetadataFile     = "model_metadata.json"
)

// ErrArtifactsMissing is returned when the directory does not hold a
// complete artifact set
var ErrArtifactsMissing = errors.New("model artifacts not found")

// Bundle is everything needed to serve predictions
type Bundle struct {
	Transform *preprocess.FittedTransform
	Features  []string
	Model     classifier.Classifier
	Metadata  *models.ModelMetadata
}

// Store reads and writes a Bundle under one directory
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir. The directory is created on the
// first Save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the artifacts directory
func (s *Store) Dir() string {
	return s.dir
}

// Save writes the bundle into a fresh versioned directory next to the
// artifacts path and then repoints the path, a symlink, at it with a
// single rename. Readers resolve the link once, so they see either the
// previous set or the new one. On error the previous set is left in place.
func (s *Store) Save(b *Bundle) error {
	if b == nil || b.Transform == nil || b.Model == nil || b.Metadata == nil {
		return fmt.Errorf("incomplete artifact bundle")
	}

	files := make(map[string][]byte, 4)
	var err error
	if files[PreprocessorFile], err = json.MarshalIndent(b.Transform, "", "  "); err != nil {
		return fmt.Errorf("failed to encode preprocessor: %w", err)
	}
	if files[FeatureListFile], err = json.MarshalIndent(b.Features, "", "  "); err != nil {
		return fmt.Errorf("failed to encode feature list: %w", err)
	}
	if files[ModelFile], err = classifier.Marshal(b.Model); err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	if files[MetadataFile], err = json.MarshalIndent(b.Metadata, "", "  "); err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	parent, base := s.split()
	if err := os.MkdirAll(parent, 0755); err != nil {
		return fmt.Errorf("failed to create artifacts parent directory: %w", err)
	}

	version, err := os.MkdirTemp(parent, versionPrefix(base))
	if err != nil {
		return fmt.Errorf("failed to create version directory: %w", err)
	}
	installed := false
	defer func() {
		if !installed {
			os.RemoveAll(version)
		}
	}()

	for name, data := range files {
		if err := os.WriteFile(filepath.Join(version, name), data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	if err := os.Chmod(version, 0755); err != nil {
		return fmt.Errorf("failed to set version directory permissions: %w", err)
	}

	previous, _ := filepath.EvalSymlinks(s.dir)
	if err := s.point(version); err != nil {
		return err
	}
	installed = true
	s.prune(version, previous)
	return nil
}

func (s *Store) split() (parent, base string) {
	parent, base = filepath.Split(filepath.Clean(s.dir))
	if parent == "" {
		parent = "."
	}
	return parent, base
}

func versionPrefix(base string) string {
	return "." + base + "-v"
}

// point makes the artifacts path a symlink to version. Replacing an
// existing link is one rename; a plain directory left by older layouts is
// moved aside first and restored if the link cannot be installed.
func (s *Store) point(version string) error {
	link := version + ".link"
	if err := os.Symlink(filepath.Base(version), link); err != nil {
		return fmt.Errorf("failed to create artifacts link: %w", err)
	}

	fi, err := os.Lstat(s.dir)
	switch {
	case errors.Is(err, os.ErrNotExist), err == nil && fi.Mode()&os.ModeSymlink != 0:
		if err := os.Rename(link, s.dir); err != nil {
			os.Remove(link)
			return fmt.Errorf("failed to install artifacts: %w", err)
		}
		return nil
	case err != nil:
		os.Remove(link)
		return fmt.Errorf("failed to stat artifacts directory: %w", err)
	case !fi.IsDir():
		os.Remove(link)
		return fmt.Errorf("artifacts path %s is not a directory", s.dir)
	}

	parent, base := s.split()
	aside, err := os.MkdirTemp(parent, "."+base+"-previous-")
	if err != nil {
		os.Remove(link)
		return fmt.Errorf("failed to reserve backup directory: %w", err)
	}
	// MkdirTemp only reserves the name
	os.Remove(aside)
	if err := os.Rename(s.dir, aside); err != nil {
		os.Remove(link)
		return fmt.Errorf("failed to move previous artifacts aside: %w", err)
	}
	if err := os.Rename(link, s.dir); err != nil {
		os.Remove(link)
		if rerr := os.Rename(aside, s.dir); rerr != nil {
			return fmt.Errorf("failed to install artifacts (%v) and to restore previous set: %w", err, rerr)
		}
		return fmt.Errorf("failed to install artifacts: %w", err)
	}
	os.RemoveAll(aside)
	return nil
}

// prune removes version directories other than the current and previous
// ones. The previous one stays for readers that resolved it before the swap.
func (s *Store) prune(current, previous string) {
	parent, base := s.split()
	entries, err := os.ReadDir(parent)
	if err != nil {
		return
	}
	prefix := versionPrefix(base)
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		if name == filepath.Base(current) || (previous != "" && name == filepath.Base(previous)) {
			continue
		}
		os.RemoveAll(filepath.Join(parent, name))
	}
}

// Load reads the full bundle from the set the artifacts path points at
// when Load starts. A missing file yields ErrArtifactsMissing.
func (s *Store) Load() (*Bundle, error) {
	dir, err := s.resolve()
	if err != nil {
		return nil, err
	}
	raw := make(map[string][]byte, 4)
	for _, name := range []string{PreprocessorFile, FeatureListFile, ModelFile, MetadataFile} {
		data, err := read(dir, name)
		if err != nil {
			return nil, err
		}
		raw[name] = data
	}

	b := &Bundle{Transform: &preprocess.FittedTransform{}, Metadata: &models.ModelMetadata{}}
	if err := json.Unmarshal(raw[PreprocessorFile], b.Transform); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", PreprocessorFile, err)
	}
	if err := json.Unmarshal(raw[FeatureListFile], &b.Features); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", FeatureListFile, err)
	}
	model, err := classifier.Unmarshal(raw[ModelFile])
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", ModelFile, err)
	}
	b.Model = model
	if err := json.Unmarshal(raw[MetadataFile], b.Metadata); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", MetadataFile, err)
	}
	return b, nil
}

// Metadata returns model_metadata.json verbatim
func (s *Store) Metadata() ([]byte, error) {
	dir, err := s.resolve()
	if err != nil {
		return nil, err
	}
	return read(dir, MetadataFile)
}

// resolve follows the artifacts link to the directory holding one set
func (s *Store) resolve() (string, error) {
	dir, err := filepath.EvalSymlinks(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrArtifactsMissing, s.dir)
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve artifacts directory: %w", err)
	}
	return dir, nil
}

func read(dir, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrArtifactsMissing, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}
