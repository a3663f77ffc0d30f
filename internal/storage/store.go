package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/MaksimIschenko/giga-gen-project/internal/domain"
)

// Store persists generated artifacts onto the local filesystem, images and
// models under separate roots. It is intended for single-node deployments
// where an object storage service is not available.
type Store struct {
	imagesDir string
	modelsDir string
	baseURL   string
}

var mimeExtensions = map[string]string{
	"image/png":          ".png",
	"image/jpeg":         ".jpg",
	"model/gltf-binary":  ".glb",
	"model/obj":          ".obj",
	"model/vnd.usdz+zip": ".usdz",
}

// NewStore initializes a store rooted at the two directories, creating them
// if needed. baseURL is the public prefix stored files are served under.
func NewStore(imagesDir, modelsDir, baseURL string) (*Store, error) {
	imagesDir = strings.TrimSpace(imagesDir)
	modelsDir = strings.TrimSpace(modelsDir)
	if imagesDir == "" || modelsDir == "" {
		return nil, errors.New("storage: images and models directories are required")
	}
	for _, dir := range []string{imagesDir, modelsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("storage: ensure directory: %w", err)
		}
	}
	return &Store{
		imagesDir: imagesDir,
		modelsDir: modelsDir,
		baseURL:   strings.TrimRight(strings.TrimSpace(baseURL), "/"),
	}, nil
}

// Dir returns the root directory for a category.
func (s *Store) Dir(category domain.ArtifactCategory) string {
	if category == domain.CategoryModel {
		return s.modelsDir
	}
	return s.imagesDir
}

// Persist writes the artifact under a fresh unique name and returns where it
// landed. The file becomes visible only after its contents are fully on
// disk; a crash mid-write leaves at most an orphaned temp file, never a
// truncated artifact.
func (s *Store) Persist(ctx context.Context, artifact domain.Artifact, category domain.ArtifactCategory) (domain.StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return domain.StoredFile{}, domain.IO("storage: persist canceled", err)
	}
	if len(artifact.Data) == 0 {
		return domain.StoredFile{}, domain.IO("storage: refusing to store an empty artifact", nil)
	}

	name := s.fileName(artifact)
	dir := s.Dir(category)
	finalPath := filepath.Join(dir, name)

	tmp, err := os.CreateTemp(dir, ".pending-*")
	if err != nil {
		return domain.StoredFile{}, domain.IO("storage: create temp file", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(artifact.Data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return domain.StoredFile{}, domain.IO("storage: write artifact", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return domain.StoredFile{}, domain.IO("storage: close temp file", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return domain.StoredFile{}, domain.IO("storage: set file mode", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return domain.StoredFile{}, domain.IO("storage: publish artifact", err)
	}

	return domain.StoredFile{
		Path:      finalPath,
		PublicURL: s.baseURL + "/" + string(category) + "/" + name,
	}, nil
}

// fileName builds `<prefix>_<uuid><ext>` from the artifact's suggested name
// and extension, falling back to the MIME type for the extension.
func (s *Store) fileName(artifact domain.Artifact) string {
	prefix := sanitizePrefix(artifact.SuggestedName)
	ext := strings.TrimSpace(artifact.Extension)
	if ext == "" {
		ext = mimeExtensions[artifact.MIME]
	}
	if ext == "" {
		ext = ".bin"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return prefix + "_" + uuid.NewString() + ext
}

func sanitizePrefix(prefix string) string {
	if clean := domain.SanitizeName(prefix); clean != "" {
		return clean
	}
	return "gen"
}
