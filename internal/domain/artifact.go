package domain

// ArtifactCategory selects the output directory an artifact is stored under.
type ArtifactCategory string

const (
	CategoryImage ArtifactCategory = "images"
	CategoryModel ArtifactCategory = "models"
)

// Artifact is a decoded binary payload produced by a provider, pending
// persistence.
type Artifact struct {
	Data          []byte
	MIME          string
	SuggestedName string
	Extension     string
}

// StoredFile is an artifact persisted to durable storage. It is never
// mutated after creation; retention is outside this service's scope.
type StoredFile struct {
	Path      string
	PublicURL string
}

// Basename returns the file name component of the stored path.
func (f StoredFile) Basename() string {
	for i := len(f.Path) - 1; i >= 0; i-- {
		if f.Path[i] == '/' || f.Path[i] == '\\' {
			return f.Path[i+1:]
		}
	}
	return f.Path
}
