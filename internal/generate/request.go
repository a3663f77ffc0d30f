package generate

import (
	"fmt"
	"strings"

	"github.com/MaksimIschenko/giga-gen-project/internal/domain"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

var modelExtensions = map[string]bool{
	".fbx":  true,
	".glb":  true,
	".obj":  true,
	".usdz": true,
}

// SimpleImageRequest is one synchronous image generation. Fewshot is a
// pointer so an absent field defaults to true while an explicit false is
// honored.
type SimpleImageRequest struct {
	Prompt         string `json:"prompt"`
	Mode           string `json:"mode"`
	Style          string `json:"style"`
	Fewshot        *bool  `json:"fewshot"`
	FilenamePrefix string `json:"filename_prefix"`
	Extension      string `json:"extension"`

	// Locale is resolved from the request context, not the body.
	Locale string `json:"-"`
}

// Normalize fills defaults in place. Call before Validate.
func (r *SimpleImageRequest) Normalize() {
	r.Prompt = strings.TrimSpace(r.Prompt)
	r.Mode = strings.ToLower(strings.TrimSpace(r.Mode))
	if r.Mode == "" {
		r.Mode = "icon"
	}
	r.Style = strings.TrimSpace(r.Style)
	r.FilenamePrefix = normalizePrefix(r.FilenamePrefix, "gen")
	r.Extension = normalizeExtension(r.Extension, ".jpg")
}

func (r *SimpleImageRequest) Validate() error {
	if r.Prompt == "" {
		return domain.Validation("prompt", "prompt must not be empty")
	}
	if r.Mode != "icon" && r.Mode != "logo" {
		return domain.Validation("mode", "mode must be icon or logo")
	}
	if !imageExtensions[r.Extension] {
		return domain.BadRequest("extension", fmt.Sprintf("extension %s is not supported for images", r.Extension))
	}
	return nil
}

// FewshotEnabled resolves the tri-state flag.
func (r *SimpleImageRequest) FewshotEnabled() bool {
	return r.Fewshot == nil || *r.Fewshot
}

// ComplexImageRequest is one asynchronous batch generation.
type ComplexImageRequest struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt"`
	Style          string `json:"style"`
	Images         int    `json:"images"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	FileBasename   string `json:"file_basename"`
	Extension      string `json:"extension"`
	Archive        bool   `json:"archive"`
}

func (r *ComplexImageRequest) Normalize() {
	r.Prompt = strings.TrimSpace(r.Prompt)
	r.NegativePrompt = strings.TrimSpace(r.NegativePrompt)
	r.Style = strings.ToUpper(strings.TrimSpace(r.Style))
	if r.Images == 0 {
		r.Images = 1
	}
	if r.Width == 0 {
		r.Width = 1024
	}
	if r.Height == 0 {
		r.Height = 1024
	}
	r.FileBasename = normalizePrefix(r.FileBasename, "kandinsky")
	r.Extension = normalizeExtension(r.Extension, ".jpg")
}

func (r *ComplexImageRequest) Validate() error {
	if r.Prompt == "" {
		return domain.Validation("prompt", "prompt must not be empty")
	}
	if r.Images < 1 || r.Images > 10 {
		return domain.Validation("images", "images must be between 1 and 10")
	}
	if r.Width < 128 || r.Width > 2048 {
		return domain.Validation("width", "width must be between 128 and 2048")
	}
	if r.Height < 128 || r.Height > 2048 {
		return domain.Validation("height", "height must be between 128 and 2048")
	}
	if !imageExtensions[r.Extension] {
		return domain.BadRequest("extension", fmt.Sprintf("extension %s is not supported for images", r.Extension))
	}
	return nil
}

// Model3DRequest is one text-to-3d generation. The Meshy knobs are
// validated regardless of which provider is active so a request does not
// silently change meaning when the deployment switches providers.
type Model3DRequest struct {
	Prompt         string `json:"prompt"`
	Mode           string `json:"mode"`
	Style          string `json:"style"`
	Fewshot        *bool  `json:"fewshot"`
	FilenamePrefix string `json:"filename_prefix"`
	Extension      string `json:"extension"`

	ArtStyle        string `json:"art_style"`
	Topology        string `json:"topology"`
	TargetPolycount int    `json:"target_polycount"`
	AIModel         string `json:"ai_model"`
	TexturePrompt   string `json:"texture_prompt"`

	Locale string `json:"-"`
}

func (r *Model3DRequest) Normalize() {
	r.Prompt = strings.TrimSpace(r.Prompt)
	r.Mode = strings.ToLower(strings.TrimSpace(r.Mode))
	if r.Mode == "" {
		r.Mode = "lowpoly"
	}
	r.Style = strings.TrimSpace(r.Style)
	r.FilenamePrefix = normalizePrefix(r.FilenamePrefix, "model")
	r.Extension = normalizeExtension(r.Extension, ".fbx")
	r.ArtStyle = strings.ToLower(strings.TrimSpace(r.ArtStyle))
	r.Topology = strings.ToLower(strings.TrimSpace(r.Topology))
	r.AIModel = strings.ToLower(strings.TrimSpace(r.AIModel))
	r.TexturePrompt = strings.TrimSpace(r.TexturePrompt)
}

func (r *Model3DRequest) Validate() error {
	if r.Prompt == "" {
		return domain.Validation("prompt", "prompt must not be empty")
	}
	if r.Mode != "lowpoly" && r.Mode != "realistic" {
		return domain.Validation("mode", "mode must be lowpoly or realistic")
	}
	if !modelExtensions[r.Extension] {
		return domain.BadRequest("extension", fmt.Sprintf("extension %s is not supported for models", r.Extension))
	}
	if r.ArtStyle != "" && r.ArtStyle != "realistic" && r.ArtStyle != "sculpture" {
		return domain.Validation("art_style", "art_style must be realistic or sculpture")
	}
	if r.Topology != "" && r.Topology != "triangle" && r.Topology != "quad" {
		return domain.Validation("topology", "topology must be triangle or quad")
	}
	if r.TargetPolycount != 0 && (r.TargetPolycount < 500 || r.TargetPolycount > 200000) {
		return domain.Validation("target_polycount", "target_polycount must be between 500 and 200000")
	}
	if r.AIModel != "" && r.AIModel != "meshy-5" && r.AIModel != "meshy-4" {
		return domain.Validation("ai_model", "ai_model must be meshy-5 or meshy-4")
	}
	return nil
}

func (r *Model3DRequest) FewshotEnabled() bool {
	return r.Fewshot == nil || *r.Fewshot
}

func normalizePrefix(prefix, fallback string) string {
	if clean := domain.SanitizeName(prefix); clean != "" {
		return clean
	}
	return fallback
}

// normalizeExtension lower-cases and dots the extension; validation of the
// allowed set happens per kind.
func normalizeExtension(ext, fallback string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return fallback
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
