package persist

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jonathan/kb-refresh/internal/types"
)

// ProfileFileName is the snapshot written next to the KB artifacts.
const ProfileFileName = "restaurant_profile.json"

// Artifacts describes the files produced for one restaurant run.
type Artifacts struct {
	MarkdownPath string
	HTMLPath     string
	UploadDir    string
	Hash         string
}

// MarkdownName returns "knowledge_base_<slug>_full_latest.md".
func MarkdownName(slug string) string {
	return fmt.Sprintf("knowledge_base_%s_full_latest.md", slug)
}

// HTMLName returns "knowledge_base_<slug>_full_latest.html".
func HTMLName(slug string) string {
	return fmt.Sprintf("knowledge_base_%s_full_latest.html", slug)
}

// Hash returns the hex sha256 of html + "\n" + md.
func Hash(html, md string) string {
	sum := sha256.Sum256([]byte(html + "\n" + md))
	return hex.EncodeToString(sum[:])
}

// WriteArtifacts writes both KB documents to workDir and returns their paths and content hash.
func WriteArtifacts(workDir, slug, md, html string) (*Artifacts, error) {
	a := &Artifacts{
		MarkdownPath: filepath.Join(workDir, MarkdownName(slug)),
		HTMLPath:     filepath.Join(workDir, HTMLName(slug)),
	}
	if err := WriteFileAtomic(a.MarkdownPath, []byte(md), 0o644); err != nil {
		return nil, err
	}
	if err := WriteFileAtomic(a.HTMLPath, []byte(html), 0o644); err != nil {
		return nil, err
	}
	a.Hash = Hash(html, md)
	return a, nil
}

// Mirror copies both documents unchanged into uploadDir and records it on a.
// An empty uploadDir is a no-op.
func (a *Artifacts) Mirror(uploadDir string) error {
	if uploadDir == "" {
		return nil
	}
	for _, src := range []string{a.MarkdownPath, a.HTMLPath} {
		if err := CopyFile(src, filepath.Join(uploadDir, filepath.Base(src))); err != nil {
			return err
		}
	}
	a.UploadDir = uploadDir
	return nil
}

// ExtractedSnapshot records what a run found, next to the unchanged input profile.
type ExtractedSnapshot struct {
	Name        string           `json:"name,omitempty"`
	Address     string           `json:"address,omitempty"`
	Phone       string           `json:"phone,omitempty"`
	Email       string           `json:"email,omitempty"`
	Hours       types.HoursTable `json:"hours,omitempty"`
	HoursText   string           `json:"hours_text,omitempty"`
	Strategy    string           `json:"strategy"`
	Sources     []string         `json:"sources,omitempty"`
	GeneratedAt string           `json:"generatedAt"`
}

// ProfileSnapshot is restaurant_profile.json: the input profile plus an "extracted" block.
// It still loads as a RestaurantProfile.
type ProfileSnapshot struct {
	types.RestaurantProfile
	Extracted *ExtractedSnapshot `json:"extracted,omitempty"`
}

// WriteProfileSnapshot writes restaurant_profile.json into workDir and returns its path.
func WriteProfileSnapshot(workDir string, profile *types.RestaurantProfile, facts *types.Facts) (string, error) {
	snap := ProfileSnapshot{
		RestaurantProfile: *profile,
		Extracted: &ExtractedSnapshot{
			Name:        facts.Name,
			Address:     facts.Address,
			Phone:       facts.Phone,
			Email:       facts.Email,
			Hours:       facts.Hours,
			HoursText:   facts.HoursText,
			Strategy:    profile.EffectiveStrategy(),
			Sources:     facts.Sources,
			GeneratedAt: facts.GeneratedAt.Format(time.RFC3339),
		},
	}
	path := filepath.Join(workDir, ProfileFileName)
	if err := WriteJSON(path, snap); err != nil {
		return "", err
	}
	return path, nil
}
