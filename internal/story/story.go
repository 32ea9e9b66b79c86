// Package story loads and validates story input directories.
//
// Each story lives in its own directory containing a story.json plus
// optional cover and per-page images:
//
//	<dir>/story.json
//	<dir>/cover.webp        (optional; also .png/.jpg/.jpeg)
//	<dir>/page-<n>.webp     (optional, n = 1..len(pages))
package story

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// imageExts lists accepted image extensions in lookup order.
var imageExts = []string{".webp", ".png", ".jpg", ".jpeg"}

// Page is one page of a story. Pages are identified by their 1-based
// position, which drives both page creation order and the index used to
// address the dynamically-appearing editor fields.
type Page struct {
	Content  string `json:"content"`
	Coaching string `json:"coaching,omitempty"`

	// ImagePath is the resolved page-<n> image, empty when absent.
	ImagePath string `json:"-"`
}

// Story is one illustrated multi-page story to publish.
type Story struct {
	Title         string
	Tags          []string
	CoverCoaching string
	Pages         []Page

	// CoverImagePath is the resolved cover image, empty when absent.
	CoverImagePath string
	// Slug is the story directory name, used as the stable identifier
	// in logs and summaries.
	Slug string
	// Dir is the absolute story directory.
	Dir string
}

// storyFile mirrors story.json on disk. The coaching key appears in two
// spellings depending on which parser produced the file.
type storyFile struct {
	Title              string   `json:"title"`
	Tags               []string `json:"tags"`
	CoverCoaching      string   `json:"coverCoaching"`
	CoverCoachingSnake string   `json:"cover_coaching"`
	Pages              []Page   `json:"pages"`
}

// Load reads and validates one story directory.
func Load(dir string) (*Story, error) {
	path := filepath.Join(dir, "story.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var sf storyFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	st := &Story{
		Title:         strings.TrimSpace(sf.Title),
		Tags:          normalizeTags(sf.Tags),
		CoverCoaching: sf.CoverCoaching,
		Pages:         sf.Pages,
		Slug:          filepath.Base(dir),
		Dir:           dir,
	}
	if st.CoverCoaching == "" {
		st.CoverCoaching = sf.CoverCoachingSnake
	}

	if st.Title == "" {
		return nil, fmt.Errorf("%s: title is required", st.Slug)
	}
	if len(st.Pages) == 0 {
		return nil, fmt.Errorf("%s: at least one page is required", st.Slug)
	}
	for i := range st.Pages {
		if strings.TrimSpace(st.Pages[i].Content) == "" {
			return nil, fmt.Errorf("%s: page %d has no content", st.Slug, i+1)
		}
	}

	st.CoverImagePath = findImage(dir, "cover")
	for i := range st.Pages {
		st.Pages[i].ImagePath = findImage(dir, fmt.Sprintf("page-%d", i+1))
	}
	return st, nil
}

// Discover lists story directories under root in name order. The order
// is deterministic so a numeric limit always selects the same prefix.
func Discover(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read stories dir: %w", err)
	}

	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(root, e.Name()))
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// LoadAll loads every story under root, failing on the first invalid one.
func LoadAll(root string) ([]*Story, error) {
	dirs, err := Discover(root)
	if err != nil {
		return nil, err
	}
	stories := make([]*Story, 0, len(dirs))
	for _, dir := range dirs {
		st, err := Load(dir)
		if err != nil {
			return nil, err
		}
		stories = append(stories, st)
	}
	return stories, nil
}

// normalizeTags trims entries, drops empties, and removes duplicates
// case-insensitively while preserving first-seen order and casing.
func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

func findImage(dir, stem string) string {
	for _, ext := range imageExts {
		p := filepath.Join(dir, stem+ext)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
