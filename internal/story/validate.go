package story

import (
	"fmt"
	"path/filepath"
)

// Report is the pre-flight check result for one story directory.
type Report struct {
	Slug     string
	Errors   []string
	Warnings []string
}

// OK reports whether the story can be uploaded as-is.
func (r Report) OK() bool { return len(r.Errors) == 0 }

// Check runs a pre-flight validation over every story directory under
// root: structural errors (bad or missing story.json, empty content)
// block an upload, while missing images are only warnings since image
// attachment is optional.
func Check(root string) ([]Report, error) {
	dirs, err := Discover(root)
	if err != nil {
		return nil, err
	}

	reports := make([]Report, 0, len(dirs))
	for _, dir := range dirs {
		st, err := Load(dir)
		if err != nil {
			reports = append(reports, Report{
				Slug:   filepath.Base(dir),
				Errors: []string{err.Error()},
			})
			continue
		}

		r := Report{Slug: st.Slug}
		if st.CoverImagePath == "" {
			r.Warnings = append(r.Warnings, "no cover image")
		}
		missing := 0
		for i := range st.Pages {
			if st.Pages[i].ImagePath == "" {
				missing++
			}
		}
		if missing == len(st.Pages) {
			r.Warnings = append(r.Warnings, "no page images")
		} else if missing > 0 {
			r.Warnings = append(r.Warnings, fmt.Sprintf("%d of %d pages have no image", missing, len(st.Pages)))
		}
		if len(st.Tags) == 0 {
			r.Warnings = append(r.Warnings, "no tags")
		}
		reports = append(reports, r)
	}
	return reports, nil
}
