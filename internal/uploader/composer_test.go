package uploader

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storypress/internal/story"
)

// editorSurface builds a surface that behaves like the story editor:
// create-new opens /editor, the form starts with one page's fields, the
// add-page control appends fields, and back-to-library leaves /editor.
type editorSurface struct {
	*fakeSurface
	title     *fakeControl
	tagInput  *fakeControl
	addPage   *fakeControl
	back      *fakeControl
	createNew *fakeControl
}

func newEditorSurface() *editorSurface {
	s := &editorSurface{fakeSurface: newFakeSurface()}

	s.createNew = s.add(RoleCreateNew, &fakeControl{})
	s.createNew.onClick = func() { s.url = "https://app.test/editor?new=true" }

	s.add(RoleAssistDismiss, &fakeControl{})
	s.title = s.add(RoleTitle, &fakeControl{})
	s.tagInput = s.add(RoleTagInput, &fakeControl{})

	// One page exists when the editor opens; coaching index 0 is the
	// cover's field.
	s.addListed(RoleCoachingField, &fakeControl{})
	s.addListed(RoleContentField, &fakeControl{})
	s.addListed(RoleCoachingField, &fakeControl{})

	s.addPage = s.add(RoleAddPage, &fakeControl{})
	s.addPage.onClick = func() {
		s.addListed(RoleContentField, &fakeControl{})
		s.addListed(RoleCoachingField, &fakeControl{})
	}

	s.back = s.add(RoleBackToLibrary, &fakeControl{})
	s.back.onClick = func() { s.url = "https://app.test/library" }

	return s
}

func newTestComposer(s Surface) *Composer {
	log := zap.NewNop()
	b := testBudgets()
	return NewComposer(s, NewAttacher(s, b, log), "english", b, log)
}

func TestComposeSinglePageStory(t *testing.T) {
	s := newEditorSurface()
	c := newTestComposer(s)

	st := &story.Story{
		Title: "Going to the Dentist",
		Tags:  []string{"dentist", "english", "calm"},
		Slug:  "going-to-the-dentist",
		Pages: []story.Page{{Content: "I go to the dentist.", Coaching: "Stay calm."}},
	}

	require.NoError(t, c.Compose(context.Background(), st))

	assert.Equal(t, []string{"Going to the Dentist"}, s.title.inputs)

	// The implicit default tag is never re-submitted.
	assert.Equal(t, []string{"dentist", "calm"}, s.tagInput.inputs)
	assert.Equal(t, []string{"Enter", "Enter"}, s.keys)

	// Coaching index 0 belongs to the cover and stays untouched; the
	// page's coaching goes to index 1.
	assert.Empty(t, s.lists[RoleCoachingField][0].inputs)
	assert.Equal(t, []string{"Stay calm."}, s.lists[RoleCoachingField][1].inputs)

	assert.Equal(t, []string{"I go to the dentist."}, s.lists[RoleContentField][0].inputs)
	assert.Equal(t, 0, s.addPage.clicks)
	assert.Equal(t, 1, s.back.clicks)
}

func TestComposeCoachingOffsetAcrossPages(t *testing.T) {
	s := newEditorSurface()
	c := newTestComposer(s)

	st := &story.Story{
		Title:         "Three Pages",
		CoverCoaching: "Cover notes.",
		Slug:          "three-pages",
		Pages: []story.Page{
			{Content: "p1", Coaching: "c1"},
			{Content: "p2", Coaching: "c2"},
			{Content: "p3", Coaching: "c3"},
		},
	}

	require.NoError(t, c.Compose(context.Background(), st))

	assert.Equal(t, 2, s.addPage.clicks)

	coaching := s.lists[RoleCoachingField]
	require.Len(t, coaching, 4)
	assert.Equal(t, []string{"Cover notes."}, coaching[0].inputs)
	assert.Equal(t, []string{"c1"}, coaching[1].inputs)
	assert.Equal(t, []string{"c2"}, coaching[2].inputs)
	assert.Equal(t, []string{"c3"}, coaching[3].inputs)

	contents := s.lists[RoleContentField]
	require.Len(t, contents, 3)
	for i, want := range []string{"p1", "p2", "p3"} {
		assert.Equal(t, []string{want}, contents[i].inputs)
	}
}

func TestComposeTitleMissingIsFatal(t *testing.T) {
	s := newEditorSurface()
	s.remove(RoleTitle)
	c := newTestComposer(s)

	st := &story.Story{Title: "T", Slug: "t", Pages: []story.Page{{Content: "c"}}}
	err := c.Compose(context.Background(), st)

	var ce *ComposeError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "title field not found", ce.Reason)
	assert.Equal(t, "t", ce.Slug)
}

func TestComposeSucceedsWithoutImages(t *testing.T) {
	s := newEditorSurface()
	c := newTestComposer(s)

	// Image paths are set but no illustration controls exist, so every
	// attachment is skipped; the document still succeeds.
	st := &story.Story{
		Title:          "No Pictures",
		Slug:           "no-pictures",
		CoverImagePath: "/img/cover.webp",
		Pages:          []story.Page{{Content: "c", ImagePath: "/img/page-1.webp"}},
	}
	require.NoError(t, c.Compose(context.Background(), st))
}

func TestComposeMissingOptionalFieldsSkipped(t *testing.T) {
	s := newEditorSurface()
	s.remove(RoleTagInput)
	s.lists[RoleCoachingField] = nil
	c := newTestComposer(s)

	st := &story.Story{
		Title:         "Sparse",
		Slug:          "sparse",
		CoverCoaching: "ignored",
		Tags:          []string{"a", "b"},
		Pages:         []story.Page{{Content: "c", Coaching: "also ignored"}},
	}
	require.NoError(t, c.Compose(context.Background(), st))
	assert.Empty(t, s.keys)
}

func TestComposeAddPageBroken(t *testing.T) {
	s := newEditorSurface()
	s.addPage.onClick = nil // the new page's fields never appear
	c := newTestComposer(s)

	st := &story.Story{
		Title: "Broken",
		Slug:  "broken",
		Pages: []story.Page{{Content: "p1"}, {Content: "p2"}},
	}
	err := c.Compose(context.Background(), st)

	var ce *ComposeError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Reason, "content field for page 2 not found")
}

func TestComposeEditorNeverOpens(t *testing.T) {
	s := newEditorSurface()
	s.createNew.onClick = nil // URL never changes
	c := newTestComposer(s)

	st := &story.Story{Title: "T", Slug: "t", Pages: []story.Page{{Content: "c"}}}
	err := c.Compose(context.Background(), st)

	var ce *ComposeError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "editor did not open", ce.Reason)
}
