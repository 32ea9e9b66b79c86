// Package migrate copies shared community stories between two PostgREST
// environments, reassigning ownership to a target user on insert.
package migrate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const storiesTable = "community_stories"

// Env identifies one PostgREST environment.
type Env struct {
	URL        string
	ServiceKey string
}

// CommunityStory is one shared story record. Structured columns pass
// through untouched as raw JSON; only ownership and approval fields are
// rewritten on import.
type CommunityStory struct {
	ID                   string          `json:"id"`
	Title                string          `json:"title"`
	OriginalStoryID      *string         `json:"original_story_id"`
	OriginalUserID       string          `json:"original_user_id"`
	LikesCount           int             `json:"likes_count"`
	ViewsCount           int             `json:"views_count"`
	SharedAt             string          `json:"shared_at"`
	IsFeatured           bool            `json:"is_featured"`
	IsApproved           *bool           `json:"is_approved"`
	CoverCoachingContent *string         `json:"cover_coaching_content"`
	CoverCanvasEditorID  *string         `json:"cover_canvas_editor_id"`
	CoverCanvasState     json.RawMessage `json:"cover_canvas_state,omitempty"`
	Pages                json.RawMessage `json:"pages,omitempty"`
	AIGeneratorHistory   json.RawMessage `json:"ai_generator_history,omitempty"`
	Tags                 json.RawMessage `json:"tags,omitempty"`
}

// Summary aggregates one migration.
type Summary struct {
	Total       int
	Imported    int
	Failed      int
	TargetCount int // rows in the target table after the run, -1 if unknown
	Errors      []ImportError
}

// ImportError records one failed insert.
type ImportError struct {
	Title string
	Err   string
}

// Migrator copies stories from a source to a target environment.
type Migrator struct {
	source Env
	target Env
	userID string
	client *http.Client
	log    *zap.Logger
}

// New builds a migrator. targetUserID becomes the owner of every
// imported story.
func New(source, target Env, targetUserID string, log *zap.Logger) *Migrator {
	return &Migrator{
		source: source,
		target: target,
		userID: targetUserID,
		client: &http.Client{Timeout: 30 * time.Second},
		log:    log,
	}
}

// Run fetches every story from the source and inserts each into the
// target one at a time, so a single bad record never aborts the batch.
func (m *Migrator) Run(ctx context.Context) (Summary, error) {
	m.log.Info("fetching stories from source")
	stories, err := m.fetchAll(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("fetch source stories: %w", err)
	}
	m.log.Info("found stories to migrate", zap.Int("count", len(stories)))

	sum := Summary{Total: len(stories), TargetCount: -1}
	for i, st := range stories {
		if err := m.importStory(ctx, st); err != nil {
			sum.Failed++
			sum.Errors = append(sum.Errors, ImportError{Title: st.Title, Err: err.Error()})
			m.log.Error("import failed",
				zap.Int("index", i+1),
				zap.Int("total", len(stories)),
				zap.String("title", st.Title),
				zap.Error(err))
			continue
		}
		sum.Imported++
		m.log.Info("imported story",
			zap.Int("index", i+1),
			zap.Int("total", len(stories)),
			zap.String("title", st.Title))
	}

	if count, err := m.countTarget(ctx); err != nil {
		m.log.Warn("target count validation failed", zap.Error(err))
	} else {
		sum.TargetCount = count
	}
	return sum, nil
}

func (m *Migrator) fetchAll(ctx context.Context) ([]CommunityStory, error) {
	url := fmt.Sprintf("%s/rest/v1/%s?select=*&order=shared_at.desc",
		strings.TrimRight(m.source.URL, "/"), storiesTable)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	authorize(req, m.source.ServiceKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var stories []CommunityStory
	if err := json.NewDecoder(resp.Body).Decode(&stories); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return stories, nil
}

// importStory inserts one record into the target. The original story
// reference is cleared (its source row does not exist in the target)
// and ownership moves to the configured user. Approval defaults to
// true when the source left it unset.
func (m *Migrator) importStory(ctx context.Context, st CommunityStory) error {
	st.OriginalStoryID = nil
	st.OriginalUserID = m.userID
	if st.IsApproved == nil {
		approved := true
		st.IsApproved = &approved
	}

	body, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode story: %w", err)
	}

	url := fmt.Sprintf("%s/rest/v1/%s", strings.TrimRight(m.target.URL, "/"), storiesTable)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	authorize(req, m.target.ServiceKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return nil
}

// countTarget asks the target for its row count via a HEAD-style exact
// count request.
func (m *Migrator) countTarget(ctx context.Context) (int, error) {
	url := fmt.Sprintf("%s/rest/v1/%s?select=id", strings.TrimRight(m.target.URL, "/"), storiesTable)
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, err
	}
	authorize(req, m.target.ServiceKey)
	req.Header.Set("Prefer", "count=exact")

	resp, err := m.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return 0, apiError(resp)
	}

	// Content-Range is "0-24/25"; the figure after the slash is the
	// exact count.
	cr := resp.Header.Get("Content-Range")
	_, total, ok := strings.Cut(cr, "/")
	if !ok {
		return 0, fmt.Errorf("missing count in Content-Range %q", cr)
	}
	return strconv.Atoi(total)
}

func authorize(req *http.Request, key string) {
	req.Header.Set("apikey", key)
	req.Header.Set("Authorization", "Bearer "+key)
}

func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, msg)
}
