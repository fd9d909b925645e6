package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/narrativewatch/triage/internal/adapters/classifier"
	"github.com/narrativewatch/triage/internal/core"
	"github.com/narrativewatch/triage/internal/domain/model"
	apperrors "github.com/narrativewatch/triage/internal/errors"
	"github.com/narrativewatch/triage/internal/observability/notify"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

// memoryStore is an in-memory posts table shared by the post and retention fakes.
type memoryStore struct {
	mu    sync.Mutex
	posts map[string]*model.Post
}

func newMemoryStore(posts ...*model.Post) *memoryStore {
	s := &memoryStore{posts: map[string]*model.Post{}}
	for _, p := range posts {
		s.posts[p.ID] = p
	}
	return s
}

func (s *memoryStore) snapshot(filter func(*model.Post) bool) []*model.Post {
	var out []*model.Post
	for _, p := range s.posts {
		if filter(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out
}

func (s *memoryStore) get(id string) *model.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

func limitPosts(posts []*model.Post, limit int) []*model.Post {
	if len(posts) > limit {
		return posts[:limit]
	}
	return posts
}

func byCreated(posts []*model.Post) {
	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.Before(posts[j].CreatedAt)
		}
		return posts[i].ID < posts[j].ID
	})
}

// memoryPostRepo implements core.PostRepository with the same filters as the SQL repo.
type memoryPostRepo struct {
	store     *memoryStore
	selectErr error
	calls     map[model.Stage]int
}

func newMemoryPostRepo(store *memoryStore) *memoryPostRepo {
	return &memoryPostRepo{store: store, calls: map[model.Stage]int{}}
}

func (r *memoryPostRepo) QuickCandidates(_ context.Context, limit int) ([]*model.Post, error) {
	r.calls[model.StageQuick]++
	if r.selectErr != nil {
		return nil, r.selectErr
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := r.store.snapshot(func(p *model.Post) bool {
		return p.Classification == model.Unclassified && p.QuickAnalyzedAt == nil &&
			!p.IsArchived() && p.HasContent()
	})
	byCreated(out)
	return limitPosts(out, limit), nil
}

func (r *memoryPostRepo) DeepCandidates(_ context.Context, limit int) ([]*model.Post, error) {
	r.calls[model.StageDeep]++
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := r.store.snapshot(func(p *model.Post) bool {
		return p.Classification == model.Positive && !p.IsArchived() && p.DeepAnalyzedAt == nil
	})
	byCreated(out)
	return limitPosts(out, limit), nil
}

func (r *memoryPostRepo) DeepestCandidates(_ context.Context, limit int) ([]*model.Post, error) {
	r.calls[model.StageDeepest]++
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := r.store.snapshot(func(p *model.Post) bool {
		return p.Classification == model.Positive && !p.IsArchived() && p.HasContent() &&
			p.DeepAnalyzedAt != nil && p.DeepestAnalysisCompletedAt == nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].DeepAnalyzedAt.Before(*out[j].DeepAnalyzedAt) })
	return limitPosts(out, limit), nil
}

func (r *memoryPostRepo) GetByID(_ context.Context, id string) (*model.Post, error) {
	p := r.store.get(id)
	if p == nil {
		return nil, apperrors.NotFoundf("post %s not found", id)
	}
	return p, nil
}

// simulatedClassifier plays the external service: it writes stage results into the store.
type simulatedClassifier struct {
	store *memoryStore
	// decide returns the classification the quick stage writes.
	decide func(id string) bool
	fail   map[string]error
	calls  []core.ClassifyRequest
}

func (c *simulatedClassifier) Classify(_ context.Context, req core.ClassifyRequest) (*core.ClassifyResult, error) {
	c.calls = append(c.calls, req)
	if err, ok := c.fail[req.PostID]; ok {
		return &core.ClassifyResult{Latency: time.Millisecond}, err
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	p, ok := c.store.posts[req.PostID]
	if !ok {
		return &core.ClassifyResult{}, &classifier.StatusError{StatusCode: 404, Body: `{"error":"post not found"}`}
	}
	at := testNow
	switch req.Stage {
	case model.StageQuick:
		flagged := c.decide == nil || c.decide(p.ID)
		p.Classification = model.ClassificationFromNullable(&flagged)
		p.QuickAnalyzedAt = &at
	case model.StageDeep:
		p.DeepAnalyzedAt = &at
	case model.StageDeepest:
		p.DeepestAnalysisCompletedAt = &at
	}
	return &core.ClassifyResult{
		Model:   "claude-test",
		Usage:   model.TokenUsage{InputTokens: 1000, OutputTokens: 100},
		Latency: 20 * time.Millisecond,
	}, nil
}

func (c *simulatedClassifier) callsFor(stage model.Stage) []string {
	var ids []string
	for _, req := range c.calls {
		if req.Stage == stage {
			ids = append(ids, req.PostID)
		}
	}
	return ids
}

// memoryRetentionRepo implements core.RetentionRepository over a memoryStore.
type memoryRetentionRepo struct {
	store     *memoryStore
	resetDays []string
	queue     int
	deleteErr error
}

func (r *memoryRetentionRepo) older(p *model.Post, params core.OlderThanParams) bool {
	ts, ok := retentionTimestamp(p, params.Field)
	return ok && ts.Before(params.Cutoff)
}

func (r *memoryRetentionRepo) CountPosts(context.Context) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return len(r.store.posts), nil
}

func (r *memoryRetentionRepo) CountOlderThan(_ context.Context, params core.OlderThanParams) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return len(r.store.snapshot(func(p *model.Post) bool { return r.older(p, params) })), nil
}

func (r *memoryRetentionRepo) ListOlderThan(_ context.Context, params core.ListOlderThanParams) ([]*model.Post, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := r.store.snapshot(func(p *model.Post) bool {
		return r.older(p, params.OlderThanParams) && !p.IsArchived() && p.ID > params.AfterID
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return limitPosts(out, params.Limit), nil
}

func (r *memoryRetentionRepo) ArchiveByIDs(_ context.Context, ids []string) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	n := 0
	for _, id := range ids {
		if p, ok := r.store.posts[id]; ok && !p.IsArchived() {
			p.Status = model.PostStatusArchived
			n++
		}
	}
	return n, nil
}

func (r *memoryRetentionRepo) DeleteByIDs(_ context.Context, ids []string) (int, error) {
	if r.deleteErr != nil {
		return 0, r.deleteErr
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	n := 0
	for _, id := range ids {
		if p, ok := r.store.posts[id]; ok && !p.IsArchived() {
			delete(r.store.posts, id)
			n++
		}
	}
	return n, nil
}

func (r *memoryRetentionRepo) ResetRollingCounters(_ context.Context, day string) error {
	r.resetDays = append(r.resetDays, day)
	return nil
}

func (r *memoryRetentionRepo) CleanupStaleReviewQueue(context.Context) (int, error) {
	return r.queue, nil
}

// memoryJobRuns implements core.JobRunRepository.
type memoryJobRuns struct {
	mu        sync.Mutex
	runs      map[string]*model.JobRun
	seq       int
	createErr error
}

func newMemoryJobRuns() *memoryJobRuns {
	return &memoryJobRuns{runs: map[string]*model.JobRun{}}
}

func (r *memoryJobRuns) Create(_ context.Context, req *model.CreateJobRunRequest) (*model.JobRun, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	run := &model.JobRun{
		ID:            fmt.Sprintf("run-%d", r.seq),
		JobName:       req.JobName,
		TriggerSource: req.TriggerSource,
		Status:        model.JobRunStatusRunning,
		StartedAt:     testNow,
		Payload:       req.Payload,
	}
	r.runs[run.ID] = run
	cp := *run
	return &cp, nil
}

func (r *memoryJobRuns) Complete(_ context.Context, req *model.CompleteJobRunRequest) (bool, error) {
	if err := req.Validate(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[req.ID]
	if !ok || run.Status != model.JobRunStatusRunning {
		return false, nil
	}
	run.Status = req.Status
	finished := req.FinishedAt
	run.FinishedAt = &finished
	code := req.HTTPStatus
	run.HTTPStatus = &code
	run.ErrorMessage = req.ErrorMessage
	run.Metadata = req.Metadata
	return true, nil
}

func (r *memoryJobRuns) GetByID(_ context.Context, id string) (*model.JobRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, apperrors.NotFoundf("job run %s not found", id)
	}
	cp := *run
	return &cp, nil
}

func (r *memoryJobRuns) only() *model.JobRun {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.runs) != 1 {
		panic(fmt.Sprintf("expected exactly one job run, have %d", len(r.runs)))
	}
	for _, run := range r.runs {
		cp := *run
		return &cp
	}
	return nil
}

type stubSettings struct {
	settings model.RunSettings
	err      error
}

func (s *stubSettings) Load(context.Context) (model.RunSettings, error) {
	return s.settings, s.err
}

type recordingStats struct {
	calls []core.DailyStatsParams
	err   error
}

func (s *recordingStats) IncrementDaily(_ context.Context, p core.DailyStatsParams) error {
	s.calls = append(s.calls, p)
	return s.err
}

type recordingUsage struct {
	records []*model.UsageRecord
	err     error
}

func (r *recordingUsage) Insert(_ context.Context, rec *model.UsageRecord) error {
	r.records = append(r.records, rec)
	return r.err
}

type recordingHistory struct {
	rows []model.CleanupHistory
	err  error
}

func (r *recordingHistory) Insert(_ context.Context, rec *model.CleanupHistory) error {
	r.rows = append(r.rows, *rec)
	return r.err
}

type memoryCache struct {
	mu   sync.Mutex
	keys map[string][]byte
	err  error
}

func (c *memoryCache) SetIfNotExists(_ context.Context, key string, value []byte, _ time.Duration) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.keys == nil {
		c.keys = map[string][]byte{}
	}
	if _, ok := c.keys[key]; ok {
		return false, nil
	}
	c.keys[key] = value
	return true, nil
}

func (c *memoryCache) Delete(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.keys[key]
	delete(c.keys, key)
	return ok, nil
}

func (c *memoryCache) Health(context.Context) error { return c.err }

type capturingNotifier struct {
	mu       sync.Mutex
	payloads []notify.RunFailurePayload
}

func (n *capturingNotifier) NotifyRunFailure(_ context.Context, p notify.RunFailurePayload) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payloads = append(n.payloads, p)
}

func (n *capturingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.payloads)
}

func decodeMetadata(raw json.RawMessage) map[string]any {
	var out map[string]any
	_ = json.Unmarshal(raw, &out)
	return out
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func postID(prefix string, i int) string {
	return fmt.Sprintf("%s-%02d", prefix, i)
}
