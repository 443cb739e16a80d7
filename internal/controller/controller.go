// Package controller is the glue that handles inbound commands by
// invoking the Store, analysis, embedding, index, retrieval, and
// orchestration collaborators.
package controller

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"hibikido/internal/analysis"
	"hibikido/internal/describer"
	"hibikido/internal/embedding"
	"hibikido/internal/index"
	"hibikido/internal/orchestrator"
	"hibikido/internal/pcm"
	"hibikido/internal/retriever"
	"hibikido/internal/store"
)

// StatsResult mirrors the seven-field stats_result outbound message.
type StatsResult struct {
	Recordings   int
	Segments     int
	Effects      int
	Presets      int
	Embeddings   int
	ActiveNiches int
	Queued       int
}

// SegmentSummary is one entry of a list_segments reply.
type SegmentSummary struct {
	ID          int
	Description string
}

// Controller orchestrates the core components in response to inbound
// commands. One Controller is shared by every connection; its own state
// (none beyond references to its collaborators) requires no locking — all
// mutation happens inside the collaborators themselves.
type Controller struct {
	store     *store.Store
	pcmSource *pcm.Source
	analyzer  *analysis.AudioAnalyzer
	embedder  embedding.Embedder
	idx       *index.Index
	indexPath string
	retr      *retriever.Retriever
	orch      *orchestrator.Orchestrator
	describer *describer.Describer

	topK     int
	minScore float64
}

// Config bundles the Controller's tunables, drawn from config.Config's
// embedding.index_file and search.* settings.
type Config struct {
	IndexPath string
	TopK      int
	MinScore  float64
}

// New constructs a Controller over its collaborators. describer may be
// nil: generate_description then always falls back to the heuristic
// description.
func New(st *store.Store, pcmSource *pcm.Source, analyzer *analysis.AudioAnalyzer, embedder embedding.Embedder, idx *index.Index, orch *orchestrator.Orchestrator, desc *describer.Describer, cfg Config) *Controller {
	return &Controller{
		store:     st,
		pcmSource: pcmSource,
		analyzer:  analyzer,
		embedder:  embedder,
		idx:       idx,
		indexPath: cfg.IndexPath,
		retr:      retriever.New(embedder, idx, st),
		orch:      orch,
		describer: desc,
		topK:      cfg.TopK,
		minScore:  cfg.MinScore,
	}
}

// Invoke retrieves hits for text, filters to segment hits (preset hits
// are reserved for a future channel), enqueues each into the
// Orchestrator in score-descending order, and returns the confirmation
// text.
func (c *Controller) Invoke(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", fmt.Errorf("query must be non-empty")
	}

	requestID := uuid.New().String()
	log.Printf("[Controller] invoke %s: %q", requestID, text)

	hits, err := c.retr.Search(ctx, text, c.topK, c.minScore)
	if err != nil {
		return "", fmt.Errorf("search: %w", err)
	}

	queued := 0
	var announced []string
	for i, hit := range hits {
		if hit.Collection != "segments" {
			continue
		}
		announced = append(announced, hit.Path)
		c.orch.Enqueue(orchestrator.Announcement{
			Index:        i,
			Collection:   hit.Collection,
			Score:        hit.Score,
			Path:         hit.Path,
			Description:  hit.Description,
			Start:        hit.Start,
			End:          hit.End,
			MetadataJSON: hit.MetadataJSON,
			SegmentID:    hit.SegmentID,
			Bark:         hit.Bark,
			Duration:     hit.Duration,
		})
		queued++
	}

	c.recordSession(text, queued, announced)
	return fmt.Sprintf("invoked: %d resonances queued", queued), nil
}

// AddRecording analyzes the full file at path, stores a Recording and its
// automatic full-range Segment, embeds and indexes the segment. On any
// analyzer or embedding failure neither entity is persisted: ingest is
// atomic per command.
func (c *Controller) AddRecording(ctx context.Context, path, description string, tags []string) (string, error) {
	buf, err := c.pcmSource.Load(path, 0, 1)
	if err != nil {
		return "", fmt.Errorf("analysis failure: %w", err)
	}
	result := c.analyzer.Analyze(buf.Samples, buf.SampleRate)

	embeddingText := composeEmbeddingText(description, description, tags)
	vec, err := c.embedder.Embed(ctx, embeddingText)
	if err != nil {
		return "", fmt.Errorf("embedding failure: %w", err)
	}

	rec := store.Recording{
		Path:        path,
		Description: description,
		Duration:    result.Duration,
		Features:    toFeatureRecord(result.Features),
		CreatedAt:   time.Now(),
	}
	rec, err = c.store.Recordings.Add(rec)
	if err != nil {
		return "", fmt.Errorf("store write failure: %w", err)
	}

	seg := store.Segment{
		RecordingPath: path,
		Start:         0,
		End:           1,
		Description:   description,
		Features:      toFeatureRecord(result.Features),
		BarkRaw:       result.BarkRaw,
		BarkNorm:      result.BarkNorm,
		OnsetsLowMid:  result.OnsetsLM,
		OnsetsMid:     result.OnsetsMid,
		OnsetsHighMid: result.OnsetsHM,
		Duration:      result.Duration,
		EmbeddingText: embeddingText,
		CreatedAt:     time.Now(),
	}
	seg, err = c.store.Segments.Add(seg)
	if err != nil {
		return "", fmt.Errorf("store write failure: %w", err)
	}

	if err := c.indexAndLinkSegment(vec, seg); err != nil {
		return "", err
	}

	return fmt.Sprintf("added recording: %s with auto-segment", path), nil
}

// AddSegment analyzes the [start,end) slice of an existing Recording's
// file and stores a Segment the same way AddRecording stores its
// automatic one.
func (c *Controller) AddSegment(ctx context.Context, path, description string, start, end float64, tags []string) (string, error) {
	if start < 0 || end > 1 || end <= start {
		return "", fmt.Errorf("invalid normalized range: start=%.4f end=%.4f", start, end)
	}
	rec, ok := c.store.FindRecordingByPath(path)
	if !ok {
		return "", fmt.Errorf("missing entity: no recording at path %q", path)
	}

	buf, err := c.pcmSource.Load(path, start, end)
	if err != nil {
		return "", fmt.Errorf("analysis failure: %w", err)
	}
	result := c.analyzer.Analyze(buf.Samples, buf.SampleRate)

	embeddingText := composeEmbeddingText(description, rec.Description, tags)
	vec, err := c.embedder.Embed(ctx, embeddingText)
	if err != nil {
		return "", fmt.Errorf("embedding failure: %w", err)
	}

	seg := store.Segment{
		RecordingPath: path,
		Start:         start,
		End:           end,
		Description:   description,
		Features:      toFeatureRecord(result.Features),
		BarkRaw:       result.BarkRaw,
		BarkNorm:      result.BarkNorm,
		OnsetsLowMid:  result.OnsetsLM,
		OnsetsMid:     result.OnsetsMid,
		OnsetsHighMid: result.OnsetsHM,
		Duration:      result.Duration,
		EmbeddingText: embeddingText,
		CreatedAt:     time.Now(),
	}
	seg, err = c.store.Segments.Add(seg)
	if err != nil {
		return "", fmt.Errorf("store write failure: %w", err)
	}

	if err := c.indexAndLinkSegment(vec, seg); err != nil {
		return "", err
	}

	return fmt.Sprintf("added segment: %s [%.4f,%.4f]", path, start, end), nil
}

func (c *Controller) indexAndLinkSegment(vec []float32, seg store.Segment) error {
	id, err := c.idx.Add(vec)
	if err != nil {
		return fmt.Errorf("index write failure: %w", err)
	}
	seg.IndexID = &id
	if err := c.store.Segments.Update(seg.ID, seg); err != nil {
		return fmt.Errorf("store write failure: %w", err)
	}
	return nil
}

// AddEffect registers an Effect descriptor.
func (c *Controller) AddEffect(path, description string) (string, error) {
	_, err := c.store.Effects.Add(store.Effect{Path: path, Description: description})
	if err != nil {
		return "", fmt.Errorf("store write failure: %w", err)
	}
	return fmt.Sprintf("added effect: %s", path), nil
}

// AddPreset registers a Preset, embeds its description, and indexes it:
// presets participate in the Index even though the announcement channel
// for them is dormant.
func (c *Controller) AddPreset(ctx context.Context, description, effectPath string, parameters []float64) (string, error) {
	if _, ok := findEffect(c.store, effectPath); !ok {
		return "", fmt.Errorf("missing entity: no effect at path %q", effectPath)
	}

	embeddingText := composeEmbeddingText(description, "", nil)
	vec, err := c.embedder.Embed(ctx, embeddingText)
	if err != nil {
		return "", fmt.Errorf("embedding failure: %w", err)
	}

	p := store.Preset{
		EffectPath:    effectPath,
		Description:   description,
		Parameters:    parameters,
		EmbeddingText: embeddingText,
		CreatedAt:     time.Now(),
	}
	p, err = c.store.Presets.Add(p)
	if err != nil {
		return "", fmt.Errorf("store write failure: %w", err)
	}

	id, err := c.idx.Add(vec)
	if err != nil {
		return "", fmt.Errorf("index write failure: %w", err)
	}
	p.IndexID = &id
	if err := c.store.Presets.Update(p.ID, p); err != nil {
		return "", fmt.Errorf("store write failure: %w", err)
	}

	return fmt.Sprintf("added preset: %s", description), nil
}

func findEffect(st *store.Store, path string) (store.Effect, bool) {
	for _, e := range st.Effects.All() {
		if e.Path == path {
			return e, true
		}
	}
	return store.Effect{}, false
}

// RebuildIndex rebuilds the Index from the Store and persists it.
func (c *Controller) RebuildIndex(ctx context.Context) (string, error) {
	if err := index.Rebuild(ctx, c.idx, c.store, c.embedder); err != nil {
		return "", fmt.Errorf("rebuild failure: %w", err)
	}
	if err := c.idx.Save(c.indexPath); err != nil {
		return "", fmt.Errorf("store write failure: %w", err)
	}
	return fmt.Sprintf("rebuilt index: %d vectors", c.idx.Len()), nil
}

// Stats projects entity counts and Orchestrator metrics.
func (c *Controller) Stats() StatsResult {
	counts := c.store.Counts()
	return StatsResult{
		Recordings:   counts.Recordings,
		Segments:     counts.Segments,
		Effects:      counts.Effects,
		Presets:      counts.Presets,
		Embeddings:   counts.Embeddings,
		ActiveNiches: c.orch.ActiveNiches(),
		Queued:       c.orch.Queued(),
	}
}

// ListSegments returns up to n segment ids and descriptions, in Store
// order, n defaulting to 10.
func (c *Controller) ListSegments(n int) []SegmentSummary {
	if n <= 0 {
		n = 10
	}
	all := c.store.Segments.All()
	if n > len(all) {
		n = len(all)
	}
	out := make([]SegmentSummary, n)
	for i := 0; i < n; i++ {
		desc := all[i].Description
		if desc == "" {
			desc = all[i].GeneratedDescription
		}
		out[i] = SegmentSummary{ID: all[i].ID, Description: desc}
	}
	return out
}

// GetSegmentField resolves a dotted field path on the segment with the
// given id.
func (c *Controller) GetSegmentField(id int, fieldPath string) (any, error) {
	seg, ok := c.store.Segments.Get(id)
	if !ok {
		return nil, fmt.Errorf("missing entity: no segment with id %d", id)
	}
	return store.GetSegmentField(seg, fieldPath)
}

// GenerateDescription invokes the optional describer collaborator for a
// segment or recording, writing the result back as GeneratedDescription.
// Without force, an entity that already carries a generated description
// is left untouched.
func (c *Controller) GenerateDescription(ctx context.Context, collection string, id int, force bool) (string, error) {
	switch collection {
	case "segments":
		return c.generateSegmentDescription(ctx, id, force)
	case "recordings":
		return c.generateRecordingDescription(ctx, id, force)
	default:
		return "", fmt.Errorf("invalid input: unknown collection %q", collection)
	}
}

func (c *Controller) generateSegmentDescription(ctx context.Context, id int, force bool) (string, error) {
	seg, ok := c.store.Segments.Get(id)
	if !ok {
		return "", fmt.Errorf("missing entity: no segment with id %d", id)
	}
	if seg.GeneratedDescription != "" && !force {
		return seg.GeneratedDescription, nil
	}
	desc, err := c.describerOrNil().Describe(ctx, seg.RecordingPath, seg.Description, summaryHints(seg.Features))
	if err != nil {
		return "", fmt.Errorf("description generation failure: %w", err)
	}
	seg.GeneratedDescription = desc
	if err := c.store.Segments.Update(seg.ID, seg); err != nil {
		return "", fmt.Errorf("store write failure: %w", err)
	}
	return desc, nil
}

func (c *Controller) generateRecordingDescription(ctx context.Context, id int, force bool) (string, error) {
	rec, ok := c.store.Recordings.Get(id)
	if !ok {
		return "", fmt.Errorf("missing entity: no recording with id %d", id)
	}
	if rec.GeneratedDescription != "" && !force {
		return rec.GeneratedDescription, nil
	}
	desc, err := c.describerOrNil().Describe(ctx, rec.Path, rec.Description, summaryHints(rec.Features))
	if err != nil {
		return "", fmt.Errorf("description generation failure: %w", err)
	}
	rec.GeneratedDescription = desc
	if err := c.store.Recordings.Update(rec.ID, rec); err != nil {
		return "", fmt.Errorf("store write failure: %w", err)
	}
	return desc, nil
}

// describerOrNil returns a usable Describer even when none was
// configured, so generate_description always falls back rather than
// nil-panicking.
func (c *Controller) describerOrNil() *describerFallback {
	return &describerFallback{d: c.describer}
}

// Stop performs a clean shutdown: persist the Index (the Store persists
// on every write already, per collection).
func (c *Controller) Stop() error {
	if err := c.idx.Save(c.indexPath); err != nil {
		return fmt.Errorf("store write failure: %w", err)
	}
	return nil
}

func (c *Controller) recordSession(query string, queued int, announced []string) {
	_, _ = c.store.Sessions.Add(store.Session{
		Query:         query,
		QueuedCount:   queued,
		Announcements: announced,
		CreatedAt:     time.Now(),
	})
}
