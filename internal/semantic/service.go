// Package semantic is the note index: it embeds note text, keeps the vectors
// in an approximate nearest-neighbor index and persists them.
//
// Index ids are store positions. Adding a note inserts one vector at the next
// position; removing notes rebuilds the whole index from the surviving
// records. Every operation runs under one mutex, so the position/id coupling
// holds under concurrent callers.
package semantic

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/pad/internal/config"
	"github.com/hyperjump/pad/internal/embedding"
	"github.com/hyperjump/pad/internal/store"
	"github.com/hyperjump/pad/internal/vector"
	"github.com/hyperjump/pad/pkg/utils"
)

// unitTolerance is how far a loaded vector's norm may drift from 1 before it
// is treated as un-normalized data from an older store.
const unitTolerance = 1e-4

// Result is one search hit.
type Result struct {
	Text     string  `json:"text"`
	Distance float32 `json:"distance"`
	// Position is the record's position in the store at query time.
	Position int `json:"position"`
}

// Status describes the loaded index.
type Status struct {
	Records    int    `json:"records"`
	Dimensions int    `json:"dimensions"`
	Metric     string `json:"metric"`
	IndexType  string `json:"index_type"`
	StorePath  string `json:"store_path"`
}

// Service owns the store and the index built over it.
type Service struct {
	mu       sync.Mutex
	embedder embedding.Embedder
	store    *store.Store
	index    vector.Index
	indexCfg config.IndexConfig
	metric   vector.Metric
	dims     int
	logger   *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger for the service.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		s.logger = utils.LoggerOrNop(l)
	}
}

// WithIndexConfig sets the index type, metric and construction parameters.
// Zero fields keep their defaults.
func WithIndexConfig(cfg config.IndexConfig) Option {
	return func(s *Service) {
		s.indexCfg = mergeIndexConfig(s.indexCfg, cfg)
	}
}

// DefaultIndexConfig returns the fixed note-index parameters.
func DefaultIndexConfig() config.IndexConfig {
	return config.IndexConfig{
		Type:           string(vector.IndexTypeHNSW),
		Metric:         string(vector.MetricCosine),
		MaxConnections: vector.DefaultMaxConnections,
		MaxLayers:      vector.DefaultMaxLayers,
		MinMaxElements: vector.MinMaxElements,
		EfConstruction: vector.DefaultEfConstruction,
		EfSearch:       vector.DefaultEfConstruction,
	}
}

func mergeIndexConfig(base, over config.IndexConfig) config.IndexConfig {
	if over.Type != "" {
		base.Type = over.Type
	}
	if over.Metric != "" {
		base.Metric = over.Metric
	}
	if over.MaxConnections > 0 {
		base.MaxConnections = over.MaxConnections
	}
	if over.MaxLayers > 0 {
		base.MaxLayers = over.MaxLayers
	}
	if over.MinMaxElements > 0 {
		base.MinMaxElements = over.MinMaxElements
	}
	if over.EfConstruction > 0 {
		base.EfConstruction = over.EfConstruction
	}
	if over.EfSearch > 0 {
		base.EfSearch = over.EfSearch
	}
	base.Seed = over.Seed
	return base
}

// Open builds the embedder and store described by cfg and returns a loaded
// service. Provider construction failures wrap ErrProviderInit.
func Open(cfg *config.Config, opts ...Option) (*Service, error) {
	emb, err := embedding.New(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderInit, err)
	}
	persister, err := store.NewPersister(cfg.Notes.Backend, cfg.Notes.Codec, cfg.Notes.StorePath())
	if err != nil {
		_ = emb.Close()
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	opts = append([]Option{WithIndexConfig(cfg.Index)}, opts...)
	svc, err := New(emb, store.New(persister), opts...)
	if err != nil {
		_ = emb.Close()
		_ = persister.Close()
		return nil, err
	}
	return svc, nil
}

// New loads st and builds the index over it. The service takes ownership of
// both the embedder and the store.
func New(emb embedding.Embedder, st *store.Store, opts ...Option) (*Service, error) {
	if emb == nil {
		return nil, fmt.Errorf("%w: nil embedder", ErrProviderInit)
	}
	s := &Service{
		embedder: emb,
		store:    st,
		indexCfg: DefaultIndexConfig(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	metric, err := vector.ParseMetric(s.indexCfg.Metric)
	if err != nil {
		return nil, err
	}
	s.metric = metric

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// load reads the store and replaces the index. Callers hold s.mu or have
// exclusive access.
func (s *Service) load() error {
	snapshot := s.store.Snapshot()
	if err := s.store.Load(); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	dims := s.store.Dimensions()
	if dims == 0 {
		dims = s.embedder.Dimensions()
	} else if ed := s.embedder.Dimensions(); ed > 0 && ed != dims {
		s.store.Restore(snapshot)
		return fmt.Errorf("%w: store %s has %d dimensions, embedder produces %d",
			ErrDimensionMismatch, s.store.Path(), dims, ed)
	}
	if dims <= 0 {
		s.store.Restore(snapshot)
		return fmt.Errorf("%w: embedder reports %d dimensions", ErrProviderInit, dims)
	}

	if n := s.normalizeLoaded(); n > 0 {
		s.logger.Info("normalized stored embeddings", zap.Int("records", n))
	}

	idx, err := s.buildIndex(dims, s.store.Records())
	if err != nil {
		s.store.Restore(snapshot)
		return err
	}
	s.index = idx
	s.dims = dims
	s.logger.Info("store loaded",
		zap.String("path", s.store.Path()),
		zap.Int("records", s.store.Len()),
		zap.Int("dimensions", dims))
	return nil
}

// normalizeLoaded normalizes records that are not unit length and returns how
// many were changed.
func (s *Service) normalizeLoaded() int {
	changed := 0
	for _, r := range s.store.Records() {
		norm := utils.L2Norm(r.Embedding)
		if norm == 0 || math.Abs(norm-1) <= unitTolerance {
			continue
		}
		normalize(r.Embedding)
		changed++
	}
	return changed
}

// normalize is the single place where stored and query vectors are scaled to
// unit length.
func normalize(v []float32) {
	utils.NormalizeL2(v)
}

func (s *Service) params(count int) vector.Params {
	return vector.Params{
		MaxConnections: s.indexCfg.MaxConnections,
		MaxElements:    max(s.indexCfg.MinMaxElements, count),
		MaxLayers:      s.indexCfg.MaxLayers,
		EfConstruction: s.indexCfg.EfConstruction,
		Metric:         s.metric,
		Seed:           s.indexCfg.Seed,
	}
}

// buildIndex constructs a fresh index with record i inserted under id i.
func (s *Service) buildIndex(dims int, records []store.NoteRecord) (vector.Index, error) {
	start := time.Now()
	idx, err := vector.NewIndex(s.indexCfg.Type, dims, s.params(len(records)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndex, err)
	}
	for i, r := range records {
		if err := idx.Insert(r.Embedding, i); err != nil {
			return nil, fmt.Errorf("%w: insert record %d: %w", ErrIndex, i, err)
		}
	}
	s.logger.Debug("index rebuilt",
		zap.String("type", idx.Type()),
		zap.Int("size", idx.Len()),
		zap.Duration("duration", time.Since(start)))
	return idx, nil
}

// embed obtains and normalizes the vector for text.
func (s *Service) embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: provider returned an empty vector", ErrEmbedding)
	}
	normalize(vec)
	return vec, nil
}

func (s *Service) checkDims(vec []float32) error {
	if len(vec) != s.dims {
		return fmt.Errorf("%w: %w: got %d, expected %d", ErrEmbedding, ErrDimensionMismatch, len(vec), s.dims)
	}
	return nil
}

// AddNote embeds text, inserts it at the next position and persists the store.
// If persisting fails the in-memory state is rolled back.
func (s *Service) AddNote(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	vec, err := s.embed(ctx, text)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkDims(vec); err != nil {
		return err
	}
	pos := s.store.Len()
	if s.index.Len() != pos {
		return fmt.Errorf("%w: index holds %d entries, store holds %d", ErrIndex, s.index.Len(), pos)
	}
	if err := s.index.Insert(vec, pos); err != nil {
		return fmt.Errorf("%w: %w", ErrIndex, err)
	}
	if err := s.store.Append(store.NoteRecord{Text: text, Embedding: vec}); err != nil {
		s.rollback(pos)
		return fmt.Errorf("%w: %w", ErrIndex, err)
	}
	if err := s.store.Save(); err != nil {
		s.rollback(pos)
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	s.logger.Info("note added", zap.Int("position", pos), zap.Int("dimensions", len(vec)))
	return nil
}

// AddNotes embeds texts in one batch and appends them in order with a single
// save. Either every note is added or none is.
func (s *Service) AddNotes(ctx context.Context, texts []string) error {
	if len(texts) == 0 {
		return nil
	}
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			return ErrEmptyText
		}
	}
	vecs, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	if len(vecs) != len(texts) {
		return fmt.Errorf("%w: provider returned %d vectors for %d texts", ErrEmbedding, len(vecs), len(texts))
	}
	for _, vec := range vecs {
		if len(vec) == 0 {
			return fmt.Errorf("%w: provider returned an empty vector", ErrEmbedding)
		}
		normalize(vec)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, vec := range vecs {
		if err := s.checkDims(vec); err != nil {
			return err
		}
	}
	start := s.store.Len()
	if s.index.Len() != start {
		return fmt.Errorf("%w: index holds %d entries, store holds %d", ErrIndex, s.index.Len(), start)
	}
	for i, vec := range vecs {
		if err := s.index.Insert(vec, start+i); err != nil {
			s.rollback(start)
			return fmt.Errorf("%w: %w", ErrIndex, err)
		}
		if err := s.store.Append(store.NoteRecord{Text: texts[i], Embedding: vec}); err != nil {
			s.rollback(start)
			return fmt.Errorf("%w: %w", ErrIndex, err)
		}
	}
	if err := s.store.Save(); err != nil {
		s.rollback(start)
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	s.logger.Info("notes added", zap.Int("first_position", start), zap.Int("count", len(texts)))
	return nil
}

// rollback drops records from pos onward and rebuilds the index, since
// indexes cannot delete entries.
func (s *Service) rollback(pos int) {
	s.store.Truncate(pos)
	idx, err := s.buildIndex(s.dims, s.store.Records())
	if err != nil {
		s.logger.Error("rebuild after failed add", zap.Error(err))
		return
	}
	s.index = idx
}

// Search returns up to k notes nearest to query, closest first. k <= 0 and an
// empty store both return no results without calling the embedder.
func (s *Service) Search(ctx context.Context, query string, k int) ([]Result, error) {
	if k <= 0 || s.Size() == 0 {
		return []Result{}, nil
	}
	vec, err := s.embed(ctx, query)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store.Len() == 0 {
		return []Result{}, nil
	}
	if err := s.checkDims(vec); err != nil {
		return nil, err
	}
	hits, err := s.index.Search(vec, k, s.indexCfg.EfSearch)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndex, err)
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		rec, ok := s.store.At(h.ID)
		if !ok {
			return nil, fmt.Errorf("%w: id %d outside store of %d records", ErrIndex, h.ID, s.store.Len())
		}
		results = append(results, Result{Text: rec.Text, Distance: h.Distance, Position: h.ID})
	}
	return results, nil
}

// RemoveNote deletes every note whose text equals text and returns how many
// were removed. Removing an absent note is a no-op and does not rebuild.
func (s *Service) RemoveNote(ctx context.Context, text string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.store.Snapshot()
	removed := s.store.RemoveByText(text)
	if removed == 0 {
		return 0, nil
	}

	idx, err := s.buildIndex(s.dims, s.store.Records())
	if err != nil {
		s.store.Restore(snapshot)
		return 0, err
	}
	if err := s.store.Save(); err != nil {
		s.store.Restore(snapshot)
		return 0, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	s.index = idx

	s.logger.Info("note removed", zap.Int("removed", removed), zap.Int("remaining", s.store.Len()))
	return removed, nil
}

// Reload re-reads the persisted store and rebuilds the index. On failure the
// previous state is kept.
func (s *Service) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Size returns the number of stored notes.
func (s *Service) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Len()
}

// Texts returns the note texts in position order.
func (s *Service) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, s.store.Len())
	for i, r := range s.store.Records() {
		out[i] = r.Text
	}
	return out
}

// Status reports the current index state.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Records:    s.store.Len(),
		Dimensions: s.dims,
		Metric:     string(s.metric),
		IndexType:  s.index.Type(),
		StorePath:  s.store.Path(),
	}
}

// Close releases the embedder and the store.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Join(s.embedder.Close(), s.store.Close())
}
