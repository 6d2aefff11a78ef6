package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/hyperjump/sumika/internal/models"
	"go.uber.org/zap"
)

// Index is an in-process catalog backed by a Bleve index over a JSON property
// file. It stands in for the remote catalog service in single-node
// deployments and in tests; the index lives in memory and is rebuilt on
// Reload.
type Index struct {
	mu     sync.RWMutex
	index  bleve.Index
	byID   map[string]*models.PropertyRecord
	order  []string
	logger *zap.Logger
}

// IndexOption configures an Index.
type IndexOption func(*Index)

// WithIndexLogger sets a logger for load and reload events.
func WithIndexLogger(l *zap.Logger) IndexOption {
	return func(i *Index) { i.logger = l }
}

// NewIndex loads property records from a JSON file and indexes them.
func NewIndex(dataPath string, opts ...IndexOption) (*Index, error) {
	records, err := loadRecords(dataPath)
	if err != nil {
		return nil, err
	}
	return NewIndexFromRecords(records, opts...)
}

// NewIndexFromRecords indexes an already-loaded record set. Record order is
// preserved as the relevance baseline for empty free-text lookups.
func NewIndexFromRecords(records []*models.PropertyRecord, opts ...IndexOption) (*Index, error) {
	i := &Index{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(i)
	}
	if err := i.rebuild(records); err != nil {
		return nil, err
	}
	return i, nil
}

// indexMapping maps the searchable text fields with the standard analyzer
// (lowercase + tokenize, no stemming) so place names match exactly as typed.
func indexMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("title", textFieldMapping)
	docMapping.AddFieldMappingsAt("city", textFieldMapping)
	docMapping.AddFieldMappingsAt("state", textFieldMapping)
	im.AddDocumentMapping("property", docMapping)
	im.DefaultType = "property"
	im.DefaultMapping = docMapping
	return im
}

func (i *Index) rebuild(records []*models.PropertyRecord) error {
	index, err := bleve.NewMemOnly(indexMapping())
	if err != nil {
		return fmt.Errorf("failed to create catalog index: %w", err)
	}
	byID := make(map[string]*models.PropertyRecord, len(records))
	order := make([]string, 0, len(records))
	batch := index.NewBatch()
	for _, r := range records {
		if err := batch.Index(r.ID, map[string]string{
			"title": r.Title,
			"city":  r.City,
			"state": r.State,
		}); err != nil {
			_ = index.Close()
			return fmt.Errorf("failed to index property %s: %w", r.ID, err)
		}
		byID[r.ID] = r
		order = append(order, r.ID)
	}
	if err := index.Batch(batch); err != nil {
		_ = index.Close()
		return fmt.Errorf("failed to commit catalog batch: %w", err)
	}

	i.mu.Lock()
	old := i.index
	i.index = index
	i.byID = byID
	i.order = order
	i.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	i.logger.Info("catalog indexed", zap.Int("properties", len(records)))
	return nil
}

// Reload replaces the catalog contents from the data file.
func (i *Index) Reload(dataPath string) error {
	records, err := loadRecords(dataPath)
	if err != nil {
		return err
	}
	return i.rebuild(records)
}

// Size returns the number of indexed properties.
func (i *Index) Size() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.order)
}

// Search resolves the coarse lookup. Empty free text yields the full catalog
// in stored order; otherwise candidates come back in Bleve score order.
// Location and guest count narrow the set here; the stay window is accepted
// but not constrained, since availability is resolved upstream of the records.
func (i *Index) Search(ctx context.Context, req models.LookupRequest) (*models.LookupResult, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	var candidates []*models.PropertyRecord
	if strings.TrimSpace(req.FreeText) == "" {
		candidates = make([]*models.PropertyRecord, 0, len(i.order))
		for _, id := range i.order {
			candidates = append(candidates, i.byID[id])
		}
	} else {
		search := bleve.NewSearchRequest(bleve.NewMatchQuery(req.FreeText))
		search.Size = len(i.order)
		res, err := i.index.SearchInContext(ctx, search)
		if err != nil {
			return nil, fmt.Errorf("catalog search failed: %w", err)
		}
		candidates = make([]*models.PropertyRecord, 0, len(res.Hits))
		for _, hit := range res.Hits {
			if r, ok := i.byID[hit.ID]; ok {
				candidates = append(candidates, r)
			}
		}
	}

	candidates = coarseNarrow(candidates, req)
	total := len(candidates)
	return &models.LookupResult{
		Candidates: pageSlice(candidates, req.Page, req.PageSize),
		TotalCount: total,
	}, nil
}

// coarseNarrow applies the remote-forwarded facets that records can answer.
func coarseNarrow(candidates []*models.PropertyRecord, req models.LookupRequest) []*models.PropertyRecord {
	needle := strings.ToLower(strings.TrimSpace(req.Location))
	out := make([]*models.PropertyRecord, 0, len(candidates))
	for _, r := range candidates {
		if req.Guests > 0 && r.Capacity < req.Guests {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(r.City), needle) &&
			!strings.Contains(strings.ToLower(r.State), needle) &&
			!strings.Contains(strings.ToLower(r.Title), needle) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func pageSlice(candidates []*models.PropertyRecord, page, pageSize int) []*models.PropertyRecord {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		return candidates
	}
	start := (page - 1) * pageSize
	if start >= len(candidates) {
		return []*models.PropertyRecord{}
	}
	end := start + pageSize
	if end > len(candidates) {
		end = len(candidates)
	}
	return candidates[start:end]
}

// Close releases the underlying index.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.index != nil {
		return i.index.Close()
	}
	return nil
}

func loadRecords(dataPath string) ([]*models.PropertyRecord, error) {
	data, err := os.ReadFile(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog data: %w", err)
	}
	var records []*models.PropertyRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse catalog data: %w", err)
	}
	return records, nil
}
