package firmware

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// KVStore is the generic key-value surface records are kept in.
type KVStore interface {
	GetData(ctx context.Context, key string) ([]byte, error)
	SetData(ctx context.Context, key string, value []byte) error
	IsAvailable(ctx context.Context) bool
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Registry manages firmware records in a KVStore. Writes are not atomic across keys: an
// upload writes the blob and then the index.
type Registry struct {
	kv     KVStore
	logger zerolog.Logger
	now    func() time.Time

	// serializes index read-modify-write
	mu sync.Mutex
}

// NewRegistry creates a registry over kv.
func NewRegistry(kv KVStore, logger zerolog.Logger) *Registry {
	return &Registry{
		kv:     kv,
		logger: logger.With().Str("component", "firmware_registry").Logger(),
		now:    time.Now,
	}
}

// IsAvailable reports whether the backing store accepts requests.
func (r *Registry) IsAvailable(ctx context.Context) bool {
	return r.kv.IsAvailable(ctx)
}

// Upload stores a new pending record and appends it to the index.
func (r *Registry) Upload(ctx context.Context, req UploadRequest) (Record, error) {
	if !r.kv.IsAvailable(ctx) {
		return Record{}, ErrUnavailable
	}

	now := r.now().Unix()
	rec := Record{
		SchemaVersion: SchemaVersion,
		ID:            uuid.NewString(),
		Name:          strings.TrimSpace(req.Name),
		Ecu:           strings.TrimSpace(req.Ecu),
		Version:       strings.TrimSpace(req.Version),
		ImageHash:     strings.TrimSpace(req.ImageHash),
		Uploader:      strings.TrimSpace(req.Uploader),
		Status:        StatusPending,
		Timestamp:     now,
		UpdatedAt:     now,
	}
	if err := rec.Validate(); err != nil {
		return Record{}, errors.Wrap(ErrInvalidUpload, err.Error())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ids, err := r.loadIndex(ctx)
	if err != nil {
		return Record{}, err
	}

	if err := r.writeRecord(ctx, rec); err != nil {
		return Record{}, err
	}

	index, err := json.Marshal(append(ids, rec.ID))
	if err != nil {
		return Record{}, errors.Wrap(err, "failed to encode index")
	}
	if err := r.kv.SetData(ctx, IndexKey, index); err != nil {
		return Record{}, errors.Wrap(err, "failed to write index")
	}

	r.logger.Info().Str("id", rec.ID).Str("ecu", rec.Ecu).Str("version", rec.Version).Msg("firmware uploaded")
	return rec, nil
}

// MarkVerified moves a pending record to verified.
func (r *Registry) MarkVerified(ctx context.Context, id string) (Record, error) {
	return r.transition(ctx, id, StatusVerified)
}

// MarkRejected moves a pending record to rejected.
func (r *Registry) MarkRejected(ctx context.Context, id string) (Record, error) {
	return r.transition(ctx, id, StatusRejected)
}

func (r *Registry) transition(ctx context.Context, id string, to Status) (Record, error) {
	if !r.kv.IsAvailable(ctx) {
		return Record{}, ErrUnavailable
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if rec.Status != StatusPending {
		return Record{}, errors.Wrapf(ErrInvalidTransition, "%s -> %s", rec.Status, to)
	}

	rec.Status = to
	rec.UpdatedAt = max(r.now().Unix(), rec.Timestamp)
	if err := r.writeRecord(ctx, rec); err != nil {
		return Record{}, err
	}

	r.logger.Info().Str("id", id).Str("status", string(to)).Msg("firmware status changed")
	return rec, nil
}

// Get loads one record.
func (r *Registry) Get(ctx context.Context, id string) (Record, error) {
	bz, err := r.kv.GetData(ctx, RecordKey(id))
	if err != nil {
		return Record{}, errors.Wrapf(err, "failed to read record %s", id)
	}
	if len(bz) == 0 {
		return Record{}, errors.Wrap(ErrNotFound, id)
	}
	return ParseRecord(bz)
}

// Filter selects and paginates records. Page is 1-based.
type Filter struct {
	Status   Status
	Query    string
	Page     int
	PageSize int
}

// Page is one page of records, newest first.
type Page struct {
	Records    []Record `json:"records"`
	Total      int      `json:"total"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
	TotalPages int      `json:"total_pages"`
	// Skipped counts index entries whose blob was missing or malformed.
	Skipped int `json:"skipped"`
}

// List loads every indexed record, skipping blobs that fail to parse, then filters and
// paginates the rest sorted by descending timestamp.
func (r *Registry) List(ctx context.Context, f Filter) (Page, error) {
	records, skipped, err := r.loadAll(ctx)
	if err != nil {
		return Page{}, err
	}

	matched := lo.Filter(records, func(rec Record, _ int) bool {
		return (f.Status == "" || rec.Status == f.Status) && rec.matches(f.Query)
	})

	size := f.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	size = min(size, MaxPageSize)
	page := max(f.Page, 1)

	return Page{
		Records:    lo.Subset(matched, (page-1)*size, uint(size)),
		Total:      len(matched),
		Page:       page,
		PageSize:   size,
		TotalPages: (len(matched) + size - 1) / size,
		Skipped:    skipped,
	}, nil
}

// Stats summarizes the registry.
type Stats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Verified int `json:"verified"`
	Rejected int `json:"rejected"`
	Skipped  int `json:"skipped"`
}

// Stats counts records per status.
func (r *Registry) Stats(ctx context.Context) (Stats, error) {
	records, skipped, err := r.loadAll(ctx)
	if err != nil {
		return Stats{}, err
	}
	count := func(status Status) int {
		return lo.CountBy(records, func(rec Record) bool { return rec.Status == status })
	}
	return Stats{
		Total:    len(records),
		Pending:  count(StatusPending),
		Verified: count(StatusVerified),
		Rejected: count(StatusRejected),
		Skipped:  skipped,
	}, nil
}

func (r *Registry) loadAll(ctx context.Context) ([]Record, int, error) {
	ids, err := r.loadIndex(ctx)
	if err != nil {
		return nil, 0, err
	}

	records := make([]Record, 0, len(ids))
	skipped := 0
	for _, id := range lo.Uniq(ids) {
		rec, err := r.Get(ctx, id)
		if err != nil {
			if errors.Is(err, ErrMalformedRecord) || errors.Is(err, ErrNotFound) {
				r.logger.Warn().Err(err).Str("id", id).Msg("skipping unreadable firmware record")
				skipped++
				continue
			}
			return nil, 0, err
		}
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp > records[j].Timestamp
	})
	return records, skipped, nil
}

func (r *Registry) loadIndex(ctx context.Context) ([]string, error) {
	bz, err := r.kv.GetData(ctx, IndexKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read index")
	}
	return parseIndex(bz)
}

func (r *Registry) writeRecord(ctx context.Context, rec Record) error {
	bz, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "failed to encode record")
	}
	if err := r.kv.SetData(ctx, RecordKey(rec.ID), bz); err != nil {
		return errors.Wrapf(err, "failed to write record %s", rec.ID)
	}
	return nil
}
