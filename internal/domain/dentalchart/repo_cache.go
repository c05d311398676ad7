package dentalchart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dentix/dentix/internal/platform/cache"
	"github.com/dentix/dentix/internal/platform/db"
)

// ChartCache is the byte cache used by the caching repository. Get returns
// cache.ErrMiss for absent keys.
type ChartCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type cachedChartRepo struct {
	ChartRepository
	cache  ChartCache
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedChartRepo caches per-patient chart lookups in front of repo.
// Cache failures are logged and fall through to the repository.
func NewCachedChartRepo(repo ChartRepository, c ChartCache, ttl time.Duration, logger zerolog.Logger) ChartRepository {
	return &cachedChartRepo{ChartRepository: repo, cache: c, ttl: ttl, logger: logger}
}

// patientKey is tenant-scoped so clinics never share entries.
func patientKey(ctx context.Context, patientID uuid.UUID, isChild bool) string {
	tenant := db.TenantFromContext(ctx)
	if tenant == "" {
		tenant = "default"
	}
	return fmt.Sprintf("chart:%s:%s:%s", tenant, patientID, DentitionFor(isChild))
}

func (r *cachedChartRepo) GetByPatient(ctx context.Context, patientID uuid.UUID, isChild bool) (*ChartDocument, error) {
	key := patientKey(ctx, patientID, isChild)
	raw, err := r.cache.Get(ctx, key)
	switch {
	case err == nil:
		if d, perr := ParseChartDocument(raw); perr == nil {
			return d, nil
		}
		r.logger.Warn().Str("key", key).Msg("discarding unreadable cached chart")
	case !errors.Is(err, cache.ErrMiss):
		r.logger.Warn().Err(err).Str("key", key).Msg("chart cache read failed")
	}

	d, err := r.ChartRepository.GetByPatient(ctx, patientID, isChild)
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, d)
	return d, nil
}

func (r *cachedChartRepo) Create(ctx context.Context, d *ChartDocument) error {
	if err := r.ChartRepository.Create(ctx, d); err != nil {
		return err
	}
	r.invalidate(ctx, d.PatientID, d.IsChild)
	return nil
}

func (r *cachedChartRepo) Update(ctx context.Context, d *ChartDocument) error {
	if err := r.ChartRepository.Update(ctx, d); err != nil {
		return err
	}
	r.invalidate(ctx, d.PatientID, d.IsChild)
	return nil
}

func (r *cachedChartRepo) Delete(ctx context.Context, id uuid.UUID) error {
	d, err := r.ChartRepository.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.ChartRepository.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, d.PatientID, d.IsChild)
	return nil
}

func (r *cachedChartRepo) store(ctx context.Context, key string, d *ChartDocument) {
	raw, err := json.Marshal(d)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key, raw, r.ttl); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("chart cache write failed")
	}
}

func (r *cachedChartRepo) invalidate(ctx context.Context, patientID uuid.UUID, isChild bool) {
	key := patientKey(ctx, patientID, isChild)
	if err := r.cache.Delete(ctx, key); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("chart cache invalidation failed")
	}
}
