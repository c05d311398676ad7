package dentalchart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Metrics receives chart lifecycle events.
type Metrics interface {
	ChartSaved(dentition string, created bool)
	ChartDeleted()
	ToothEdited(op string)
}

type noopMetrics struct{}

func (noopMetrics) ChartSaved(string, bool) {}
func (noopMetrics) ChartDeleted()           {}
func (noopMetrics) ToothEdited(string)      {}

// Service owns the load/save round trip of chart documents. Saves replace
// the whole document and are last-writer-wins: Version is bumped on every
// save but never compared.
type Service struct {
	repo    ChartRepository
	adapter *Adapter
	metrics Metrics
	logger  zerolog.Logger
}

func NewService(repo ChartRepository, logger zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		adapter: NewAdapter(),
		metrics: noopMetrics{},
		logger:  logger.With().Str("component", "dentalchart").Logger(),
	}
}

// SetAdapter replaces the adapter, mainly to pin the clock in tests.
func (s *Service) SetAdapter(a *Adapter) { s.adapter = a }

// SetMetrics installs a metrics sink.
func (s *Service) SetMetrics(m Metrics) {
	if m == nil {
		m = noopMetrics{}
	}
	s.metrics = m
}

// GetChart returns a chart by id.
func (s *Service) GetChart(ctx context.Context, id uuid.UUID) (*ChartDocument, error) {
	return s.repo.GetByID(ctx, id)
}

// GetPatientChart returns the patient's chart for one dentition, or ErrNotFound.
func (s *Service) GetPatientChart(ctx context.Context, patientID uuid.UUID, isChild bool) (*ChartDocument, error) {
	if patientID == uuid.Nil {
		return nil, fmt.Errorf("%w: patient id is required", ErrValidation)
	}
	return s.repo.GetByPatient(ctx, patientID, isChild)
}

// ListPatientCharts returns every chart of a patient (at most one per dentition).
func (s *Service) ListPatientCharts(ctx context.Context, patientID uuid.UUID) ([]*ChartDocument, error) {
	if patientID == uuid.Nil {
		return nil, fmt.Errorf("%w: patient id is required", ErrValidation)
	}
	return s.repo.ListByPatient(ctx, patientID)
}

// ListCharts pages through all charts of the tenant.
func (s *Service) ListCharts(ctx context.Context, limit, offset int) ([]*ChartDocument, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// SaveChart stores a submitted document as the patient's chart for its
// dentition, creating it on first save. The submitted document passes
// through Load (defaults) and Save (validation, notes) before it is written.
func (s *Service) SaveChart(ctx context.Context, patientID uuid.UUID, doc *ChartDocument, user string) (*ChartDocument, bool, error) {
	if patientID == uuid.Nil {
		return nil, false, fmt.Errorf("%w: patient id is required", ErrValidation)
	}
	if doc == nil {
		return nil, false, fmt.Errorf("%w: empty chart", ErrMalformedDocument)
	}
	doc.PatientID = patientID
	state, err := s.adapter.Load(doc)
	if err != nil {
		return nil, false, err
	}
	return s.persist(ctx, state, user)
}

// EditTooth applies fn to the patient's chart, starting a new chart when
// none exists, and saves the result.
func (s *Service) EditTooth(ctx context.Context, patientID uuid.UUID, isChild bool, user, op string, fn func(*ChartState) error) (*ChartDocument, error) {
	if patientID == uuid.Nil {
		return nil, fmt.Errorf("%w: patient id is required", ErrValidation)
	}
	var state *ChartState
	existing, err := s.repo.GetByPatient(ctx, patientID, isChild)
	switch {
	case err == nil:
		if state, err = s.adapter.Load(existing); err != nil {
			return nil, err
		}
	case errors.Is(err, ErrNotFound):
		state = NewChartState(patientID, isChild)
		state.SetClock(s.adapter.Now)
	default:
		return nil, err
	}

	if err := fn(state); err != nil {
		return nil, err
	}
	// New painted layers get their Load defaults before they are stored.
	edited, err := s.adapter.Save(state, user)
	if err != nil {
		return nil, err
	}
	if state, err = s.adapter.Load(edited); err != nil {
		return nil, err
	}
	out, _, err := s.persist(ctx, state, user)
	if err != nil {
		return nil, err
	}
	s.metrics.ToothEdited(op)
	return out, nil
}

func (s *Service) persist(ctx context.Context, state *ChartState, user string) (*ChartDocument, bool, error) {
	out, err := s.adapter.Save(state, user)
	if err != nil {
		return nil, false, err
	}
	now := s.adapter.Now().UTC()
	out.UpdatedAt = now

	existing, err := s.repo.GetByPatient(ctx, out.PatientID, out.IsChild)
	switch {
	case err == nil:
		return s.update(ctx, existing, out)
	case !errors.Is(err, ErrNotFound):
		return nil, false, err
	}

	out.ID = uuid.New()
	out.Version = 1
	out.CreatedAt = now
	out.CreatedBy = user
	if err := s.repo.Create(ctx, out); err != nil {
		if !errors.Is(err, ErrConflict) {
			return nil, false, err
		}
		// Another session created the chart first; last writer wins.
		existing, gerr := s.repo.GetByPatient(ctx, out.PatientID, out.IsChild)
		if gerr != nil {
			return nil, false, gerr
		}
		return s.update(ctx, existing, out)
	}
	s.logger.Info().
		Str("chart_id", out.ID.String()).
		Str("patient_id", out.PatientID.String()).
		Bool("is_child", out.IsChild).
		Int("teeth", len(out.Teeth)).
		Msg("dental chart created")
	s.metrics.ChartSaved(string(out.Dentition()), true)
	return out, true, nil
}

func (s *Service) update(ctx context.Context, existing, out *ChartDocument) (*ChartDocument, bool, error) {
	out.ID = existing.ID
	out.Version = existing.Version + 1
	out.CreatedAt = existing.CreatedAt
	out.CreatedBy = existing.CreatedBy
	if err := s.repo.Update(ctx, out); err != nil {
		return nil, false, err
	}
	s.logger.Info().
		Str("chart_id", out.ID.String()).
		Str("patient_id", out.PatientID.String()).
		Bool("is_child", out.IsChild).
		Int("version", out.Version).
		Msg("dental chart saved")
	s.metrics.ChartSaved(string(out.Dentition()), false)
	return out, false, nil
}

// DeleteChart removes a whole chart document.
func (s *Service) DeleteChart(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("chart_id", id.String()).Msg("dental chart deleted")
	s.metrics.ChartDeleted()
	return nil
}

// Source exposes the service as the viewer's storage collaborator.
func (s *Service) Source() ChartSource { return serviceSource{s} }

type serviceSource struct{ s *Service }

func (src serviceSource) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*ChartDocument, error) {
	return src.s.ListPatientCharts(ctx, patientID)
}

func (src serviceSource) Get(ctx context.Context, id uuid.UUID) (*ChartDocument, error) {
	return src.s.GetChart(ctx, id)
}

func (src serviceSource) Delete(ctx context.Context, id uuid.UUID) error {
	return src.s.DeleteChart(ctx, id)
}
