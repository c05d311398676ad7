package dentalchart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/couchbase/gocb/v2"
	"github.com/google/uuid"

	"github.com/dentix/dentix/internal/platform/docstore"
)

type chartRepoCouchbase struct {
	cluster    *gocb.Cluster
	collection *gocb.Collection
	keyspace   string
}

// NewChartRepoCouchbase stores one document per (patient, dentition). The
// document key encodes both, so a second chart for the pair cannot exist.
func NewChartRepoCouchbase(store *docstore.Store) ChartRepository {
	return &chartRepoCouchbase{
		cluster:    store.Cluster(),
		collection: store.Collection(),
		keyspace:   store.Keyspace(),
	}
}

// chartKey is the document key of a patient's chart.
func chartKey(patientID uuid.UUID, isChild bool) string {
	return fmt.Sprintf("dental_chart::%s::%s", patientID, DentitionFor(isChild))
}

func (r *chartRepoCouchbase) Create(ctx context.Context, d *ChartDocument) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	_, err := r.collection.Insert(chartKey(d.PatientID, d.IsChild), d, &gocb.InsertOptions{Context: ctx})
	if err != nil {
		if errors.Is(err, gocb.ErrDocumentExists) {
			return fmt.Errorf("%w: patient %s %s chart", ErrConflict, d.PatientID, d.Dentition())
		}
		return transportErr("insert chart document", err)
	}
	return nil
}

func (r *chartRepoCouchbase) GetByID(ctx context.Context, id uuid.UUID) (*ChartDocument, error) {
	docs, err := r.query(ctx,
		"SELECT RAW c FROM "+r.keyspace+" c WHERE c.id = $id LIMIT 1",
		map[string]interface{}{"id": id.String()})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return docs[0], nil
}

func (r *chartRepoCouchbase) GetByPatient(ctx context.Context, patientID uuid.UUID, isChild bool) (*ChartDocument, error) {
	res, err := r.collection.Get(chartKey(patientID, isChild), &gocb.GetOptions{Context: ctx})
	if err != nil {
		if errors.Is(err, gocb.ErrDocumentNotFound) {
			return nil, ErrNotFound
		}
		return nil, transportErr("get chart document", err)
	}
	var raw json.RawMessage
	if err := res.Content(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return ParseChartDocument(raw)
}

func (r *chartRepoCouchbase) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*ChartDocument, error) {
	var out []*ChartDocument
	for _, isChild := range []bool{false, true} {
		d, err := r.GetByPatient(ctx, patientID, isChild)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (r *chartRepoCouchbase) Update(ctx context.Context, d *ChartDocument) error {
	_, err := r.collection.Replace(chartKey(d.PatientID, d.IsChild), d, &gocb.ReplaceOptions{Context: ctx})
	if err != nil {
		if errors.Is(err, gocb.ErrDocumentNotFound) {
			return ErrNotFound
		}
		return transportErr("replace chart document", err)
	}
	return nil
}

func (r *chartRepoCouchbase) Delete(ctx context.Context, id uuid.UUID) error {
	d, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	_, err = r.collection.Remove(chartKey(d.PatientID, d.IsChild), &gocb.RemoveOptions{Context: ctx})
	if err != nil {
		if errors.Is(err, gocb.ErrDocumentNotFound) {
			return ErrNotFound
		}
		return transportErr("remove chart document", err)
	}
	return nil
}

func (r *chartRepoCouchbase) List(ctx context.Context, limit, offset int) ([]*ChartDocument, int, error) {
	countRes, err := r.cluster.Query(
		"SELECT RAW COUNT(*) FROM "+r.keyspace+" c WHERE c.patientId IS VALUED",
		&gocb.QueryOptions{Context: ctx, ScanConsistency: gocb.QueryScanConsistencyRequestPlus})
	if err != nil {
		return nil, 0, transportErr("count chart documents", err)
	}
	var total int
	if err := countRes.One(&total); err != nil {
		return nil, 0, transportErr("count chart documents", err)
	}

	docs, err := r.query(ctx,
		"SELECT RAW c FROM "+r.keyspace+" c WHERE c.patientId IS VALUED ORDER BY c.updatedAt DESC LIMIT $limit OFFSET $offset",
		map[string]interface{}{"limit": limit, "offset": offset})
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

func (r *chartRepoCouchbase) query(ctx context.Context, stmt string, params map[string]interface{}) ([]*ChartDocument, error) {
	rows, err := r.cluster.Query(stmt, &gocb.QueryOptions{
		Context:         ctx,
		NamedParameters: params,
		ScanConsistency: gocb.QueryScanConsistencyRequestPlus,
	})
	if err != nil {
		return nil, transportErr("query chart documents", err)
	}
	defer rows.Close()

	var out []*ChartDocument
	for rows.Next() {
		var raw json.RawMessage
		if err := rows.Row(&raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		}
		d, err := ParseChartDocument(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, transportErr("read chart documents", err)
	}
	return out, nil
}
