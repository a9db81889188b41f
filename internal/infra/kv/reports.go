package kv

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"reading-assessment-service/internal/domain"
)

const (
	reportPrefix = "report_"
	// DefaultMaxSharedReports caps how many shared reports are retained.
	DefaultMaxSharedReports = 20
	// DefaultReportExpiry is advertised on shared reports but not enforced.
	DefaultReportExpiry = 30 * 24 * time.Hour
)

// Reports stores shared report snapshots, one key per report, plus a
// newest-first index under sharedReports.
type Reports struct {
	store  Store
	log    *logrus.Logger
	max    int
	expiry time.Duration
	newID  func() string

	mu sync.Mutex
}

func NewReports(store Store, log *logrus.Logger, max int, expiry time.Duration) *Reports {
	if max <= 0 {
		max = DefaultMaxSharedReports
	}
	if expiry <= 0 {
		expiry = DefaultReportExpiry
	}
	return &Reports{
		store:  store,
		log:    orStandard(log),
		max:    max,
		expiry: expiry,
		newID: func() string {
			return reportPrefix + uuid.NewString()
		},
	}
}

// Save stores a snapshot of report. When the index grows past the cap the
// oldest reports are purged in the same commit.
func (r *Reports) Save(ctx context.Context, report domain.Report, createdAt time.Time) (domain.SharedReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	index, err := r.loadIndex(ctx)
	if err != nil {
		return domain.SharedReport{}, err
	}

	shared := domain.SharedReport{
		ID:        r.newID(),
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(r.expiry),
		Report:    report,
	}
	index = append([]domain.SharedReportSummary{{
		ID:          shared.ID,
		StudentName: report.StudentName,
		BookInfo:    report.BookInfo(),
		Date:        createdAt.Format("2006-01-02"),
	}}, index...)

	var purge []string
	if len(index) > r.max {
		for _, old := range index[r.max:] {
			purge = append(purge, old.ID)
		}
		index = index[:r.max]
	}

	reportJSON, err := encode(shared.ID, shared)
	if err != nil {
		return domain.SharedReport{}, err
	}
	indexJSON, err := encode(KeySharedReports, index)
	if err != nil {
		return domain.SharedReport{}, err
	}
	if err := r.store.Commit(ctx, map[string]string{
		shared.ID:        reportJSON,
		KeySharedReports: indexJSON,
	}, purge); err != nil {
		return domain.SharedReport{}, err
	}
	if len(purge) > 0 {
		r.log.WithField("purged", len(purge)).Info("purged old shared reports")
	}
	return shared, nil
}

// Get loads a shared report by its opaque id.
func (r *Reports) Get(ctx context.Context, id string) (domain.SharedReport, error) {
	if !strings.HasPrefix(id, reportPrefix) {
		return domain.SharedReport{}, domain.ErrReportNotFound
	}
	raw, ok, err := r.store.GetItem(ctx, id)
	if err != nil {
		return domain.SharedReport{}, err
	}
	if !ok {
		return domain.SharedReport{}, domain.ErrReportNotFound
	}
	var shared domain.SharedReport
	if err := json.Unmarshal([]byte(raw), &shared); err != nil {
		r.log.WithError(err).WithField("report", id).Warn("malformed shared report")
		return domain.SharedReport{}, domain.ErrReportNotFound
	}
	return shared, nil
}

// List returns the index, newest first.
func (r *Reports) List(ctx context.Context) ([]domain.SharedReportSummary, error) {
	return r.loadIndex(ctx)
}

func (r *Reports) loadIndex(ctx context.Context) ([]domain.SharedReportSummary, error) {
	var index []domain.SharedReportSummary
	ok, err := loadJSON(ctx, r.store, r.log, KeySharedReports, &index)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []domain.SharedReportSummary{}, nil
	}
	return index, nil
}
