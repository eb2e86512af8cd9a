package reports

import (
	"context"
	"sync"
	"time"

	"github.com/leozw/wp-maintenance/internal/db"
)

// fakeStore is an in-memory Store. Rows carry their owner so that reads are
// scoped the same way the SQL repository scopes them.
type fakeStore struct {
	mu sync.Mutex

	websites map[int64]*db.Website
	clients  map[int64]*db.Client
	reports  map[int64]*db.MaintenanceReport
	perf     []*db.PerformanceScan
	security []*db.SecurityScan
	updates  []*db.UpdateLog

	errs  map[string]error
	delay map[string]time.Duration
	panic map[string]bool
	calls map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		websites: map[int64]*db.Website{},
		clients:  map[int64]*db.Client{},
		reports:  map[int64]*db.MaintenanceReport{},
		errs:     map[string]error{},
		delay:    map[string]time.Duration{},
		panic:    map[string]bool{},
		calls:    map[string]int{},
	}
}

func (f *fakeStore) enter(ctx context.Context, method string) error {
	f.mu.Lock()
	f.calls[method]++
	err := f.errs[method]
	d := f.delay[method]
	p := f.panic[method]
	f.mu.Unlock()

	if p {
		panic("malformed row in " + method)
	}
	if d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeStore) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeStore) ownsWebsite(websiteID, userID int64) bool {
	w, ok := f.websites[websiteID]
	return ok && w.OwnerUserID == userID
}

func (f *fakeStore) GetWebsite(ctx context.Context, id, userID int64) (*db.Website, error) {
	if err := f.enter(ctx, "GetWebsite"); err != nil {
		return nil, err
	}
	w, ok := f.websites[id]
	if !ok || w.OwnerUserID != userID {
		return nil, db.ErrNotFound
	}
	return w, nil
}

func (f *fakeStore) GetClient(ctx context.Context, id, userID int64) (*db.Client, error) {
	if err := f.enter(ctx, "GetClient"); err != nil {
		return nil, err
	}
	c, ok := f.clients[id]
	if !ok || c.OwnerUserID != userID {
		return nil, db.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) GetMaintenanceReport(ctx context.Context, id, userID int64) (*db.MaintenanceReport, error) {
	if err := f.enter(ctx, "GetMaintenanceReport"); err != nil {
		return nil, err
	}
	r, ok := f.reports[id]
	if !ok || r.OwnerUserID != userID {
		return nil, db.ErrNotFound
	}
	return r, nil
}

func (f *fakeStore) GetPerformanceScans(ctx context.Context, websiteID, userID int64, limit int) ([]*db.PerformanceScan, error) {
	if err := f.enter(ctx, "GetPerformanceScans"); err != nil {
		return nil, err
	}
	out := []*db.PerformanceScan{}
	if !f.ownsWebsite(websiteID, userID) {
		return out, nil
	}
	for _, s := range f.perf {
		if s.WebsiteID == websiteID && len(out) < limit {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) GetSecurityScans(ctx context.Context, websiteID, userID int64, limit int) ([]*db.SecurityScan, error) {
	if err := f.enter(ctx, "GetSecurityScans"); err != nil {
		return nil, err
	}
	out := []*db.SecurityScan{}
	if !f.ownsWebsite(websiteID, userID) {
		return out, nil
	}
	for _, s := range f.security {
		if s.WebsiteID == websiteID && len(out) < limit {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) GetUpdateLogs(ctx context.Context, websiteID, userID int64, limit int) ([]*db.UpdateLog, error) {
	if err := f.enter(ctx, "GetUpdateLogs"); err != nil {
		return nil, err
	}
	out := []*db.UpdateLog{}
	if !f.ownsWebsite(websiteID, userID) {
		return out, nil
	}
	for _, l := range f.updates {
		if l.WebsiteID == websiteID && len(out) < limit {
			out = append(out, l)
		}
	}
	return out, nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type recordingRecorder struct {
	mu       sync.Mutex
	outcomes []string
	degraded []string
}

func (r *recordingRecorder) ObserveAssembly(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recordingRecorder) IncDegradedSource(source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.degraded = append(r.degraded, source)
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func int64Ptr(i int64) *int64 { return &i }

func floatPtr(f float64) *float64 { return &f }

func timePtr(t time.Time) *time.Time { return &t }
