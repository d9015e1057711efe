package domain

import "time"

// PageKey identifies a content page, usually the blog or project slug
type PageKey string

// Fingerprint is the hex digest standing in for a visitor's address
type Fingerprint string

// ViewRecord is the persisted value for a PageKey.
// SeenFingerprints holds every fingerprint that has been counted, each once.
type ViewRecord struct {
	Views            int64         `json:"views"`
	SeenFingerprints []Fingerprint `json:"hashedIps"`
}

// NewViewRecord returns the record written on a page's first view
func NewViewRecord(fp Fingerprint) *ViewRecord {
	return &ViewRecord{
		Views:            1,
		SeenFingerprints: []Fingerprint{fp},
	}
}

// HasSeen reports whether fp has already been counted for this page
func (r *ViewRecord) HasSeen(fp Fingerprint) bool {
	for _, seen := range r.SeenFingerprints {
		if seen == fp {
			return true
		}
	}
	return false
}

// WithVisitor returns a copy of the record with fp counted. The receiver is
// left untouched so a failed write never leaves a half-updated record behind.
func (r *ViewRecord) WithVisitor(fp Fingerprint) *ViewRecord {
	seen := make([]Fingerprint, len(r.SeenFingerprints), len(r.SeenFingerprints)+1)
	copy(seen, r.SeenFingerprints)

	return &ViewRecord{
		Views:            r.Views + 1,
		SeenFingerprints: append(seen, fp),
	}
}

// PageViews is one row of the admin listing
type PageViews struct {
	Slug           PageKey `json:"slug"`
	Views          int64   `json:"views"`
	UniqueVisitors int     `json:"unique_visitors"`
}

// SnapshotResult summarizes one snapshot or restore pass
type SnapshotResult struct {
	Pages      int           `json:"pages"`
	Duration   time.Duration `json:"duration"`
	FinishedAt time.Time     `json:"finished_at"`
}
