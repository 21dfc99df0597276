package boltstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"modguard/internal/moderation"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// defaultPageLimit applies when a listing does not specify one.
const defaultPageLimit = 20

// maxPageLimit caps a single listing page.
const maxPageLimit = 100

// ReportStore provides persistent storage for reports and the audit
// trail. BoltDB serializes all update transactions, which gives the
// per-report ordering the status transition requires.
type ReportStore struct {
	db  *bolt.DB
	now func() time.Time
}

// Ensure ReportStore implements the interface at compile time.
var _ moderation.Store = (*ReportStore)(nil)

// createdKey builds an index key whose forward iteration order is newest
// first: inverted unix-nano timestamp with the id as tiebreak.
func createdKey(createdAt time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%020d:%s", uint64(math.MaxInt64)-uint64(createdAt.UnixNano()), id))
}

// CreateReport stores a new report. Status is forced to open and the
// timestamps are set here, ignoring caller-supplied values.
func (s *ReportStore) CreateReport(ctx context.Context, report moderation.Report) (moderation.Report, error) {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	now := s.now()
	report.Status = moderation.StatusOpen
	report.CreatedAt = now
	report.UpdatedAt = now
	report.Actions = nil

	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketReports)
		if bucket == nil {
			return fmt.Errorf("bucket not found: %s", BucketReports)
		}

		data, err := json.Marshal(report)
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}

		if err := bucket.Put([]byte(report.ID), data); err != nil {
			return err
		}

		index := tx.Bucket(BucketReportsByCreated)
		if index == nil {
			return fmt.Errorf("bucket not found: %s", BucketReportsByCreated)
		}
		return index.Put(createdKey(report.CreatedAt, report.ID), []byte(report.ID))
	})
	if err != nil {
		return moderation.Report{}, err
	}

	return report, nil
}

// GetReport retrieves a report by ID.
func (s *ReportStore) GetReport(ctx context.Context, id string) (*moderation.Report, error) {
	var report *moderation.Report

	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketReports)
		if bucket == nil {
			return nil
		}

		data := bucket.Get([]byte(id))
		if data == nil {
			return nil
		}

		report = &moderation.Report{}
		return json.Unmarshal(data, report)
	})
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, moderation.ErrReportNotFound
	}

	return report, nil
}

// ListReports returns a filtered page of reports, newest first. The
// cursor is the created-index key of the last item on the previous page.
func (s *ReportStore) ListReports(ctx context.Context, filter moderation.ReportFilter) (moderation.ReportPage, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	page := moderation.ReportPage{Limit: limit}

	err := s.db.View(func(tx *bolt.Tx) error {
		index := tx.Bucket(BucketReportsByCreated)
		reports := tx.Bucket(BucketReports)
		if index == nil || reports == nil {
			return nil
		}

		cursor := index.Cursor()

		var k, v []byte
		if filter.Cursor != "" {
			// Resume after the cursor key.
			k, v = cursor.Seek([]byte(filter.Cursor))
			if k != nil && bytes.Equal(k, []byte(filter.Cursor)) {
				k, v = cursor.Next()
			}
		} else {
			k, v = cursor.First()
		}

		for ; k != nil; k, v = cursor.Next() {
			data := reports.Get(v)
			if data == nil {
				continue
			}

			var report moderation.Report
			if err := json.Unmarshal(data, &report); err != nil {
				continue // Skip malformed entries
			}
			if !matchesFilter(report, filter) {
				continue
			}

			if len(page.Items) == limit {
				page.HasMore = true
				return nil
			}
			// Listings omit the per-report action history.
			report.Actions = nil
			page.Items = append(page.Items, report)
			page.NextCursor = string(k)
		}

		return nil
	})
	if err != nil {
		return moderation.ReportPage{}, err
	}

	if !page.HasMore {
		page.NextCursor = ""
	}
	return page, nil
}

func matchesFilter(report moderation.Report, filter moderation.ReportFilter) bool {
	if filter.Status != "" && report.Status != filter.Status {
		return false
	}
	if filter.Category != "" && report.Category != filter.Category {
		return false
	}
	if filter.TargetType != "" && report.TargetType != filter.TargetType {
		return false
	}
	return true
}

// ApplyAction appends an action to a report, advances its status, and
// writes the audit entry, all in one transaction. Terminal reports
// reject the action with ErrReportClosed.
func (s *ReportStore) ApplyAction(ctx context.Context, action moderation.Action, audit moderation.AuditEntry) (*moderation.Report, error) {
	var updated *moderation.Report

	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketReports)
		if bucket == nil {
			return fmt.Errorf("bucket not found: %s", BucketReports)
		}

		data := bucket.Get([]byte(action.ReportID))
		if data == nil {
			return moderation.ErrReportNotFound
		}

		var report moderation.Report
		if err := json.Unmarshal(data, &report); err != nil {
			return err
		}

		if report.Status.Terminal() {
			return moderation.ErrReportClosed
		}

		report.Actions = append(report.Actions, action)
		report.Status = moderation.StatusAfter(action.Kind)
		report.UpdatedAt = action.CreatedAt

		newData, err := json.Marshal(report)
		if err != nil {
			return err
		}
		if err := bucket.Put([]byte(report.ID), newData); err != nil {
			return err
		}

		auditBucket := tx.Bucket(BucketAuditLog)
		if auditBucket == nil {
			return fmt.Errorf("bucket not found: %s", BucketAuditLog)
		}
		auditData, err := json.Marshal(audit)
		if err != nil {
			return fmt.Errorf("failed to marshal audit entry: %w", err)
		}

		// Timestamp-based key for chronological ordering, id for uniqueness.
		key := fmt.Sprintf("%d:%s", audit.Timestamp.UnixNano(), audit.ID)
		if err := auditBucket.Put([]byte(key), auditData); err != nil {
			return err
		}

		updated = &report
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// ListAuditLog returns the most recent audit log entries.
// Entries are returned in reverse chronological order (newest first).
func (s *ReportStore) ListAuditLog(ctx context.Context, limit int) ([]moderation.AuditEntry, error) {
	var entries []moderation.AuditEntry

	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketAuditLog)
		if bucket == nil {
			return nil
		}

		cursor := bucket.Cursor()
		for k, v := cursor.Last(); k != nil && len(entries) < limit; k, v = cursor.Prev() {
			var entry moderation.AuditEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				continue // Skip malformed entries
			}
			entries = append(entries, entry)
		}

		return nil
	})

	return entries, err
}
