package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"modguard/internal/moderation"

	"github.com/google/uuid"
)

const defaultPageLimit = 20
const maxPageLimit = 100

// ReportStore implements moderation.Store using SQLite. Actions live in
// their own table; the status transition and audit insert run inside one
// transaction so a decision is either fully recorded or not at all.
type ReportStore struct {
	db  *sql.DB
	now func() time.Time
}

// Ensure ReportStore implements the interface at compile time.
var _ moderation.Store = (*ReportStore)(nil)

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

	evidence, err := json.Marshal(report.EvidenceURLs)
	if err != nil {
		evidence = []byte("[]")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO moderation_reports
			(id, reporter_id, target_type, target_id, category, description, evidence_urls,
			 status, severity, created_at, created_nano, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, report.ID, report.ReporterID, string(report.TargetType), report.TargetID, report.Category,
		report.Description, string(evidence), string(report.Status), report.Severity,
		now.Format(time.RFC3339Nano), now.UnixNano(), now.Format(time.RFC3339Nano))
	if err != nil {
		return moderation.Report{}, fmt.Errorf("create report: %w", err)
	}

	return report, nil
}

// GetReport retrieves a report by ID, including its action history.
func (s *ReportStore) GetReport(ctx context.Context, id string) (*moderation.Report, error) {
	report, err := scanReport(s.db.QueryRowContext(ctx, `
		SELECT id, reporter_id, target_type, target_id, category, description, evidence_urls,
		       status, severity, created_at, updated_at
		FROM moderation_reports WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, moderation.ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}

	actions, err := s.listActions(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	report.Actions = actions
	return report, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *ReportStore) listActions(ctx context.Context, q querier, reportID string) ([]moderation.Action, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, report_id, action, reason, actor_id, created_at
		FROM moderation_actions WHERE report_id = ? ORDER BY rowid ASC
	`, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []moderation.Action
	for rows.Next() {
		var a moderation.Action
		var createdAtStr string
		if err := rows.Scan(&a.ID, &a.ReportID, &a.Kind, &a.Reason, &a.ActorID, &createdAtStr); err != nil {
			continue
		}
		a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAtStr)
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// ListReports returns a filtered page of reports, newest first. Listings
// omit the per-report action history. The cursor encodes the creation
// nanosecond and id of the last item on the previous page.
func (s *ReportStore) ListReports(ctx context.Context, filter moderation.ReportFilter) (moderation.ReportPage, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	query := `
		SELECT id, reporter_id, target_type, target_id, category, description, evidence_urls,
		       status, severity, created_at, updated_at
		FROM moderation_reports WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.Category != "" {
		query += " AND category = ?"
		args = append(args, filter.Category)
	}
	if filter.TargetType != "" {
		query += " AND target_type = ?"
		args = append(args, string(filter.TargetType))
	}
	if filter.Cursor != "" {
		nano, id, err := decodeCursor(filter.Cursor)
		if err != nil {
			return moderation.ReportPage{}, err
		}
		query += " AND (created_nano < ? OR (created_nano = ? AND id < ?))"
		args = append(args, nano, nano, id)
	}

	// One extra row decides HasMore.
	query += " ORDER BY created_nano DESC, id DESC LIMIT ?"
	args = append(args, limit+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return moderation.ReportPage{}, err
	}
	defer rows.Close()

	page := moderation.ReportPage{Limit: limit}
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			continue
		}
		if len(page.Items) == limit {
			page.HasMore = true
			break
		}
		page.Items = append(page.Items, *report)
	}
	if err := rows.Err(); err != nil {
		return moderation.ReportPage{}, err
	}

	if page.HasMore && len(page.Items) > 0 {
		last := page.Items[len(page.Items)-1]
		page.NextCursor = encodeCursor(last.CreatedAt.UnixNano(), last.ID)
	}
	return page, nil
}

func encodeCursor(nano int64, id string) string {
	return strconv.FormatInt(nano, 10) + ":" + id
}

func decodeCursor(cursor string) (int64, string, error) {
	nanoStr, id, ok := strings.Cut(cursor, ":")
	if !ok {
		return 0, "", fmt.Errorf("malformed cursor")
	}
	nano, err := strconv.ParseInt(nanoStr, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("malformed cursor")
	}
	return nano, id, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanReport(row scannable) (*moderation.Report, error) {
	var r moderation.Report
	var evidenceStr, createdAtStr, updatedAtStr string
	err := row.Scan(&r.ID, &r.ReporterID, &r.TargetType, &r.TargetID, &r.Category,
		&r.Description, &evidenceStr, &r.Status, &r.Severity, &createdAtStr, &updatedAtStr)
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(evidenceStr), &r.EvidenceURLs)
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAtStr)
	r.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAtStr)
	return &r, nil
}

// ApplyAction appends an action to a report, advances its status, and
// writes the audit entry, all in one transaction. Terminal reports
// reject the action with ErrReportClosed.
func (s *ReportStore) ApplyAction(ctx context.Context, action moderation.Action, audit moderation.AuditEntry) (*moderation.Report, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx, `
		SELECT status FROM moderation_reports WHERE id = ?
	`, action.ReportID).Scan(&status)
	if err == sql.ErrNoRows {
		return nil, moderation.ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}

	if moderation.ReportStatus(status).Terminal() {
		return nil, moderation.ErrReportClosed
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO moderation_actions (id, report_id, action, reason, actor_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, action.ID, action.ReportID, string(action.Kind), action.Reason, action.ActorID,
		action.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("record action: %w", err)
	}

	newStatus := moderation.StatusAfter(action.Kind)
	_, err = tx.ExecContext(ctx, `
		UPDATE moderation_reports SET status = ?, updated_at = ? WHERE id = ?
	`, string(newStatus), action.CreatedAt.Format(time.RFC3339Nano), action.ReportID)
	if err != nil {
		return nil, fmt.Errorf("update report status: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO moderation_audit_log (id, actor_id, report_id, action, reason, timestamp, timestamp_nano)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, audit.ID, audit.ActorID, audit.ReportID, string(audit.Action), audit.Reason,
		audit.Timestamp.Format(time.RFC3339Nano), audit.Timestamp.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("log audit entry: %w", err)
	}

	report, err := scanReport(tx.QueryRowContext(ctx, `
		SELECT id, reporter_id, target_type, target_id, category, description, evidence_urls,
		       status, severity, created_at, updated_at
		FROM moderation_reports WHERE id = ?
	`, action.ReportID))
	if err != nil {
		return nil, err
	}
	actions, err := s.listActions(ctx, tx, action.ReportID)
	if err != nil {
		return nil, err
	}
	report.Actions = actions

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return report, nil
}

// ListAuditLog returns the most recent audit log entries, newest first.
func (s *ReportStore) ListAuditLog(ctx context.Context, limit int) ([]moderation.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_id, report_id, action, reason, timestamp
		FROM moderation_audit_log ORDER BY timestamp_nano DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []moderation.AuditEntry
	for rows.Next() {
		var e moderation.AuditEntry
		var timestampStr string
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ReportID, &e.Action, &e.Reason, &timestampStr); err != nil {
			continue
		}
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, timestampStr)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
