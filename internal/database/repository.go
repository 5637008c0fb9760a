package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-outreach-automation/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	db *pgxpool.Pool
}

func ConnectDB(ctx context.Context, connString string) (*Repository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database url: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour

	// Hosted poolers (PgBouncer in transaction mode) break on cached prepared statements.
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	return &Repository{db: pool}, nil
}

func (r *Repository) Close() {
	if r.db != nil {
		r.db.Close()
	}
}

func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}

func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// ---------------- TARGET OPERATIONS ----------------

const targetColumns = `id, team_name, raised_usd, monthly_revenue_usd, is_web3, x_handle, website, notes, status, created_at, updated_at`

func scanTarget(row pgx.Row) (*models.Target, error) {
	var t models.Target
	err := row.Scan(&t.ID, &t.TeamName, &t.RaisedUSD, &t.MonthlyRevenueUSD, &t.IsWeb3, &t.XHandle, &t.Website, &t.Notes, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	return &t, err
}

func (r *Repository) CreateTarget(ctx context.Context, t *models.Target) error {
	newID(&t.ID)
	query := `
		INSERT INTO targets (` + targetColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.Exec(ctx, query, t.ID, t.TeamName, t.RaisedUSD, t.MonthlyRevenueUSD, t.IsWeb3, t.XHandle, t.Website, t.Notes, t.Status, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create target: %w", err)
	}
	return nil
}

func (r *Repository) GetTarget(ctx context.Context, id string) (*models.Target, error) {
	t, err := scanTarget(r.db.QueryRow(ctx, `SELECT `+targetColumns+` FROM targets WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "target")
	}
	return t, nil
}

// FindTargetByHandle matches x_handle case-insensitively, ignoring a leading "@".
func (r *Repository) FindTargetByHandle(ctx context.Context, handle string) (*models.Target, error) {
	h := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(handle), "@"))
	query := `SELECT ` + targetColumns + ` FROM targets
		WHERE lower(ltrim(x_handle, '@')) = $1
		ORDER BY created_at LIMIT 1`
	t, err := scanTarget(r.db.QueryRow(ctx, query, h))
	if err != nil {
		return nil, notFound(err, "target")
	}
	return t, nil
}

// FindTargetByName matches team_name case-insensitively. Contacts reference their
// company by name, so this is how a contact finds its target.
func (r *Repository) FindTargetByName(ctx context.Context, name string) (*models.Target, error) {
	query := `SELECT ` + targetColumns + ` FROM targets
		WHERE lower(team_name) = lower($1)
		ORDER BY created_at LIMIT 1`
	t, err := scanTarget(r.db.QueryRow(ctx, query, strings.TrimSpace(name)))
	if err != nil {
		return nil, notFound(err, "target")
	}
	return t, nil
}

func (r *Repository) ListTargetsByStatus(ctx context.Context, status models.TargetStatus) ([]models.Target, error) {
	rows, err := r.db.Query(ctx, `SELECT `+targetColumns+` FROM targets WHERE status = $1 ORDER BY updated_at DESC`, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}
	defer rows.Close()

	var out []models.Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan target: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateTargetStatus(ctx context.Context, id string, status models.TargetStatus, now time.Time) error {
	tag, err := r.db.Exec(ctx, "UPDATE targets SET status = $1, updated_at = $2 WHERE id = $3", status, now, id)
	if err != nil {
		return fmt.Errorf("failed to update target status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("target %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *Repository) TouchTarget(ctx context.Context, id string, now time.Time) error {
	_, err := r.db.Exec(ctx, "UPDATE targets SET updated_at = $1 WHERE id = $2", now, id)
	if err != nil {
		return fmt.Errorf("failed to touch target: %w", err)
	}
	return nil
}

// ---------------- CONTACT OPERATIONS ----------------

const contactColumns = `id, name, company, title, telegram_handle, x_username, x_bio, source, telegram_validated, created_at`

func scanContact(row pgx.Row) (*models.Contact, error) {
	var c models.Contact
	err := row.Scan(&c.ID, &c.Name, &c.Company, &c.Title, &c.TelegramHandle, &c.XUsername, &c.XBio, &c.Source, &c.TelegramValidated, &c.CreatedAt)
	return &c, err
}

func (r *Repository) CreateContact(ctx context.Context, c *models.Contact) error {
	newID(&c.ID)
	query := `
		INSERT INTO contacts (` + contactColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.Exec(ctx, query, c.ID, c.Name, c.Company, c.Title, c.TelegramHandle, c.XUsername, c.XBio, c.Source, c.TelegramValidated, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}
	return nil
}

func (r *Repository) GetContact(ctx context.Context, id string) (*models.Contact, error) {
	c, err := scanContact(r.db.QueryRow(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "contact")
	}
	return c, nil
}

func (r *Repository) UpdateContact(ctx context.Context, c *models.Contact) error {
	query := `
		UPDATE contacts SET name = $1, title = $2, telegram_handle = $3, x_username = $4, x_bio = $5,
			source = $6, telegram_validated = $7
		WHERE id = $8`
	tag, err := r.db.Exec(ctx, query, c.Name, c.Title, c.TelegramHandle, c.XUsername, c.XBio, c.Source, c.TelegramValidated, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("contact %s: %w", c.ID, ErrNotFound)
	}
	return nil
}

func (r *Repository) ListContactsByCompany(ctx context.Context, company string) ([]models.Contact, error) {
	rows, err := r.db.Query(ctx, `SELECT `+contactColumns+` FROM contacts WHERE lower(company) = lower($1) ORDER BY created_at`, company)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	var out []models.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *Repository) CountContactsBySource(ctx context.Context, company string, source models.ContactSource) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, "SELECT count(*) FROM contacts WHERE lower(company) = lower($1) AND source = $2", company, source).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count contacts: %w", err)
	}
	return n, nil
}

// ---------------- DRAFT OPERATIONS ----------------

const draftColumns = `id, contact_id, employee_id, message_text, status, follow_up_of, prepared_at, created_at, updated_at`

func scanDraft(row pgx.Row, extra ...any) (*models.Draft, error) {
	var d models.Draft
	dest := append([]any{&d.ID, &d.ContactID, &d.EmployeeID, &d.MessageText, &d.Status, &d.FollowUpOf, &d.PreparedAt, &d.CreatedAt, &d.UpdatedAt}, extra...)
	err := row.Scan(dest...)
	return &d, err
}

func (r *Repository) CreateDraft(ctx context.Context, d *models.Draft) error {
	newID(&d.ID)
	query := `
		INSERT INTO drafts (` + draftColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.Exec(ctx, query, d.ID, d.ContactID, d.EmployeeID, d.MessageText, d.Status, d.FollowUpOf, d.PreparedAt, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create draft: %w", err)
	}
	return nil
}

func (r *Repository) GetDraft(ctx context.Context, id string) (*models.Draft, error) {
	d, err := scanDraft(r.db.QueryRow(ctx, `SELECT `+draftColumns+` FROM drafts WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "draft")
	}
	return d, nil
}

func (r *Repository) ListDrafts(ctx context.Context, f DraftFilter) ([]models.Draft, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.EmployeeID != "" {
		add("employee_id = $%d", f.EmployeeID)
	}
	if f.ContactID != "" {
		add("contact_id = $%d", f.ContactID)
	}

	query := `SELECT ` + draftColumns + ` FROM drafts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	defer rows.Close()

	var out []models.Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan draft: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateDraft(ctx context.Context, d *models.Draft) error {
	query := `
		UPDATE drafts SET message_text = $1, status = $2, prepared_at = $3, updated_at = $4
		WHERE id = $5`
	tag, err := r.db.Exec(ctx, query, d.MessageText, d.Status, d.PreparedAt, d.UpdatedAt, d.ID)
	if err != nil {
		return fmt.Errorf("failed to update draft: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("draft %s: %w", d.ID, ErrNotFound)
	}
	return nil
}

func (r *Repository) UpdateDraftText(ctx context.Context, id, text string, now time.Time) error {
	query := `
		UPDATE drafts SET message_text = $1, updated_at = $2
		WHERE id = $3 AND prepared_at IS NULL AND status IN ('queued', 'approved')`
	tag, err := r.db.Exec(ctx, query, text, now, id)
	if err != nil {
		return fmt.Errorf("failed to update draft text: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	if _, err := r.GetDraft(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("draft %s: %w", id, ErrDraftLocked)
}

// ClaimPendingSends stamps prepared_at in the same statement that selects, so two polls
// never receive the same draft.
func (r *Repository) ClaimPendingSends(ctx context.Context, employeeID string, now, staleBefore time.Time, limit int) ([]models.PendingSend, error) {
	query := `
		WITH claimed AS (
			UPDATE drafts SET prepared_at = $2
			WHERE id IN (
				SELECT d.id FROM drafts d
				JOIN contacts c ON c.id = d.contact_id
				WHERE d.employee_id = $1 AND d.status = 'approved'
					AND c.telegram_handle IS NOT NULL
					AND (d.prepared_at IS NULL OR d.prepared_at < $3)
				ORDER BY d.created_at
				LIMIT $4
				FOR UPDATE OF d SKIP LOCKED
			)
			RETURNING ` + draftColumns + `
		)
		SELECT claimed.id, claimed.contact_id, claimed.employee_id, claimed.message_text, claimed.status,
			claimed.follow_up_of, claimed.prepared_at, claimed.created_at, claimed.updated_at,
			c.name, c.company, c.telegram_handle
		FROM claimed JOIN contacts c ON c.id = claimed.contact_id
		ORDER BY claimed.created_at`

	rows, err := r.db.Query(ctx, query, employeeID, now, staleBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim pending sends: %w", err)
	}
	defer rows.Close()

	var out []models.PendingSend
	for rows.Next() {
		var p models.PendingSend
		d, err := scanDraft(rows, &p.ContactName, &p.Company, &p.TelegramHandle)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending send: %w", err)
		}
		p.Draft = *d
		out = append(out, p)
	}
	return out, rows.Err()
}

// ---------------- CAPTURE REQUEST OPERATIONS ----------------

const captureColumns = `id, employee_id, contact_id, telegram_handle, status, transcript, error_message, claimed_at, created_at, completed_at`

func (r *Repository) CreateCaptureRequest(ctx context.Context, req *models.CaptureRequest) error {
	newID(&req.ID)
	query := `
		INSERT INTO capture_requests (` + captureColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.Exec(ctx, query, req.ID, req.EmployeeID, req.ContactID, req.TelegramHandle, req.Status, req.Transcript, req.ErrorMessage, req.ClaimedAt, req.CreatedAt, req.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to create capture request: %w", err)
	}
	return nil
}

func (r *Repository) ClaimCaptureRequests(ctx context.Context, employeeID string, now, staleBefore time.Time, limit int) ([]models.CaptureRequest, error) {
	query := `
		UPDATE capture_requests SET claimed_at = $2
		WHERE id IN (
			SELECT id FROM capture_requests
			WHERE employee_id = $1 AND status = 'pending' AND (claimed_at IS NULL OR claimed_at < $3)
			ORDER BY created_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + captureColumns

	rows, err := r.db.Query(ctx, query, employeeID, now, staleBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim capture requests: %w", err)
	}
	defer rows.Close()

	var out []models.CaptureRequest
	for rows.Next() {
		var c models.CaptureRequest
		if err := rows.Scan(&c.ID, &c.EmployeeID, &c.ContactID, &c.TelegramHandle, &c.Status, &c.Transcript, &c.ErrorMessage, &c.ClaimedAt, &c.CreatedAt, &c.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan capture request: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) CompleteCaptureRequest(ctx context.Context, id, employeeID string, res models.CaptureResult, now time.Time) error {
	status := models.WorkCompleted
	if res.Error != "" {
		status = models.WorkFailed
	}
	query := `
		UPDATE capture_requests SET status = $1, transcript = $2, error_message = $3, completed_at = $4
		WHERE id = $5 AND employee_id = $6 AND status = 'pending'`
	tag, err := r.db.Exec(ctx, query, status, res.Transcript, res.Error, now, id, employeeID)
	if err != nil {
		return fmt.Errorf("failed to complete capture request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pending capture request %s: %w", id, ErrNotFound)
	}
	return nil
}

// ---------------- AUTH REQUEST OPERATIONS ----------------

const authColumns = `id, employee_id, platform, status, error_message, claimed_at, created_at, completed_at`

func (r *Repository) CreateAuthRequest(ctx context.Context, req *models.AuthRequest) error {
	newID(&req.ID)
	query := `
		INSERT INTO auth_requests (` + authColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.Exec(ctx, query, req.ID, req.EmployeeID, req.Platform, req.Status, req.ErrorMessage, req.ClaimedAt, req.CreatedAt, req.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to create auth request: %w", err)
	}
	return nil
}

func (r *Repository) ClaimAuthRequests(ctx context.Context, employeeID string, now, staleBefore time.Time, limit int) ([]models.AuthRequest, error) {
	query := `
		UPDATE auth_requests SET claimed_at = $2
		WHERE id IN (
			SELECT id FROM auth_requests
			WHERE employee_id = $1 AND status = 'pending' AND (claimed_at IS NULL OR claimed_at < $3)
			ORDER BY created_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + authColumns

	rows, err := r.db.Query(ctx, query, employeeID, now, staleBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim auth requests: %w", err)
	}
	defer rows.Close()

	var out []models.AuthRequest
	for rows.Next() {
		var a models.AuthRequest
		if err := rows.Scan(&a.ID, &a.EmployeeID, &a.Platform, &a.Status, &a.ErrorMessage, &a.ClaimedAt, &a.CreatedAt, &a.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan auth request: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repository) CompleteAuthRequest(ctx context.Context, id, employeeID, errMsg string, now time.Time) error {
	status := models.WorkCompleted
	if errMsg != "" {
		status = models.WorkFailed
	}
	query := `
		UPDATE auth_requests SET status = $1, error_message = $2, completed_at = $3
		WHERE id = $4 AND employee_id = $5 AND status = 'pending'`
	tag, err := r.db.Exec(ctx, query, status, errMsg, now, id, employeeID)
	if err != nil {
		return fmt.Errorf("failed to complete auth request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pending auth request %s: %w", id, ErrNotFound)
	}
	return nil
}
