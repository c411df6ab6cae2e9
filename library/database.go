package library

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Store is the entity store backing the circulation core: a SQLite database
// holding the book, member, loan and notification records. All multi-step
// circulation mutations run inside a single transaction so that per-book
// ledger updates are serialized by the database.
type Store struct {
	db *sqlx.DB
}

// NewStore opens (or creates) the SQLite database at dbPath and applies
// schema migrations.
func NewStore(dbPath string) (*Store, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	// busy_timeout retries on lock contention; txlock=immediate makes
	// transactions take the write lock at BEGIN, so concurrent circulation
	// transactions queue up instead of failing on a mid-transaction lock
	// upgrade.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1&_txlock=immediate", dbPath)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sqlx.DB) error {
	// WAL improves write concurrency.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS books (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            publisher TEXT NOT NULL DEFAULT '',
            publication_year INTEGER NOT NULL DEFAULT 0,
            isbn TEXT NOT NULL DEFAULT '',
            category TEXT NOT NULL DEFAULT '',
            description TEXT NOT NULL DEFAULT '',
            cover_url TEXT NOT NULL DEFAULT '',
            total_stock INTEGER NOT NULL DEFAULT 1,
            available_stock INTEGER NOT NULL DEFAULT 1,
            total_borrowed INTEGER NOT NULL DEFAULT 0,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            CHECK (available_stock >= 0),
            CHECK (available_stock <= total_stock),
            CHECK (total_borrowed >= 0)
        );`,
		`CREATE TABLE IF NOT EXISTS members (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            member_number TEXT NOT NULL UNIQUE,
            full_name TEXT NOT NULL,
            email TEXT NOT NULL DEFAULT '',
            phone TEXT NOT NULL DEFAULT '',
            address TEXT NOT NULL DEFAULT '',
            member_type TEXT NOT NULL DEFAULT 'regular',
            status TEXT NOT NULL DEFAULT 'active',
            join_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            pref_due_reminders BOOLEAN NOT NULL DEFAULT 1,
            pref_new_book_alerts BOOLEAN NOT NULL DEFAULT 1,
            pref_return_confirmations BOOLEAN NOT NULL DEFAULT 1
        );`,
		`CREATE TABLE IF NOT EXISTS loans (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            book_id INTEGER NOT NULL REFERENCES books(id),
            member_id INTEGER NOT NULL REFERENCES members(id),
            loan_date DATETIME NOT NULL,
            due_date DATETIME NOT NULL,
            return_date DATETIME,
            status TEXT NOT NULL DEFAULT 'borrowed'
        );`,
		`CREATE INDEX IF NOT EXISTS idx_loans_status ON loans(status);`,
		`CREATE INDEX IF NOT EXISTS idx_loans_book ON loans(book_id);`,
		`CREATE TABLE IF NOT EXISTS notifications (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            member_id INTEGER NOT NULL REFERENCES members(id),
            type TEXT NOT NULL,
            title TEXT NOT NULL,
            message TEXT NOT NULL,
            is_read BOOLEAN NOT NULL DEFAULT 0,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_member ON notifications(member_id);`,
		`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt, schemaVersion); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Books
// ---------------------------------------------------------------------------

// bookSortColumns maps list sort specs to ORDER BY clauses. Anything not in
// the map falls back to identity order.
var bookSortColumns = map[string]string{
	"id":              "id ASC",
	"title":           "title ASC, id ASC",
	"author":          "author ASC, id ASC",
	"-created_at":     "created_at DESC, id ASC",
	"-total_borrowed": "total_borrowed DESC, id ASC",
}

// CreateBook inserts a new catalog entry and fills in the assigned ID.
func (s *Store) CreateBook(b *Book) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.NamedExec(`
        INSERT INTO books (title, author, publisher, publication_year, isbn, category,
            description, cover_url, total_stock, available_stock, total_borrowed, created_at)
        VALUES (:title, :author, :publisher, :publication_year, :isbn, :category,
            :description, :cover_url, :total_stock, :available_stock, :total_borrowed, :created_at)`, b)
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	b.ID, err = res.LastInsertId()
	return err
}

// GetBook fetches a single book by ID.
func (s *Store) GetBook(id int64) (*Book, error) {
	var b Book
	err := s.db.Get(&b, `SELECT * FROM books WHERE id=?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("book %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBooks returns all books ordered by the given sort spec.
func (s *Store) ListBooks(sort string) ([]*Book, error) {
	order, ok := bookSortColumns[sort]
	if !ok {
		order = "id ASC"
	}
	var books []*Book
	if err := s.db.Select(&books, `SELECT * FROM books ORDER BY `+order); err != nil {
		return nil, err
	}
	return books, nil
}

// UpdateBook saves the descriptive fields of b. Stock counters are owned by
// the inventory ledger and are deliberately not touched here.
func (s *Store) UpdateBook(b *Book) error {
	res, err := s.db.NamedExec(`
        UPDATE books SET title=:title, author=:author, publisher=:publisher,
            publication_year=:publication_year, isbn=:isbn, category=:category,
            description=:description, cover_url=:cover_url
        WHERE id=:id`, b)
	if err != nil {
		return err
	}
	return oneRowAffected(res, b.ID)
}

// DeleteBook removes a book from the catalog.
func (s *Store) DeleteBook(id int64) error {
	res, err := s.db.Exec(`DELETE FROM books WHERE id=?`, id)
	if err != nil {
		return err
	}
	return oneRowAffected(res, id)
}

// ---------------------------------------------------------------------------
// Members
// ---------------------------------------------------------------------------

// CreateMember registers a new member and assigns the next sequential
// member number (MB001, MB002, ...) inside the creation transaction.
func (s *Store) CreateMember(m *Member) error {
	now := time.Now().UTC()
	if m.JoinDate.IsZero() {
		m.JoinDate = now
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.MemberType == "" {
		m.MemberType = "regular"
	}
	if m.Status == "" {
		m.Status = MemberActive
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// The counter lives in the meta table so numbers stay monotonic and
	// are never reassigned after a deletion. Databases created before the
	// counter existed fall back to the highest number still in use.
	var last int
	if err := tx.Get(&last, `
        SELECT COALESCE(
            (SELECT CAST(value AS INTEGER) FROM meta WHERE key='member_seq'),
            (SELECT COALESCE(MAX(CAST(SUBSTR(member_number, 3) AS INTEGER)), 0) FROM members))`); err != nil {
		return fmt.Errorf("next member number: %w", err)
	}
	m.MemberNumber = fmt.Sprintf("MB%03d", last+1)
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('member_seq',?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value`, last+1); err != nil {
		return fmt.Errorf("advance member number: %w", err)
	}

	res, err := tx.NamedExec(`
        INSERT INTO members (member_number, full_name, email, phone, address, member_type,
            status, join_date, created_at, pref_due_reminders, pref_new_book_alerts, pref_return_confirmations)
        VALUES (:member_number, :full_name, :email, :phone, :address, :member_type,
            :status, :join_date, :created_at, :pref_due_reminders, :pref_new_book_alerts, :pref_return_confirmations)`, m)
	if err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	if m.ID, err = res.LastInsertId(); err != nil {
		return err
	}
	return tx.Commit()
}

// GetMember fetches a single member by ID.
func (s *Store) GetMember(id int64) (*Member, error) {
	var m Member
	err := s.db.Get(&m, `SELECT * FROM members WHERE id=?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("member %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMembers returns all members ordered by ID.
func (s *Store) ListMembers() ([]*Member, error) {
	var members []*Member
	if err := s.db.Select(&members, `SELECT * FROM members ORDER BY id`); err != nil {
		return nil, err
	}
	return members, nil
}

// ListMembersByStatus returns members in the given status, ordered by ID.
func (s *Store) ListMembersByStatus(status string) ([]*Member, error) {
	var members []*Member
	if err := s.db.Select(&members, `SELECT * FROM members WHERE status=? ORDER BY id`, status); err != nil {
		return nil, err
	}
	return members, nil
}

// UpdateMember saves the mutable profile fields of m. The member number is
// immutable after creation.
func (s *Store) UpdateMember(m *Member) error {
	res, err := s.db.NamedExec(`
        UPDATE members SET full_name=:full_name, email=:email, phone=:phone, address=:address,
            member_type=:member_type, status=:status,
            pref_due_reminders=:pref_due_reminders, pref_new_book_alerts=:pref_new_book_alerts,
            pref_return_confirmations=:pref_return_confirmations
        WHERE id=:id`, m)
	if err != nil {
		return err
	}
	return oneRowAffected(res, m.ID)
}

// DeleteMember removes a member.
func (s *Store) DeleteMember(id int64) error {
	res, err := s.db.Exec(`DELETE FROM members WHERE id=?`, id)
	if err != nil {
		return err
	}
	return oneRowAffected(res, id)
}

// ---------------------------------------------------------------------------
// Loans
// ---------------------------------------------------------------------------

// GetLoan fetches a single loan by ID.
func (s *Store) GetLoan(id int64) (*Loan, error) {
	var l Loan
	err := s.db.Get(&l, `SELECT * FROM loans WHERE id=?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("loan %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// ListLoans returns loans ordered by loan date, newest first. An empty
// status returns every loan.
func (s *Store) ListLoans(status string) ([]*Loan, error) {
	var (
		loans []*Loan
		err   error
	)
	if status == "" {
		err = s.db.Select(&loans, `SELECT * FROM loans ORDER BY loan_date DESC, id DESC`)
	} else {
		err = s.db.Select(&loans, `SELECT * FROM loans WHERE status=? ORDER BY loan_date DESC, id DESC`, status)
	}
	if err != nil {
		return nil, err
	}
	return loans, nil
}

// ---------------------------------------------------------------------------
// Notifications
// ---------------------------------------------------------------------------

// CreateNotification enqueues a notification for a member.
func (s *Store) CreateNotification(n *Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.NamedExec(`
        INSERT INTO notifications (member_id, type, title, message, is_read, created_at)
        VALUES (:member_id, :type, :title, :message, :is_read, :created_at)`, n)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	n.ID, err = res.LastInsertId()
	return err
}

// ListNotifications returns a member's notifications, newest first.
func (s *Store) ListNotifications(memberID int64) ([]*Notification, error) {
	var notifs []*Notification
	err := s.db.Select(&notifs, `SELECT * FROM notifications WHERE member_id=? ORDER BY created_at DESC, id DESC`, memberID)
	if err != nil {
		return nil, err
	}
	return notifs, nil
}

// MarkNotificationRead flips the is_read flag, the one mutation the
// consuming UI owns.
func (s *Store) MarkNotificationRead(id int64) error {
	res, err := s.db.Exec(`UPDATE notifications SET is_read=1 WHERE id=?`, id)
	if err != nil {
		return err
	}
	return oneRowAffected(res, id)
}

// oneRowAffected converts a zero-row write into ErrNotFound.
func oneRowAffected(res sql.Result, id int64) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("record %d: %w", id, ErrNotFound)
	}
	return nil
}
