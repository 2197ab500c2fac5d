// Package models persists certificates in a SQL database so that every instance of the
// service shares one view of them.
package models

import (
    "context"
    "database/sql"
    "errors"
    "fmt"

    "github.com/vaheed/certd/internal/certificate"
    "github.com/vaheed/certd/internal/db"
)

const columns = `address,student_name,course_name,certificate_id,grade,issuer_address,issue_date,is_revoked`

type Store struct { DB *db.DB }

var _ certificate.Store = (*Store)(nil)

func NewStore(d *db.DB) *Store { return &Store{DB: d} }

type scanner interface{ Scan(dest ...any) error }

func scan(row scanner) (certificate.Certificate, error) {
    var c certificate.Certificate
    err := row.Scan(&c.CertificateAddress, &c.StudentName, &c.CourseName, &c.CertificateID, &c.Grade, &c.IssuerAddress, &c.IssueDate, &c.IsRevoked)
    return c, err
}

func (s *Store) Put(ctx context.Context, c certificate.Certificate) error {
    q := s.DB.Rebind(`INSERT INTO certificates(` + columns + `) VALUES(?,?,?,?,?,?,?,?)
        ON CONFLICT (address) DO UPDATE SET student_name=excluded.student_name, course_name=excluded.course_name,
        certificate_id=excluded.certificate_id, grade=excluded.grade, issuer_address=excluded.issuer_address,
        issue_date=excluded.issue_date, is_revoked=excluded.is_revoked`)
    _, err := s.DB.ExecContext(ctx, q, c.CertificateAddress, c.StudentName, c.CourseName, c.CertificateID, c.Grade, c.IssuerAddress, c.IssueDate, c.IsRevoked)
    if err != nil { return fmt.Errorf("insert certificate: %w", err) }
    return nil
}

func (s *Store) Get(ctx context.Context, address string) (certificate.Certificate, error) {
    c, err := scan(s.DB.QueryRowContext(ctx, s.DB.Rebind(`SELECT `+columns+` FROM certificates WHERE address=?`), address))
    if errors.Is(err, sql.ErrNoRows) { return certificate.Certificate{}, certificate.ErrNotFound }
    if err != nil { return certificate.Certificate{}, fmt.Errorf("select certificate: %w", err) }
    return c, nil
}

func (s *Store) List(ctx context.Context) ([]certificate.Certificate, error) {
    rows, err := s.DB.QueryContext(ctx, `SELECT `+columns+` FROM certificates ORDER BY seq`)
    if err != nil { return nil, fmt.Errorf("list certificates: %w", err) }
    defer rows.Close()
    out := []certificate.Certificate{}
    for rows.Next() {
        c, err := scan(rows)
        if err != nil { return nil, err }
        out = append(out, c)
    }
    return out, rows.Err()
}

// Update locks the row for the duration of fn on Postgres. SQLite runs on a single
// connection, so the transaction alone serializes concurrent updates.
func (s *Store) Update(ctx context.Context, address string, fn func(*certificate.Certificate) error) (certificate.Certificate, error) {
    tx, err := s.DB.BeginTx(ctx, nil)
    if err != nil { return certificate.Certificate{}, fmt.Errorf("begin: %w", err) }
    defer func() { _ = tx.Rollback() }()

    q := `SELECT ` + columns + ` FROM certificates WHERE address=?`
    if s.DB.Dialect == db.Postgres {
        q += ` FOR UPDATE`
    }
    c, err := scan(tx.QueryRowContext(ctx, s.DB.Rebind(q), address))
    if errors.Is(err, sql.ErrNoRows) { return certificate.Certificate{}, certificate.ErrNotFound }
    if err != nil { return certificate.Certificate{}, fmt.Errorf("select certificate: %w", err) }

    issued := c.IssueDate
    if err := fn(&c); err != nil {
        return certificate.Certificate{}, err
    }
    // address and issue date are immutable
    c.CertificateAddress, c.IssueDate = address, issued

    _, err = tx.ExecContext(ctx, s.DB.Rebind(`UPDATE certificates SET student_name=?, course_name=?, certificate_id=?, grade=?, issuer_address=?, is_revoked=? WHERE address=?`),
        c.StudentName, c.CourseName, c.CertificateID, c.Grade, c.IssuerAddress, c.IsRevoked, address)
    if err != nil { return certificate.Certificate{}, fmt.Errorf("update certificate: %w", err) }
    if err := tx.Commit(); err != nil { return certificate.Certificate{}, fmt.Errorf("commit: %w", err) }
    return c, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
    var n int
    err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM certificates`).Scan(&n)
    return n, err
}

func (s *Store) Ping(ctx context.Context) error { return s.DB.Ping(ctx) }

func (s *Store) Close() error { return s.DB.Close() }
