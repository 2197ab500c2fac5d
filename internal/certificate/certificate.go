// Package certificate implements the certificate lifecycle: issue, revoke, verify and list.
package certificate

import "context"

// Certificate is the sole record kept by the service. Values are copied in and out of
// stores; callers never hold a reference into a store.
type Certificate struct {
	StudentName        string `json:"studentName"`
	CourseName         string `json:"courseName"`
	CertificateID      string `json:"certificateId"`
	Grade              string `json:"grade"`
	IssuerAddress      string `json:"issuerAddress"`
	IssueDate          int64  `json:"issueDate"`
	IsRevoked          bool   `json:"isRevoked"`
	CertificateAddress string `json:"certificateAddress"`
}

// Grades lists the grades offered by clients. The service accepts any non-empty grade.
var Grades = []string{"A+", "A", "B+", "B", "C+", "C", "D", "F"}

// Store maps certificate addresses to certificates. Entries are never removed.
type Store interface {
	Put(ctx context.Context, c Certificate) error
	// Get returns ErrNotFound when the address is unknown.
	Get(ctx context.Context, address string) (Certificate, error)
	// List returns every certificate in insertion order.
	List(ctx context.Context) ([]Certificate, error)
	// Update applies fn to the stored certificate atomically with respect to other
	// updates of the same address and persists the result. If fn returns an error the
	// record is left untouched. Changes fn makes to the address or issue date are discarded.
	Update(ctx context.Context, address string, fn func(*Certificate) error) (Certificate, error)
	Count(ctx context.Context) (int, error)
}

// Pinger is implemented by stores backed by an external system.
type Pinger interface {
	Ping(ctx context.Context) error
}
