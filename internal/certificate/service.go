package certificate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vaheed/certd/internal/mockid"
)

const (
	MsgIssued  = "Certificate issued successfully"
	MsgRevoked = "Certificate revoked successfully"
	MsgValid   = "Certificate is valid"
	MsgInvalid = "Certificate has been revoked"
)

// IDGenerator supplies certificate addresses and cosmetic transaction signatures.
type IDGenerator interface {
	Address() string
	Signature() string
}

type IssueRequest struct {
	StudentName   string `json:"studentName" validate:"required"`
	CourseName    string `json:"courseName" validate:"required"`
	CertificateID string `json:"certificateId" validate:"required"`
	Grade         string `json:"grade" validate:"required"`
	IssuerAddress string `json:"issuerAddress"`
}

type RevokeRequest struct {
	CertificateAddress string `json:"certificateAddress" validate:"required"`
	IssuerAddress      string `json:"issuerAddress"`
}

type Issued struct {
	Certificate Certificate
	Address     string
	Signature   string
}

type Revoked struct {
	Certificate Certificate
	Signature   string
}

type Verification struct {
	Certificate Certificate
	Valid       bool
}

func (v Verification) Message() string {
	if v.Valid {
		return MsgValid
	}
	return MsgInvalid
}

type Service struct {
	store         Store
	ids           IDGenerator
	now           func() time.Time
	enforceIssuer bool
	validate      *validator.Validate
	log           *zap.Logger
}

type Option func(*Service)

func WithGenerator(g IDGenerator) Option { return func(s *Service) { s.ids = g } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithIssuerCheck toggles the issuer-address comparison on Revoke. It is on by default.
func WithIssuerCheck(on bool) Option { return func(s *Service) { s.enforceIssuer = on } }

func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.log = l } }

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:         store,
		ids:           &mockid.Generator{},
		now:           time.Now,
		enforceIssuer: true,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		log:           zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Issue records a new active certificate under a freshly generated address.
// certificateId is not checked for uniqueness.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (Issued, error) {
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return Issued{}, ErrMissingFields
		}
		return Issued{}, fmt.Errorf("validate issue request: %w", err)
	}
	c := Certificate{
		StudentName:        req.StudentName,
		CourseName:         req.CourseName,
		CertificateID:      req.CertificateID,
		Grade:              req.Grade,
		IssuerAddress:      req.IssuerAddress,
		IssueDate:          s.now().Unix(),
		IsRevoked:          false,
		CertificateAddress: s.ids.Address(),
	}
	if err := s.store.Put(ctx, c); err != nil {
		return Issued{}, fmt.Errorf("store certificate: %w", err)
	}
	s.log.Info("certificate issued", zap.String("address", c.CertificateAddress), zap.String("certificate_id", c.CertificateID))
	return Issued{Certificate: c, Address: c.CertificateAddress, Signature: s.ids.Signature()}, nil
}

// Revoke marks a certificate revoked. Revoking an already revoked certificate succeeds
// and changes nothing.
func (s *Service) Revoke(ctx context.Context, req RevokeRequest) (Revoked, error) {
	if req.CertificateAddress == "" {
		return Revoked{}, ErrMissingAddress
	}
	c, err := s.store.Update(ctx, req.CertificateAddress, func(c *Certificate) error {
		if s.enforceIssuer && c.IssuerAddress != req.IssuerAddress {
			return ErrForbidden
		}
		c.IsRevoked = true
		return nil
	})
	if err != nil {
		if KindOf(err) != KindInternal {
			if errors.Is(err, ErrForbidden) {
				s.log.Warn("revoke rejected", zap.String("address", req.CertificateAddress), zap.String("issuer", req.IssuerAddress))
			}
			return Revoked{}, err
		}
		return Revoked{}, fmt.Errorf("revoke certificate: %w", err)
	}
	s.log.Info("certificate revoked", zap.String("address", c.CertificateAddress))
	return Revoked{Certificate: c, Signature: s.ids.Signature()}, nil
}

func (s *Service) Verify(ctx context.Context, address string) (Verification, error) {
	if address == "" {
		return Verification{}, ErrMissingAddress
	}
	c, err := s.store.Get(ctx, address)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Verification{}, err
		}
		return Verification{}, fmt.Errorf("load certificate: %w", err)
	}
	return Verification{Certificate: c, Valid: !c.IsRevoked}, nil
}

func (s *Service) List(ctx context.Context) ([]Certificate, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	if list == nil {
		list = []Certificate{}
	}
	return list, nil
}

func (s *Service) Count(ctx context.Context) (int, error) { return s.store.Count(ctx) }

// Ping checks the backing store when it has one to check.
func (s *Service) Ping(ctx context.Context) error {
	if p, ok := s.store.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
