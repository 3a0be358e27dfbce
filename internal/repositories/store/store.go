package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gitlab.com/SmartLease/leaserouter/internal/interfaces"
	"gitlab.com/SmartLease/leaserouter/internal/lib"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
	ErrConflict  = errors.New("concurrent status change")
	ErrDialect   = errors.New("unsupported database dialect")
)

type Store struct {
	db  *gorm.DB
	log interfaces.ILogger
}

// Open connects to the configured database and migrates the schema.
// Supported dialects are "sqlite" and "postgres".
func Open(dialect string, dsn string, log interfaces.ILogger) (*Store, error) {
	var dialector gorm.Dialector
	switch dialect {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, lib.WrapError(ErrDialect, fmt.Errorf("%q", dialect))
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&RentalAgreement{},
		&Payment{},
		&Termination{},
		&ContractEvent{},
	); err != nil {
		return nil, err
	}

	log.Debugf("opened %s store", dialect)

	return &Store{db: db, log: log}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) CreateAgreement(ctx context.Context, a *RentalAgreement) error {
	return translate(s.db.WithContext(ctx).Create(a).Error)
}

func (s *Store) GetAgreement(ctx context.Context, id uint) (*RentalAgreement, error) {
	var a RentalAgreement
	err := s.db.WithContext(ctx).Preload("Payments").First(&a, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (s *Store) GetAgreementByAddress(ctx context.Context, contractAddr string) (*RentalAgreement, error) {
	var a RentalAgreement
	err := s.db.WithContext(ctx).Preload("Payments").
		Where("contract_address = ?", contractAddr).First(&a).Error
	if err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

// ListAgreements returns agreements newest first, optionally filtered by
// status and by party address (landlord or tenant).
func (s *Store) ListAgreements(ctx context.Context, status AgreementStatus, party string) ([]RentalAgreement, error) {
	q := s.db.WithContext(ctx).Preload("Payments").Order("id desc")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if party != "" {
		q = q.Where("landlord = ? OR tenant = ?", party, party)
	}
	var out []RentalAgreement
	if err := q.Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (s *Store) UpdateAgreement(ctx context.Context, a *RentalAgreement) error {
	return translate(s.db.WithContext(ctx).Save(a).Error)
}

// UpdateStatusIf transitions the agreement status only when its current
// status still equals from. Returns ErrConflict when another writer got
// there first.
func (s *Store) UpdateStatusIf(ctx context.Context, id uint, from, to AgreementStatus) error {
	res := s.db.WithContext(ctx).Model(&RentalAgreement{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// UpdateEndDateIf extends an active agreement's end date only when the
// stored end date still equals from. Returns ErrConflict when the agreement
// was terminated or extended by another writer in the meantime.
func (s *Store) UpdateEndDateIf(ctx context.Context, id uint, from, to time.Time) error {
	res := s.db.WithContext(ctx).Model(&RentalAgreement{}).
		Where("id = ? AND status = ? AND end_date = ?", id, StatusActive, from).
		Update("end_date", to)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (s *Store) CreatePayment(ctx context.Context, p *Payment) error {
	return translate(s.db.WithContext(ctx).Create(p).Error)
}

func (s *Store) ListPayments(ctx context.Context, agreementID uint) ([]Payment, error) {
	var out []Payment
	err := s.db.WithContext(ctx).
		Where("agreement_id = ?", agreementID).Order("id asc").Find(&out).Error
	if err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (s *Store) CreateTermination(ctx context.Context, t *Termination) error {
	return translate(s.db.WithContext(ctx).Create(t).Error)
}

func (s *Store) GetTermination(ctx context.Context, agreementID uint) (*Termination, error) {
	var t Termination
	err := s.db.WithContext(ctx).
		Where("agreement_id = ?", agreementID).First(&t).Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

// AddEvent appends to the audit log. Time defaults to now when unset.
func (s *Store) AddEvent(ctx context.Context, e *ContractEvent) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	return translate(s.db.WithContext(ctx).Create(e).Error)
}

func (s *Store) ListEvents(ctx context.Context, agreementID uint) ([]ContractEvent, error) {
	var out []ContractEvent
	err := s.db.WithContext(ctx).
		Where("agreement_id = ?", agreementID).Order("id asc").Find(&out).Error
	if err != nil {
		return nil, translate(err)
	}
	return out, nil
}

// ListExpiredActive returns active agreements whose effective end date has
// passed relative to now, considering simulated time when present.
func (s *Store) ListExpiredActive(ctx context.Context, now time.Time) ([]RentalAgreement, error) {
	var out []RentalAgreement
	err := s.db.WithContext(ctx).
		Where("status = ?", StatusActive).
		Where("(simulated_time IS NOT NULL AND end_date <= simulated_time) OR (simulated_time IS NULL AND end_date <= ?)", now).
		Order("id asc").Find(&out).Error
	if err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}
