package settings

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/dariomontes/vendortax-backend/pkg/db/models"
	"github.com/dariomontes/vendortax-backend/pkg/enums"
	pkgerrors "github.com/dariomontes/vendortax-backend/pkg/errors"
	"github.com/dariomontes/vendortax-backend/pkg/types"
)

// Installation setting keys.
const (
	KeyRemitterMode       = "tax.remitter_mode"
	KeyReportingEnabled   = "tax.reporting_enabled"
	KeyReportingStartDate = "tax.reporting_start_date"
	KeyStoreBaseAddress   = "store.base_address"
)

// Service reads and writes installation-level key-value settings.
type Service struct {
	db *gorm.DB
}

// NewService builds a settings service tied to the provided GORM DB.
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settings service requires a db")
	}
	return &Service{db: db}, nil
}

// Get returns the raw value for key and whether it was present.
func (s *Service) Get(ctx context.Context, key string) (string, bool, error) {
	var row models.Setting
	err := s.db.WithContext(ctx).First(&row, "key = ?", key).Error
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return row.Value, true, nil
}

// Set upserts the value for key.
func (s *Service) Set(ctx context.Context, key, value string) error {
	row := models.Setting{Key: key, Value: value}
	return s.db.WithContext(ctx).Save(&row).Error
}

// RemitterMode returns who remits collected tax. Defaults to the marketplace
// when unset.
func (s *Service) RemitterMode(ctx context.Context) (enums.RemitterMode, error) {
	raw, ok, err := s.Get(ctx, KeyRemitterMode)
	if err != nil {
		return "", err
	}
	if !ok {
		return enums.RemitterMarketplace, nil
	}
	mode, err := enums.ParseRemitterMode(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid remitter mode setting")
	}
	return mode, nil
}

// ReportingEnabled reports whether refund reporting is switched on.
func (s *Service) ReportingEnabled(ctx context.Context) (bool, error) {
	raw, ok, err := s.Get(ctx, KeyReportingEnabled)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	enabled, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reporting enabled setting")
	}
	return enabled, nil
}

// ReportingStartDate returns the earliest transaction date eligible for upload,
// or nil when no watermark has been recorded yet.
func (s *Service) ReportingStartDate(ctx context.Context) (*time.Time, error) {
	raw, ok, err := s.Get(ctx, KeyReportingStartDate)
	if err != nil {
		return nil, err
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reporting start date setting")
	}
	return &parsed, nil
}

// SetReportingStartDate records the reporting watermark.
func (s *Service) SetReportingStartDate(ctx context.Context, at time.Time) error {
	return s.Set(ctx, KeyReportingStartDate, at.UTC().Format(time.RFC3339))
}

// StoreBaseAddress returns the marketplace's base address, used as the
// marketplace nexus fallback and the local-pickup destination. Nil when unset.
func (s *Service) StoreBaseAddress(ctx context.Context) (*types.Address, error) {
	raw, ok, err := s.Get(ctx, KeyStoreBaseAddress)
	if err != nil {
		return nil, err
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var addr types.Address
	if err := json.Unmarshal([]byte(raw), &addr); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid base address setting")
	}
	return &addr, nil
}
