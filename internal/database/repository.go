package database

import (
	"github.com/resetwatch/resetwatch/internal/database/models"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Repository provides access to all database models.
type Repository struct {
	nation   *models.NationModel
	scan     *models.ScanModel
	reset    *models.ResetModel
	errorLog *models.ErrorLogModel
}

// NewRepository creates a new repository instance with all models.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		nation:   models.NewNation(db, logger),
		scan:     models.NewScan(db, logger),
		reset:    models.NewReset(db, logger),
		errorLog: models.NewErrorLog(db, logger),
	}
}

// Nation returns the nation model repository.
func (r *Repository) Nation() *models.NationModel {
	return r.nation
}

// Scan returns the scan history model repository.
func (r *Repository) Scan() *models.ScanModel {
	return r.scan
}

// Reset returns the reset record model repository.
func (r *Repository) Reset() *models.ResetModel {
	return r.reset
}

// ErrorLog returns the error sink model repository.
func (r *Repository) ErrorLog() *models.ErrorLogModel {
	return r.errorLog
}
