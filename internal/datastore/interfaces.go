// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"log/slog"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/platewatch/platewatch-go/internal/conf"
	"github.com/platewatch/platewatch-go/internal/errors"
	"github.com/platewatch/platewatch-go/internal/logging"
)

// Interface abstracts the underlying database implementation and defines
// the operations the rest of the application may perform on plate records.
type Interface interface {
	Open() error
	Close() error
	Save(record *PlateRecord) error
	Get(id string) (PlateRecord, error)
	GetByPlate(plateNumber string) (PlateRecord, error)
	GetRecent(limit int) ([]PlateRecord, error)
	GetAllRecords() ([]PlateRecord, error)
	Update(id string, fields map[string]any) (PlateRecord, error)
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB
}

// updatableColumns are the only PlateRecord fields an Update call may
// touch. ID and DetectedAt are store-assigned and immutable.
var updatableColumns = map[string]bool{
	"plate_number":   true,
	"region":         true,
	"status":         true,
	"detection_type": true,
	"details":        true,
	"confidence":     true,
}

var storeLogger *slog.Logger

func getLogger() *slog.Logger {
	if storeLogger == nil {
		storeLogger = logging.ForService("datastore")
		if storeLogger == nil {
			storeLogger = slog.Default().With("service", "datastore")
		}
	}
	return storeLogger
}

// New creates a store instance based on the enabled output in settings.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{Settings: settings}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{Settings: settings}
	default:
		return nil
	}
}

// Save inserts a new plate record. The database assigns the identifier;
// DetectedAt is stamped here unless the caller already set one, so
// concurrent saves can never collide on either.
func (ds *DataStore) Save(record *PlateRecord) error {
	if ds.DB == nil {
		return errors.Newf("database connection is not initialized").
			Category(errors.CategoryDatabase).
			Build()
	}

	if record.DetectedAt.IsZero() {
		record.DetectedAt = time.Now()
	}

	if err := ds.DB.Create(record).Error; err != nil {
		getLogger().Error("failed to save plate record",
			"plate", record.PlateNumber, "error", err)
		return errors.New(err).
			Category(errors.CategoryDatabase).
			Context("operation", "save").
			Build()
	}

	return nil
}

// Get retrieves a plate record by its ID.
func (ds *DataStore) Get(id string) (PlateRecord, error) {
	recordID, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return PlateRecord{}, errors.Newf("invalid record id %q", id).
			Category(errors.CategoryDatabase).
			Build()
	}

	var record PlateRecord
	if err := ds.DB.First(&record, recordID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PlateRecord{}, errors.NotFound("plate record not found")
		}
		return PlateRecord{}, errors.New(err).
			Category(errors.CategoryDatabase).
			Context("operation", "get").
			Build()
	}
	return record, nil
}

// GetByPlate retrieves the most recent record for a plate number.
func (ds *DataStore) GetByPlate(plateNumber string) (PlateRecord, error) {
	var record PlateRecord
	err := ds.DB.Where("plate_number = ?", plateNumber).
		Order("detected_at DESC, id DESC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PlateRecord{}, errors.NotFound("plate record not found")
		}
		return PlateRecord{}, errors.New(err).
			Category(errors.CategoryDatabase).
			Context("operation", "get_by_plate").
			Build()
	}
	return record, nil
}

// GetRecent returns up to limit records, most recent first. A limit of
// zero or less yields an empty slice.
func (ds *DataStore) GetRecent(limit int) ([]PlateRecord, error) {
	if limit <= 0 {
		return []PlateRecord{}, nil
	}

	var records []PlateRecord
	err := ds.DB.Order("detected_at DESC, id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryDatabase).
			Context("operation", "get_recent").
			Build()
	}
	return records, nil
}

// GetAllRecords returns every stored record without ordering guarantees.
func (ds *DataStore) GetAllRecords() ([]PlateRecord, error) {
	var records []PlateRecord
	if err := ds.DB.Find(&records).Error; err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryDatabase).
			Context("operation", "get_all").
			Build()
	}
	return records, nil
}

// Update applies a partial update to a record and returns the amended
// row. Unknown or immutable fields are ignored rather than rejected, so
// callers can pass request payloads through directly.
func (ds *DataStore) Update(id string, fields map[string]any) (PlateRecord, error) {
	recordID, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return PlateRecord{}, errors.Newf("invalid record id %q", id).
			Category(errors.CategoryDatabase).
			Build()
	}

	updates := make(map[string]any, len(fields))
	for column, value := range fields {
		if updatableColumns[column] {
			updates[column] = value
		}
	}

	if len(updates) > 0 {
		tx := ds.DB.Model(&PlateRecord{}).Where("id = ?", recordID).Updates(updates)
		if tx.Error != nil {
			return PlateRecord{}, errors.New(tx.Error).
				Category(errors.CategoryDatabase).
				Context("operation", "update").
				Build()
		}
		if tx.RowsAffected == 0 {
			return PlateRecord{}, errors.NotFound("plate record not found")
		}
	}

	return ds.Get(id)
}
