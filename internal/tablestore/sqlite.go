package tablestore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// forecastRow is the SQLite row shape. Weather numerics stay decimal
// strings, same as the records they carry.
type forecastRow struct {
	CityDate    string `gorm:"primaryKey;column:city_date"`
	City        string `gorm:"index"`
	Timestamp   int64  `gorm:"index"`
	Temperature string
	FeelsLike   string
	Humidity    string
	Description string
}

func (forecastRow) TableName() string {
	return "weather_forecasts"
}

// SQLiteStore is the local table-store driver, for running without AWS.
type SQLiteStore struct {
	db *gorm.DB
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) EnsureTable(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&forecastRow{}); err != nil {
		return fmt.Errorf("%w: migrate: %v", ErrProvision, err)
	}
	return nil
}

func (s *SQLiteStore) PutRecords(ctx context.Context, records []Record) error {
	for _, r := range records {
		row := forecastRow{
			CityDate:    r.CityDate,
			City:        r.City,
			Timestamp:   r.Timestamp,
			Temperature: r.Temperature,
			FeelsLike:   r.FeelsLike,
			Humidity:    r.Humidity,
			Description: r.Description,
		}
		err := s.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "city_date"}},
				UpdateAll: true,
			}).
			Create(&row).Error
		if err != nil {
			return fmt.Errorf("%w: put %s: %v", ErrWrite, r.CityDate, err)
		}
	}
	return nil
}

func (s *SQLiteStore) GetRecord(ctx context.Context, cityDate string) (*Record, error) {
	var row forecastRow
	err := s.db.WithContext(ctx).First(&row, "city_date = ?", cityDate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", cityDate, err)
	}
	return &Record{
		CityDate:    row.CityDate,
		City:        row.City,
		Timestamp:   row.Timestamp,
		Temperature: row.Temperature,
		FeelsLike:   row.FeelsLike,
		Humidity:    row.Humidity,
		Description: row.Description,
	}, nil
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
