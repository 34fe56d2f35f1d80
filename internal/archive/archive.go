// Package archive is the durable record of completed downloads, used to skip
// videos that were already fetched in an earlier run.
package archive

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"moul.io/zapgorm2"

	"github.com/Xaypanya/sniperz"
)

// Record is one completed download.
type Record struct {
	VideoID      string `gorm:"primaryKey"`
	Title        string
	SourceURL    string
	Path         string
	DownloadedAt time.Time
}

func (Record) TableName() string {
	return "downloads"
}

type Archive struct {
	db *gorm.DB
}

// Open opens (creating and migrating if necessary) the archive database at
// path. Use ":memory:" for a throwaway archive.
func Open(path string, log *zap.Logger) (*Archive, error) {
	if log == nil {
		log = zap.L()
	}
	gormLogger := zapgorm2.New(log.Named("archive"))
	gormLogger.IgnoreRecordNotFoundError = true
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, err
	}
	return &Archive{db: db}, nil
}

func (a *Archive) IsDownloaded(id sniperz.VideoID) (bool, error) {
	var count int64
	err := a.db.Model(&Record{}).Where("video_id = ?", string(id)).Count(&count).Error
	return count > 0, err
}

func (a *Archive) MarkDownloaded(rec sniperz.VideoRecord) error {
	row := Record{
		VideoID:      string(rec.ID),
		Title:        rec.Title,
		SourceURL:    rec.SourceURL,
		Path:         rec.DestinationPath,
		DownloadedAt: time.Now(),
	}
	return a.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

// List returns every archived download, oldest first.
func (a *Archive) List() ([]Record, error) {
	var records []Record
	err := a.db.Order("downloaded_at").Find(&records).Error
	return records, err
}

func (a *Archive) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Nil is an archive that remembers nothing, for runs without persistence.
type Nil struct{}

func (Nil) IsDownloaded(sniperz.VideoID) (bool, error) { return false, nil }
func (Nil) MarkDownloaded(sniperz.VideoRecord) error   { return nil }
func (Nil) List() ([]Record, error)                    { return nil, nil }
func (Nil) Close() error                               { return nil }
