package materials

import "time"

// StoredObject is the database-backed object store row, used when no
// bucket is configured.
type StoredObject struct {
	Key         string    `gorm:"column:key;primaryKey" json:"key"`
	ContentType string    `gorm:"column:content_type" json:"content_type"`
	Size        int64     `gorm:"column:size;not null" json:"size"`
	Data        []byte    `gorm:"column:data" json:"-"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (StoredObject) TableName() string { return "stored_object" }
