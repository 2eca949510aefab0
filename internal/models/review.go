package models

import "time"

// DateLayout is the format of Review.Time.
const DateLayout = "2006-01-02"

// Review is a star-rated review with an attached file.
type Review struct {
	ID        string    `json:"_id" gorm:"primaryKey;type:varchar(36)"`
	Title     string    `json:"title"`
	Content   string    `json:"content" gorm:"type:text"`
	Star      int       `json:"star"`
	File      string    `json:"file" gorm:"type:varchar(255)"`
	Time      string    `json:"time" gorm:"type:varchar(10)"`
	Username  string    `json:"username" gorm:"index;type:varchar(100)"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}
