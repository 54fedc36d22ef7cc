package models

// OrderCounter is the single-writer source for daily order numbers.
// Day is the calendar date formatted YYYYMMDD; LastSeq only moves forward.
type OrderCounter struct {
	Day     string `gorm:"column:day;primaryKey"`
	LastSeq int    `gorm:"column:last_seq;not null;default:0"`
}
