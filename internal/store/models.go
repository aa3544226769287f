package store

import "time"

// Image is one row of singora_images. Data is only populated by queries
// that load payloads.
type Image struct {
	ID        int64     `db:"id"`
	Data      []byte    `db:"image"`
	LabelName string    `db:"label_name"`
	Date      time.Time `db:"date"`
	Timestamp time.Time `db:"timestamp"`
}

type ImageCreate struct {
	Data      []byte
	LabelName string
	// Date and Timestamp default to the creation instant when zero.
	Date      time.Time
	Timestamp time.Time
}

// Filter selects images. Zero fields do not constrain the query.
type Filter struct {
	Label string
	Date  time.Time
	From  time.Time
	To    time.Time
}

type Order int

const (
	OrderID Order = iota
	OrderTimestampDesc
	OrderLabelTimestamp
	OrderDateTimestamp
)

type LabelStat struct {
	LabelName    string    `db:"label_name"`
	Count        int       `db:"image_count"`
	EarliestDate time.Time `db:"earliest_date"`
	LatestDate   time.Time `db:"latest_date"`
}

type DateCount struct {
	Date  time.Time `db:"date"`
	Count int       `db:"image_count"`
}
