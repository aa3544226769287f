package export

import (
	"encoding/base64"

	"github.com/arawak/singora/internal/store"
)

// TimestampLayout renders record timestamps with microseconds when present.
const TimestampLayout = "2006-01-02T15:04:05.999999"

// Record is an image in a bulk JSON download, payload base64 encoded.
type Record struct {
	ID        int64   `json:"id"`
	LabelName string  `json:"label_name"`
	Date      string  `json:"date"`
	Timestamp string  `json:"timestamp"`
	Image     *string `json:"image"`
}

func NewRecord(img store.Image) Record {
	r := Record{
		ID:        img.ID,
		LabelName: img.LabelName,
		Date:      img.Date.Format(DateLayout),
		Timestamp: img.Timestamp.Format(TimestampLayout),
	}
	if len(img.Data) > 0 {
		enc := base64.StdEncoding.EncodeToString(img.Data)
		r.Image = &enc
	}
	return r
}

type Pagination struct {
	Page    int  `json:"page"`
	PerPage int  `json:"per_page"`
	Total   int  `json:"total"`
	Pages   int  `json:"pages"`
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
}

type LabelDateFilters struct {
	LabelName string `json:"label_name"`
	Date      string `json:"date"`
}

type LabelDatePage struct {
	Message     string           `json:"message,omitempty"`
	Data        []Record         `json:"data"`
	Pagination  Pagination       `json:"pagination"`
	Filters     LabelDateFilters `json:"filters"`
	DownloadURL string           `json:"download_url,omitempty"`
}

type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type DateRangeBody struct {
	LabelName       string              `json:"label_name"`
	DateRange       DateRange           `json:"date_range"`
	TotalImages     int                 `json:"total_images"`
	DatesWithImages int                 `json:"dates_with_images"`
	Data            map[string][]Record `json:"data"`
	DownloadURL     string              `json:"download_url"`
}

type LabelInfo struct {
	LabelName    string `json:"label_name"`
	ImageCount   int    `json:"image_count"`
	EarliestDate string `json:"earliest_date"`
	LatestDate   string `json:"latest_date"`
}

type Info struct {
	TotalImages       int               `json:"total_images"`
	TotalLabels       int               `json:"total_labels"`
	Labels            []LabelInfo       `json:"labels"`
	DownloadEndpoints map[string]string `json:"download_endpoints"`
}
