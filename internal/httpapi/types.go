package httpapi

import "github.com/arawak/singora/internal/export"

type HealthStatus string

const (
	Healthy   HealthStatus = "healthy"
	Unhealthy HealthStatus = "unhealthy"
)

// Health is the body of /health and /readyz.
type Health struct {
	Status    HealthStatus `json:"status"`
	Timestamp string       `json:"timestamp"`
	Database  string       `json:"database"`
	Staging   string       `json:"staging,omitempty"`
}

type Error struct {
	Code    string                  `json:"code"`
	Message string                  `json:"message"`
	Details *map[string]interface{} `json:"details,omitempty"`
}

// ImageId is the numeric id of an image record.
type ImageId = int64

type LabelName = string

// DatePath is a YYYY-MM-DD path segment. It is bound as a string and parsed
// by the export service so malformed values get its error message.
type DatePath = string

type ImageMetadata struct {
	Id        int64  `json:"id"`
	LabelName string `json:"label_name"`
	Date      string `json:"date"`
	Timestamp string `json:"timestamp"`
}

type UploadResponse struct {
	Message string        `json:"message"`
	Data    ImageMetadata `json:"data"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type LabelCount struct {
	LabelName string `json:"label_name"`
	Count     int    `json:"count"`
}

type LabelListResponse struct {
	Data []LabelCount `json:"data"`
}

type DateCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type StatsResponse struct {
	TotalImages  int         `json:"total_images"`
	TotalLabels  int         `json:"total_labels"`
	ImagesByDate []DateCount `json:"images_by_date"`
}

type DownloadInfoResponse = export.Info

// DownloadByDateParams defines parameters for DownloadByDate.
type DownloadByDateParams struct {
	LabelName *string `form:"label_name,omitempty" json:"label_name,omitempty"`
}

// DownloadByLabelAndDateParams defines parameters for DownloadByLabelAndDate.
type DownloadByLabelAndDateParams struct {
	Format  *string `form:"format,omitempty" json:"format,omitempty"`
	Page    *int    `form:"page,omitempty" json:"page,omitempty"`
	PerPage *int    `form:"per_page,omitempty" json:"per_page,omitempty"`
}

// DownloadByLabelAndDateRangeParams defines parameters for DownloadByLabelAndDateRange.
type DownloadByLabelAndDateRangeParams struct {
	DateFrom       *string `form:"date_from,omitempty" json:"date_from,omitempty"`
	DateTo         *string `form:"date_to,omitempty" json:"date_to,omitempty"`
	Format         *string `form:"format,omitempty" json:"format,omitempty"`
	OrganizeByDate *string `form:"organize_by_date,omitempty" json:"organize_by_date,omitempty"`
}
