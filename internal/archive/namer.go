package archive

import (
	"strconv"

	"github.com/arawak/singora/internal/store"
)

// Layout selects how an image is named inside an archive. Every layout ends
// in the image id so that images sharing a timestamp never collide.
type Layout int

const (
	// LayoutStamped: 20240115_103000_2.jpg
	LayoutStamped Layout = iota
	// LayoutTimeOnly: 103000_2.jpg, for archives scoped to a single date.
	LayoutTimeOnly
	// LayoutByLabel: cat/103000_2.jpg
	LayoutByLabel
	// LayoutByDate: 2024-01-15/103000_2.jpg
	LayoutByDate
)

const (
	stampLayout = "20060102_150405"
	timeLayout  = "150405"
	dayLayout   = "2006-01-02"
)

func Name(img store.Image, layout Layout) string {
	suffix := "_" + strconv.FormatInt(img.ID, 10) + ".jpg"
	switch layout {
	case LayoutTimeOnly:
		return img.Timestamp.Format(timeLayout) + suffix
	case LayoutByLabel:
		return img.LabelName + "/" + img.Timestamp.Format(timeLayout) + suffix
	case LayoutByDate:
		return img.Date.Format(dayLayout) + "/" + img.Timestamp.Format(timeLayout) + suffix
	default:
		return img.Timestamp.Format(stampLayout) + suffix
	}
}

// LabelArchiveName names a per-label archive nested in the export of all labels.
func LabelArchiveName(label string) string {
	return label + ".zip"
}

// Entries names images with layout, preserving their order.
func Entries(images []store.Image, layout Layout) []Entry {
	entries := make([]Entry, 0, len(images))
	for _, img := range images {
		entries = append(entries, Entry{
			Name:     Name(img, layout),
			Content:  img.Data,
			Modified: img.Timestamp,
		})
	}
	return entries
}
