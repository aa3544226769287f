package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/arawak/singora/internal/archive"
	"github.com/arawak/singora/internal/staging"
	"github.com/arawak/singora/internal/store"
)

const (
	stampLayout     = "20060102_150405"
	clockLayout     = "150405"
	allArchiveName  = "all_images_by_labels.zip"
	stagePattern    = "singora-export-*.zip"
	stageDirPattern = "singora-export-*"
)

// Store is the read side of the image store used by exports.
type Store interface {
	Labels(ctx context.Context) ([]string, error)
	FindImages(ctx context.Context, f store.Filter, order store.Order) ([]store.Image, error)
	CountImages(ctx context.Context, f store.Filter) (int, error)
	PageImages(ctx context.Context, f store.Filter, order store.Order, limit, offset int) ([]store.Image, error)
	LabelStats(ctx context.Context) ([]store.LabelStat, error)
}

type Options struct {
	// Workers bounds how many label archives are built at once by All.
	Workers int
	// BasePath prefixes the URLs reported in JSON bodies.
	BasePath string
	Now      func() time.Time
	Logger   *slog.Logger
}

type Service struct {
	store    Store
	staging  *staging.Manager
	workers  int
	basePath string
	now      func() time.Time
	logger   *slog.Logger
}

func NewService(st Store, stg *staging.Manager, opts Options) *Service {
	s := &Service{
		store:    st,
		staging:  stg,
		workers:  opts.Workers,
		basePath: opts.BasePath,
		now:      opts.Now,
		logger:   opts.Logger,
	}
	if s.workers <= 0 {
		s.workers = 1
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// All exports every label as its own archive, nested in one outer archive.
func (s *Service) All(ctx context.Context) (*Result, error) {
	labels, err := s.store.Labels(ctx)
	if err != nil {
		return nil, storeFailure("list labels", err)
	}
	if len(labels) == 0 {
		return nil, notFound("No images found")
	}

	nested := make([]archive.Entry, len(labels))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, label := range labels {
		g.Go(func() error {
			images, err := s.store.FindImages(gctx, store.Filter{Label: label}, store.OrderID)
			if err != nil {
				return storeFailure("find images for label "+label, err)
			}
			if len(images) == 0 {
				return nil
			}
			data, _, err := archive.BuildBytes(archive.Entries(images, archive.LayoutStamped))
			if err != nil {
				return stagingFailure("build archive for label "+label, err)
			}
			nested[i] = archive.Entry{Name: archive.LabelArchiveName(label), Content: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("all_images_by_labels_%s.zip", s.now().Format(stampLayout))
	return s.stage("all", filename, nested, true)
}

func (s *Service) ByLabel(ctx context.Context, label string) (*Result, error) {
	images, err := s.store.FindImages(ctx, store.Filter{Label: label}, store.OrderTimestampDesc)
	if err != nil {
		return nil, storeFailure("find images by label", err)
	}
	if len(images) == 0 {
		return nil, notFound("No images found for label: %s", label)
	}
	filename := fmt.Sprintf("%s_%s.zip", label, s.now().Format(stampLayout))
	return s.stage("label", filename, archive.Entries(images, archive.LayoutStamped), false)
}

// ByDate exports one date with a folder per label. label optionally narrows
// the export to one label.
func (s *Service) ByDate(ctx context.Context, date, label string) (*Result, error) {
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	images, err := s.store.FindImages(ctx, store.Filter{Label: label, Date: day}, store.OrderLabelTimestamp)
	if err != nil {
		return nil, storeFailure("find images by date", err)
	}
	if len(images) == 0 {
		return nil, notFound("No images found for date: %s", date)
	}
	suffix := ""
	if label != "" {
		suffix = "_" + label
	}
	filename := fmt.Sprintf("images_%s%s_%s.zip", date, suffix, s.now().Format(clockLayout))
	return s.stage("date", filename, archive.Entries(images, archive.LayoutByLabel), false)
}

// ByLabelAndDate exports one label on one date as an archive, or as a page of
// JSON records. An empty JSON page is a successful result.
func (s *Service) ByLabelAndDate(ctx context.Context, req LabelDateRequest) (*Result, error) {
	day, err := ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	format, err := ParseFormat(req.Format)
	if err != nil {
		return nil, err
	}
	f := store.Filter{Label: req.Label, Date: day}

	if format == FormatJSON {
		return s.labelDatePage(ctx, req, f)
	}

	images, err := s.store.FindImages(ctx, f, store.OrderTimestampDesc)
	if err != nil {
		return nil, storeFailure("find images by label and date", err)
	}
	if len(images) == 0 {
		return nil, notFound("No images found for label %q on date %s", req.Label, req.Date)
	}
	filename := fmt.Sprintf("%s_%s_%s.zip", req.Label, req.Date, s.now().Format(clockLayout))
	return s.stage("label_date", filename, archive.Entries(images, archive.LayoutTimeOnly), false)
}

func (s *Service) labelDatePage(ctx context.Context, req LabelDateRequest, f store.Filter) (*Result, error) {
	page, perPage := Paginate(req.Page, req.PerPage)
	filters := LabelDateFilters{LabelName: req.Label, Date: req.Date}

	total, err := s.store.CountImages(ctx, f)
	if err != nil {
		return nil, storeFailure("count images by label and date", err)
	}
	pages := (total + perPage - 1) / perPage

	var images []store.Image
	if page <= pages {
		images, err = s.store.PageImages(ctx, f, store.OrderTimestampDesc, perPage, (page-1)*perPage)
		if err != nil {
			return nil, storeFailure("page images by label and date", err)
		}
	}
	if len(images) == 0 {
		return &Result{Body: LabelDatePage{
			Message:    fmt.Sprintf("No images found for label %q on date %s", req.Label, req.Date),
			Data:       []Record{},
			Pagination: Pagination{Page: page, PerPage: perPage},
			Filters:    filters,
		}}, nil
	}

	records := make([]Record, 0, len(images))
	for _, img := range images {
		records = append(records, NewRecord(img))
	}
	return &Result{Body: LabelDatePage{
		Data: records,
		Pagination: Pagination{
			Page:    page,
			PerPage: perPage,
			Total:   total,
			Pages:   pages,
			HasNext: page < pages,
			HasPrev: page > 1,
		},
		Filters:     filters,
		DownloadURL: s.basePath + "/images/download/label/" + url.PathEscape(req.Label) + "/date/" + req.Date + "?format=zip",
	}}, nil
}

// ByLabelAndDateRange exports one label between two dates, inclusive, as an
// archive or as JSON grouped by date.
func (s *Service) ByLabelAndDateRange(ctx context.Context, req DateRangeRequest) (*Result, error) {
	if req.From == "" || req.To == "" {
		e := badRequest("Both date_from and date_to parameters are required")
		e.Details = map[string]any{
			"example": s.basePath + "/images/download/label/" + url.PathEscape(req.Label) + "/date-range?date_from=2024-01-01&date_to=2024-01-31",
		}
		return nil, e
	}
	from, err := ParseDate(req.From)
	if err != nil {
		return nil, err
	}
	to, err := ParseDate(req.To)
	if err != nil {
		return nil, err
	}
	if from.After(to) {
		return nil, badRequest("date_from cannot be later than date_to")
	}
	format, err := ParseFormat(req.Format)
	if err != nil {
		return nil, err
	}

	images, err := s.store.FindImages(ctx, store.Filter{Label: req.Label, From: from, To: to}, store.OrderDateTimestamp)
	if err != nil {
		return nil, storeFailure("find images by label and date range", err)
	}
	if len(images) == 0 {
		return nil, notFound("No images found for label %q between %s and %s", req.Label, req.From, req.To)
	}

	if format == FormatJSON {
		byDate := make(map[string][]Record)
		for _, img := range images {
			key := img.Date.Format(DateLayout)
			byDate[key] = append(byDate[key], NewRecord(img))
		}
		q := url.Values{"date_from": {req.From}, "date_to": {req.To}, "format": {"zip"}}
		return &Result{Body: DateRangeBody{
			LabelName:       req.Label,
			DateRange:       DateRange{From: req.From, To: req.To},
			TotalImages:     len(images),
			DatesWithImages: len(byDate),
			Data:            byDate,
			DownloadURL:     s.basePath + "/images/download/label/" + url.PathEscape(req.Label) + "/date-range?" + q.Encode(),
		}}, nil
	}

	layout := archive.LayoutStamped
	if organizeByDate(req.OrganizeByDate) {
		layout = archive.LayoutByDate
	}
	filename := fmt.Sprintf("%s_%s_to_%s_%s.zip", req.Label, req.From, req.To, s.now().Format(stampLayout))
	return s.stage("label_date_range", filename, archive.Entries(images, layout), false)
}

// Info summarizes what can be downloaded.
func (s *Service) Info(ctx context.Context) (*Info, error) {
	stats, err := s.store.LabelStats(ctx)
	if err != nil {
		return nil, storeFailure("label stats", err)
	}
	total, err := s.store.CountImages(ctx, store.Filter{})
	if err != nil {
		return nil, storeFailure("count images", err)
	}

	labels := make([]LabelInfo, 0, len(stats))
	for _, st := range stats {
		labels = append(labels, LabelInfo{
			LabelName:    st.LabelName,
			ImageCount:   st.Count,
			EarliestDate: st.EarliestDate.Format(DateLayout),
			LatestDate:   st.LatestDate.Format(DateLayout),
		})
	}
	base := s.basePath + "/images/download"
	return &Info{
		TotalImages: total,
		TotalLabels: len(stats),
		Labels:      labels,
		DownloadEndpoints: map[string]string{
			"all_labels":              base + "/all",
			"by_label":                base + "/label/<label_name>",
			"by_date":                 base + "/date/<date>",
			"by_label_and_date":       base + "/label/<label_name>/date/<date>",
			"by_label_and_date_range": base + "/label/<label_name>/date-range?date_from=YYYY-MM-DD&date_to=YYYY-MM-DD",
			"info":                    base + "/info",
		},
	}, nil
}

func (s *Service) stage(op, filename string, entries []archive.Entry, nested bool) (*Result, error) {
	var written int
	fill := func(w io.Writer) error {
		n, err := archive.Build(w, entries)
		written = n
		return err
	}

	var res *staging.Resource
	var err error
	if nested {
		res, err = s.staging.StageInDir(stageDirPattern, allArchiveName, fill)
	} else {
		res, err = s.staging.StageFile(stagePattern, fill)
	}
	if err != nil {
		return nil, stagingFailure("stage "+op+" archive", err)
	}

	d := &Download{ID: uuid.NewString(), Filename: filename, Entries: written, res: res}
	s.logger.Info("export staged", "op", op, "export_id", d.ID, "filename", filename, "entries", written)
	return &Result{Download: d}, nil
}
