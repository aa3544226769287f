package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("not found")

const (
	table       = "singora_images"
	metaColumns = "id, label_name, `date`, `timestamp`"
	allColumns  = "id, image, label_name, `date`, `timestamp`"
	dateLayout  = "2006-01-02"
)

var orderClauses = map[Order]string{
	OrderID:             "id ASC",
	OrderTimestampDesc:  "`timestamp` DESC, id DESC",
	OrderLabelTimestamp: "label_name ASC, `timestamp` ASC, id ASC",
	OrderDateTimestamp:  "`date` ASC, `timestamp` ASC, id ASC",
}

type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) CreateImage(ctx context.Context, in ImageCreate) (*Image, error) {
	label, err := ValidateLabel(in.LabelName)
	if err != nil {
		return nil, err
	}
	if len(in.Data) == 0 {
		return nil, fmt.Errorf("image payload is empty")
	}
	ts := in.Timestamp
	if ts.IsZero() {
		ts = s.now().UTC()
	}
	date := in.Date
	if date.IsZero() {
		date = ts
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO "+table+" (image, label_name, `date`, `timestamp`) VALUES (?, ?, ?, ?)",
		in.Data, label, date.Format(dateLayout), ts,
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetImage(ctx, id, false)
}

func (s *Store) GetImage(ctx context.Context, id int64, withData bool) (*Image, error) {
	cols := metaColumns
	if withData {
		cols = allColumns
	}
	var img Image
	err := s.db.GetContext(ctx, &img, "SELECT "+cols+" FROM "+table+" WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &img, nil
}

func (s *Store) DeleteImage(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Labels returns every distinct label_name in ascending order.
func (s *Store) Labels(ctx context.Context) ([]string, error) {
	var labels []string
	if err := s.db.SelectContext(ctx, &labels, "SELECT DISTINCT label_name FROM "+table+" ORDER BY label_name"); err != nil {
		return nil, err
	}
	return labels, nil
}

func (s *Store) FindImages(ctx context.Context, f Filter, order Order) ([]Image, error) {
	where, args := f.where()
	query := "SELECT " + allColumns + " FROM " + table + where + " ORDER BY " + order.clause()
	var rows []Image
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) CountImages(ctx context.Context, f Filter) (int, error) {
	where, args := f.where()
	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM "+table+where, args...); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) PageImages(ctx context.Context, f Filter, order Order, limit, offset int) ([]Image, error) {
	if limit <= 0 {
		return nil, nil
	}
	if offset < 0 {
		offset = 0
	}
	where, args := f.where()
	query := "SELECT " + allColumns + " FROM " + table + where + " ORDER BY " + order.clause() + " LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	var rows []Image
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) LabelStats(ctx context.Context) ([]LabelStat, error) {
	query := "SELECT label_name, COUNT(id) AS image_count, MIN(`date`) AS earliest_date, MAX(`date`) AS latest_date FROM " +
		table + " GROUP BY label_name ORDER BY label_name"
	var stats []LabelStat
	if err := s.db.SelectContext(ctx, &stats, query); err != nil {
		return nil, err
	}
	return stats, nil
}

// DateCounts returns image counts for the most recent limit dates, newest first.
func (s *Store) DateCounts(ctx context.Context, limit int) ([]DateCount, error) {
	if limit <= 0 {
		limit = 30
	}
	query := "SELECT `date`, COUNT(id) AS image_count FROM " + table + " GROUP BY `date` ORDER BY `date` DESC LIMIT ?"
	var counts []DateCount
	if err := s.db.SelectContext(ctx, &counts, query, limit); err != nil {
		return nil, err
	}
	return counts, nil
}

func (f Filter) where() (string, []any) {
	var conds []string
	var args []any
	if f.Label != "" {
		conds = append(conds, "label_name = ?")
		args = append(args, f.Label)
	}
	if !f.Date.IsZero() {
		conds = append(conds, "`date` = ?")
		args = append(args, f.Date.Format(dateLayout))
	}
	if !f.From.IsZero() {
		conds = append(conds, "`date` >= ?")
		args = append(args, f.From.Format(dateLayout))
	}
	if !f.To.IsZero() {
		conds = append(conds, "`date` <= ?")
		args = append(args, f.To.Format(dateLayout))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Match reports whether img satisfies the filter with the same semantics as
// the SQL WHERE clause: dates compare by calendar day.
func (f Filter) Match(img Image) bool {
	if f.Label != "" && img.LabelName != f.Label {
		return false
	}
	day := img.Date.Format(dateLayout)
	if !f.Date.IsZero() && day != f.Date.Format(dateLayout) {
		return false
	}
	if !f.From.IsZero() && day < f.From.Format(dateLayout) {
		return false
	}
	if !f.To.IsZero() && day > f.To.Format(dateLayout) {
		return false
	}
	return true
}

func (o Order) clause() string {
	if c, ok := orderClauses[o]; ok {
		return c
	}
	return orderClauses[OrderID]
}

// Less orders two images the way the SQL ORDER BY clause for o does.
func (o Order) Less(a, b Image) bool {
	switch o {
	case OrderTimestampDesc:
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		return a.ID > b.ID
	case OrderLabelTimestamp:
		if a.LabelName != b.LabelName {
			return a.LabelName < b.LabelName
		}
	case OrderDateTimestamp:
		ad, bd := a.Date.Format(dateLayout), b.Date.Format(dateLayout)
		if ad != bd {
			return ad < bd
		}
	default:
		return a.ID < b.ID
	}
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.ID < b.ID
}
