// Package storetest provides an in-memory image store with the same filter
// and ordering semantics as the MySQL store, for use in tests.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/arawak/singora/internal/store"
)

type Memory struct {
	mu     sync.Mutex
	images []store.Image
	nextID int64
	calls  int

	// Err, when set, is returned by every query.
	Err error
}

func NewMemory() *Memory {
	return &Memory{nextID: 1}
}

// Add inserts an image as is. A zero ID is replaced by the next free id.
func (m *Memory) Add(img store.Image) store.Image {
	m.mu.Lock()
	defer m.mu.Unlock()
	if img.ID == 0 {
		img.ID = m.nextID
	}
	if img.ID >= m.nextID {
		m.nextID = img.ID + 1
	}
	m.images = append(m.images, img)
	return img
}

// Calls reports how many store operations have been invoked.
func (m *Memory) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *Memory) begin() error {
	m.mu.Lock()
	m.calls++
	return m.Err
}

func (m *Memory) Ping(ctx context.Context) error {
	defer m.mu.Unlock()
	return m.begin()
}

func (m *Memory) CreateImage(ctx context.Context, in store.ImageCreate) (*store.Image, error) {
	defer m.mu.Unlock()
	if err := m.begin(); err != nil {
		return nil, err
	}
	label, err := store.ValidateLabel(in.LabelName)
	if err != nil {
		return nil, err
	}
	ts := in.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	date := in.Date
	if date.IsZero() {
		date = time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
	}
	img := store.Image{ID: m.nextID, Data: append([]byte(nil), in.Data...), LabelName: label, Date: date, Timestamp: ts}
	m.nextID++
	m.images = append(m.images, img)
	img.Data = nil
	return &img, nil
}

func (m *Memory) GetImage(ctx context.Context, id int64, withData bool) (*store.Image, error) {
	defer m.mu.Unlock()
	if err := m.begin(); err != nil {
		return nil, err
	}
	for _, img := range m.images {
		if img.ID == id {
			if !withData {
				img.Data = nil
			}
			return &img, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *Memory) DeleteImage(ctx context.Context, id int64) error {
	defer m.mu.Unlock()
	if err := m.begin(); err != nil {
		return err
	}
	for i, img := range m.images {
		if img.ID == id {
			m.images = append(m.images[:i], m.images[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *Memory) Labels(ctx context.Context) ([]string, error) {
	defer m.mu.Unlock()
	if err := m.begin(); err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var labels []string
	for _, img := range m.images {
		if !seen[img.LabelName] {
			seen[img.LabelName] = true
			labels = append(labels, img.LabelName)
		}
	}
	sort.Strings(labels)
	return labels, nil
}

func (m *Memory) FindImages(ctx context.Context, f store.Filter, order store.Order) ([]store.Image, error) {
	defer m.mu.Unlock()
	if err := m.begin(); err != nil {
		return nil, err
	}
	return m.find(f, order), nil
}

func (m *Memory) CountImages(ctx context.Context, f store.Filter) (int, error) {
	defer m.mu.Unlock()
	if err := m.begin(); err != nil {
		return 0, err
	}
	return len(m.find(f, store.OrderID)), nil
}

func (m *Memory) PageImages(ctx context.Context, f store.Filter, order store.Order, limit, offset int) ([]store.Image, error) {
	defer m.mu.Unlock()
	if err := m.begin(); err != nil {
		return nil, err
	}
	rows := m.find(f, order)
	if limit <= 0 || offset >= len(rows) {
		return nil, nil
	}
	if offset < 0 {
		offset = 0
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end], nil
}

func (m *Memory) LabelStats(ctx context.Context) ([]store.LabelStat, error) {
	defer m.mu.Unlock()
	if err := m.begin(); err != nil {
		return nil, err
	}
	byLabel := map[string]*store.LabelStat{}
	var order []string
	for _, img := range m.images {
		st, ok := byLabel[img.LabelName]
		if !ok {
			st = &store.LabelStat{LabelName: img.LabelName, EarliestDate: img.Date, LatestDate: img.Date}
			byLabel[img.LabelName] = st
			order = append(order, img.LabelName)
		}
		st.Count++
		if img.Date.Before(st.EarliestDate) {
			st.EarliestDate = img.Date
		}
		if img.Date.After(st.LatestDate) {
			st.LatestDate = img.Date
		}
	}
	sort.Strings(order)
	stats := make([]store.LabelStat, 0, len(order))
	for _, l := range order {
		stats = append(stats, *byLabel[l])
	}
	return stats, nil
}

func (m *Memory) DateCounts(ctx context.Context, limit int) ([]store.DateCount, error) {
	defer m.mu.Unlock()
	if err := m.begin(); err != nil {
		return nil, err
	}
	byDate := map[string]*store.DateCount{}
	var keys []string
	for _, img := range m.images {
		k := img.Date.Format("2006-01-02")
		dc, ok := byDate[k]
		if !ok {
			dc = &store.DateCount{Date: img.Date}
			byDate[k] = dc
			keys = append(keys, k)
		}
		dc.Count++
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	counts := make([]store.DateCount, 0, len(keys))
	for _, k := range keys {
		counts = append(counts, *byDate[k])
	}
	return counts, nil
}

func (m *Memory) find(f store.Filter, order store.Order) []store.Image {
	var rows []store.Image
	for _, img := range m.images {
		if f.Match(img) {
			img.Data = append([]byte(nil), img.Data...)
			rows = append(rows, img)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return order.Less(rows[i], rows[j]) })
	return rows
}
