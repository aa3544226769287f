//go:build integration

package singora

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/klauspost/compress/zip"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/arawak/singora/internal/config"
	"github.com/arawak/singora/internal/export"
	"github.com/arawak/singora/internal/httpapi"
	"github.com/arawak/singora/internal/media"
	"github.com/arawak/singora/internal/staging"
	"github.com/arawak/singora/internal/store"
	"github.com/arawak/singora/migrations"
)

const apiKey = "integration-key"

func startMaria(t *testing.T, ctx context.Context) (testcontainers.Container, string) {
	req := testcontainers.ContainerRequest{
		Image:        "mariadb:11.4",
		Env:          map[string]string{"MARIADB_ROOT_PASSWORD": "root", "MARIADB_DATABASE": "singora", "MARIADB_USER": "singora", "MARIADB_PASSWORD": "singora"},
		ExposedPorts: []string{"3306/tcp"},
		WaitingFor:   wait.ForListeningPort("3306/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("start mariadb: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "3306/tcp")
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	dsn := fmt.Sprintf("singora:singora@tcp(%s:%s)/singora?parseTime=true&multiStatements=true", host, port.Port())
	return container, dsn
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()

	container, dsn := startMaria(t, ctx)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	if err := migrations.Up(dsn); err != nil {
		t.Fatalf("migrations failed: %v", err)
	}
	if v, dirty, err := migrations.Version(dsn); err != nil || dirty || v != 1 {
		t.Fatalf("unexpected schema version %d dirty=%v err=%v", v, dirty, err)
	}

	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		t.Fatalf("db connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		Bind:           ":0",
		DBDSN:          dsn,
		MaxUploadBytes: config.DefaultMaxUploadBytes,
		MaxPixels:      config.DefaultMaxPixels,
		ExportWorkers:  2,
		RequestTimeout: 30 * time.Second,
		AuthMode:       config.AuthAPIKey,
		APIKey:         apiKey,
		APIKeyHeader:   config.DefaultAPIKeyHeader,
		SwaggerUIPath:  "/swagger",
		OpenAPIPath:    "/openapi.yaml",
	}
	st := store.New(db)
	stg := staging.NewManager(t.TempDir())
	exports := export.NewService(st, stg, export.Options{Workers: cfg.ExportWorkers, BasePath: httpapi.APIPrefix})
	ts := httptest.NewServer(httpapi.NewRouter(cfg, httpapi.Deps{
		Images:    st,
		Exports:   exports,
		Staging:   stg,
		Validator: media.NewValidator(cfg.MaxUploadBytes, cfg.MaxPixels),
	}))
	t.Cleanup(ts.Close)

	first := seed(t, ctx, st, "cat", time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC))
	second := seed(t, ctx, st, "cat", time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC))

	names := downloadNames(t, ts.URL+"/api/v1/images/download/label/cat")
	expect := fmt.Sprintf("20240115_103000_%d.jpg,20240115_090000_%d.jpg", second, first)
	if strings.Join(names, ",") != expect {
		t.Fatalf("label export: got %v, expected %s", names, expect)
	}

	names = downloadNames(t, ts.URL+"/api/v1/images/download/date/2024-01-15")
	expect = fmt.Sprintf("cat/090000_%d.jpg,cat/103000_%d.jpg", first, second)
	if strings.Join(names, ",") != expect {
		t.Fatalf("date export: got %v, expected %s", names, expect)
	}

	uploaded := upload(t, ts.URL+"/api/v1/images", "dog")
	names = downloadNames(t, ts.URL+"/api/v1/images/download/all")
	if strings.Join(names, ",") != "cat.zip,dog.zip" {
		t.Fatalf("all export: got %v", names)
	}

	var page export.LabelDatePage
	getJSON(t, ts.URL+"/api/v1/images/download/label/cat/date/2024-01-15?format=json&per_page=1&page=2", &page)
	if page.Pagination.Total != 2 || len(page.Data) != 1 || page.Data[0].ID != first {
		t.Fatalf("unexpected page %+v", page)
	}

	var rng export.DateRangeBody
	getJSON(t, ts.URL+"/api/v1/images/download/label/cat/date-range?date_from=2024-01-01&date_to=2024-01-31&format=json", &rng)
	if rng.TotalImages != 2 || rng.DatesWithImages != 1 {
		t.Fatalf("unexpected range body %+v", rng)
	}

	var info export.Info
	getJSON(t, ts.URL+"/api/v1/images/download/info", &info)
	if info.TotalImages != 3 || info.TotalLabels != 2 {
		t.Fatalf("unexpected info %+v", info)
	}

	deleteImage(t, ts.URL+"/api/v1/images/", uploaded)
	readyz(t, ts.URL+"/readyz")

	if stg.Active() != 0 {
		t.Fatalf("staged exports leaked: %d", stg.Active())
	}
}

func seed(t *testing.T, ctx context.Context, st *store.Store, label string, ts time.Time) int64 {
	img, err := st.CreateImage(ctx, store.ImageCreate{Data: pngBytes(t), LabelName: label, Timestamp: ts})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !img.Timestamp.Equal(ts) || img.Date.Format("2006-01-02") != ts.Format("2006-01-02") {
		t.Fatalf("timestamp did not round-trip: %+v", img)
	}
	return img.ID
}

func pngBytes(t *testing.T) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func do(t *testing.T, req *http.Request) *http.Response {
	req.Header.Set(config.DefaultAPIKeyHeader, apiKey)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL, err)
	}
	return resp
}

func upload(t *testing.T, url, label string) int64 {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	w, err := mw.CreateFormFile("image", "sample.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = w.Write(pngBytes(t))
	_ = mw.WriteField("label_name", label)
	mw.Close()

	req, _ := http.NewRequest(http.MethodPost, url, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp := do(t, req)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("unexpected status %d body %s", resp.StatusCode, string(body))
	}
	var out httpapi.UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode upload: %v", err)
	}
	if out.Data.Id == 0 || out.Data.LabelName != label {
		t.Fatalf("unexpected upload response %+v", out)
	}
	return out.Data.Id
}

func downloadNames(t *testing.T, url string) []string {
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	resp := do(t, req)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d body %s", resp.StatusCode, string(body))
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/zip" {
		t.Fatalf("unexpected content type %s", ct)
	}
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func getJSON(t *testing.T, url string, dest any) {
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	resp := do(t, req)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("unexpected status %d body %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func deleteImage(t *testing.T, base string, id int64) {
	req, _ := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s%d", base, id), nil)
	resp := do(t, req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status %d", resp.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodGet, fmt.Sprintf("%s%d", base, id), nil)
	resp = do(t, req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
	}
}

func readyz(t *testing.T, url string) {
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("readyz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("readyz status %d body %s", resp.StatusCode, string(body))
	}
}
