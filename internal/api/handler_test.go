package api

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ginjaninja78/felica-ledger/internal/card"
	"github.com/ginjaninja78/felica-ledger/internal/decoder"
	"github.com/ginjaninja78/felica-ledger/internal/logger"
	"github.com/ginjaninja78/felica-ledger/internal/scanner"
	"github.com/ginjaninja78/felica-ledger/internal/writer"
	"github.com/gofiber/fiber/v2"
)

func historyBlock(machine, process byte, day int, balance int16) []byte {
	raw, err := decoder.PackDate(2023, 6, day)
	if err != nil {
		panic(err)
	}
	b := make([]byte, decoder.BlockSize)
	b[0], b[1] = machine, process
	b[4], b[5] = byte(raw>>8), byte(raw)
	binary.LittleEndian.PutUint16(b[10:], uint16(balance))
	return b
}

func dumpText(t *testing.T) string {
	t.Helper()
	balance := make([]byte, decoder.BlockSize)
	binary.LittleEndian.PutUint16(balance[11:], 1240)

	d := make(card.Dump)
	d.Set(card.ServiceBalance, 0, balance)
	d.Set(card.ServiceHistory, 0, historyBlock(0x16, 0x01, 4, 1240))
	d.Set(card.ServiceHistory, 1, historyBlock(0x16, 0x01, 3, 1400))
	d.Set(card.ServiceHistory, 2, historyBlock(0x08, 0x02, 2, 1600))
	d.Set(card.ServiceHistory, 3, historyBlock(0x16, 0x01, 1, 600))

	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}

type recordingArchive struct {
	docs []writer.Document
	err  error
}

func (a *recordingArchive) Save(ctx context.Context, doc writer.Document) error {
	a.docs = append(a.docs, doc)
	return a.err
}

func setupTestApp(archive Archiver) *fiber.App {
	log := logger.NewWithWriter(io.Discard)
	s := scanner.New(nil, scanner.Options{HistoryCount: 4}, log)
	return NewApp(NewHandler(scanner.NewSession(s), archive, "test", log))
}

func do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, body
}

func decode(t *testing.T, body []byte) LedgerResponse {
	t.Helper()
	var r LedgerResponse
	if err := json.Unmarshal(body, &r); err != nil {
		t.Fatalf("failed to decode response: %v\n%s", err, body)
	}
	return r
}

func TestHealthEndpoint(t *testing.T) {
	app := setupTestApp(nil)

	resp, body := do(t, app, httptest.NewRequest("GET", "/api/health", nil))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result map[string]string
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatal(err)
	}
	if result["status"] != "ok" || result["version"] != "test" {
		t.Errorf("health = %v", result)
	}
}

func TestScanLifecycle(t *testing.T) {
	archive := &recordingArchive{}
	app := setupTestApp(archive)

	resp, _ := do(t, app, httptest.NewRequest("GET", "/api/ledger", nil))
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("empty session: expected 404, got %d", resp.StatusCode)
	}

	req := httptest.NewRequest("POST", "/api/scan", strings.NewReader(dumpText(t)))
	req.Header.Set("Content-Type", "text/plain")
	resp, body := do(t, app, req)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("scan: expected 200, got %d: %s", resp.StatusCode, body)
	}

	scanned := decode(t, body)
	if !scanned.Success || scanned.Count != 3 || scanned.Ledger.Balance != 1240 {
		t.Fatalf("scan response = %+v", scanned)
	}
	if scanned.Ledger.Rows[0].TripRole != "exit" || scanned.Errors != 0 {
		t.Errorf("rows = %+v, errors = %d", scanned.Ledger.Rows, scanned.Errors)
	}
	if len(archive.docs) != 1 || archive.docs[0].Source != "request" {
		t.Errorf("archive = %+v", archive.docs)
	}

	resp, body = do(t, app, httptest.NewRequest("GET", "/api/ledger", nil))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("ledger: expected 200, got %d", resp.StatusCode)
	}
	if got := decode(t, body); got.Ledger.ScanID != scanned.Ledger.ScanID {
		t.Errorf("ledger scan %q, want %q", got.Ledger.ScanID, scanned.Ledger.ScanID)
	}

	resp, _ = do(t, app, httptest.NewRequest("DELETE", "/api/ledger", nil))
	if resp.StatusCode != fiber.StatusNoContent {
		t.Errorf("delete: expected 204, got %d", resp.StatusCode)
	}

	resp, _ = do(t, app, httptest.NewRequest("GET", "/api/ledger", nil))
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("after clear: expected 404, got %d", resp.StatusCode)
	}
}

func TestFailedScanKeepsSnapshot(t *testing.T) {
	app := setupTestApp(nil)

	req := httptest.NewRequest("POST", "/api/scan", strings.NewReader(dumpText(t)))
	_, body := do(t, app, req)
	first := decode(t, body)

	// Balance block only: the history read fails.
	partial := strings.SplitN(dumpText(t), "\n", 2)[0] + "\n"
	resp, body := do(t, app, httptest.NewRequest("POST", "/api/scan", strings.NewReader(partial)))
	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", resp.StatusCode, body)
	}
	if got := decode(t, body); got.Success || got.Error == "" {
		t.Errorf("error response = %+v", got)
	}

	_, body = do(t, app, httptest.NewRequest("GET", "/api/ledger", nil))
	if got := decode(t, body); got.Ledger.ScanID != first.Ledger.ScanID {
		t.Errorf("snapshot replaced by failed scan")
	}
}

func TestScanMultipart(t *testing.T) {
	app := setupTestApp(nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("dump", "suica.dump")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte(dumpText(t))); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("POST", "/api/scan", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, body := do(t, app, req)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	if got := decode(t, body); got.Ledger.Source != "suica.dump" {
		t.Errorf("source = %q", got.Ledger.Source)
	}
}

func TestScanBadRequests(t *testing.T) {
	app := setupTestApp(nil)

	tests := map[string]*http.Request{
		"empty body":   httptest.NewRequest("POST", "/api/scan", nil),
		"invalid dump": httptest.NewRequest("POST", "/api/scan", strings.NewReader("zz zz zz\n")),
	}
	missingField := httptest.NewRequest("POST", "/api/scan", nil)
	missingField.Header.Set("Content-Type", "multipart/form-data; boundary=----test")
	tests["missing form field"] = missingField

	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			resp, _ := do(t, app, req)
			if resp.StatusCode != fiber.StatusBadRequest {
				t.Errorf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestLedgerDownload(t *testing.T) {
	app := setupTestApp(&recordingArchive{err: errors.New("archive down")})
	do(t, app, httptest.NewRequest("POST", "/api/scan", strings.NewReader(dumpText(t))))

	resp, body := do(t, app, httptest.NewRequest("GET", "/api/ledger?format=csv", nil))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(resp.Header.Get("Content-Disposition"), ".csv") {
		t.Errorf("disposition = %q", resp.Header.Get("Content-Disposition"))
	}
	if !strings.Contains(string(body), "# Balance") {
		t.Errorf("csv body:\n%s", body)
	}

	resp, body = do(t, app, httptest.NewRequest("GET", "/api/ledger?format=xml", nil))
	if resp.StatusCode != fiber.StatusOK || !strings.Contains(string(body), "<ledger") {
		t.Errorf("xml: %d %s", resp.StatusCode, body)
	}

	resp, _ = do(t, app, httptest.NewRequest("GET", "/api/ledger?format=pdf", nil))
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("pdf: expected 400, got %d", resp.StatusCode)
	}
}
