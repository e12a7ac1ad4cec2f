// Package api exposes a scan session over HTTP.
//
//	GET    /api/health             liveness
//	POST   /api/scan               scan a dump (text body or multipart field "dump")
//	GET    /api/ledger             current snapshot; ?format=csv|json|xml|xlsx downloads it
//	DELETE /api/ledger             clear the session
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ginjaninja78/felica-ledger/internal/card"
	"github.com/ginjaninja78/felica-ledger/internal/converter"
	"github.com/ginjaninja78/felica-ledger/internal/scanner"
	"github.com/ginjaninja78/felica-ledger/internal/validation"
	"github.com/ginjaninja78/felica-ledger/internal/writer"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// MaxDumpSize bounds request bodies.
const MaxDumpSize = 1 << 20

// LedgerResponse is the JSON body of scan and ledger responses.
type LedgerResponse struct {
	Success  bool             `json:"success"`
	Error    string           `json:"error,omitempty"`
	Ledger   *writer.Document `json:"ledger,omitempty"`
	Count    int              `json:"count"`
	Errors   int              `json:"errors"`
	Warnings int              `json:"warnings"`
	Findings []string         `json:"findings,omitempty"`
}

// Archiver stores scan documents.
type Archiver interface {
	Save(ctx context.Context, doc writer.Document) error
}

// Handler holds the HTTP handlers for the API.
type Handler struct {
	session   *scanner.Session
	validator *validation.Validator
	archive   Archiver
	version   string
	log       zerolog.Logger
}

// NewHandler creates handlers over session. archive may be nil.
func NewHandler(session *scanner.Session, archive Archiver, version string, log zerolog.Logger) *Handler {
	return &Handler{
		session:   session,
		validator: validation.NewValidator(),
		archive:   archive,
		version:   version,
		log:       log,
	}
}

// NewApp returns a fiber app with the routes registered.
func NewApp(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "felica-ledger",
		BodyLimit:             MaxDumpSize,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	h.RegisterRoutes(app)
	return app
}

// RegisterRoutes sets up the HTTP routes.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Get("/api/health", h.HandleHealth)
	app.Post("/api/scan", h.HandleScan)
	app.Get("/api/ledger", h.HandleLedger)
	app.Delete("/api/ledger", h.HandleClear)
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": h.version,
	})
}

// HandleScan parses the posted dump and scans it into the session. A failed
// scan keeps the previous snapshot.
func (h *Handler) HandleScan(c *fiber.Ctx) error {
	data, source, err := readDump(c)
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, err.Error())
	}

	dump, err := card.ParseDump(bytes.NewReader(data))
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, fmt.Sprintf("invalid dump: %v", err))
	}

	snap, err := h.session.Scan(c.UserContext(), card.NewDumpReader(dump))
	if err != nil {
		h.log.Warn().Err(err).Str("source", source).Msg("scan failed")
		return writeError(c, fiber.StatusUnprocessableEntity, err.Error())
	}

	doc := writer.NewDocument(snap, source)
	if h.archive != nil {
		if err := h.archive.Save(c.UserContext(), doc); err != nil {
			h.log.Warn().Err(err).Str("scan_id", snap.ID).Msg("failed to archive snapshot")
		}
	}

	return c.JSON(h.response(snap, doc))
}

// HandleLedger returns the current snapshot.
func (h *Handler) HandleLedger(c *fiber.Ctx) error {
	snap, ok := h.session.Current()
	if !ok {
		return writeError(c, fiber.StatusNotFound, "no card scanned")
	}

	doc := writer.NewDocument(snap, "session")

	format := c.Query("format")
	if format == "" {
		return c.JSON(h.response(snap, doc))
	}

	w, err := converter.NewWriter(format)
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, err.Error())
	}

	var buf bytes.Buffer
	if err := w.Write(&buf, doc); err != nil {
		return fmt.Errorf("render %s: %w", format, err)
	}

	c.Set(fiber.HeaderContentType, contentType(w.Extension()))
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="ledger_%s%s"`, snap.ID, w.Extension()))
	return c.Send(buf.Bytes())
}

// HandleClear discards the current snapshot.
func (h *Handler) HandleClear(c *fiber.Ctx) error {
	h.session.Clear()
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) response(snap *scanner.Snapshot, doc writer.Document) LedgerResponse {
	audit := h.validator.ValidateAll(snap.Ledger, snap.Dropped)

	resp := LedgerResponse{
		Success:  true,
		Ledger:   &doc,
		Count:    len(doc.Rows),
		Errors:   audit.ErrorCount,
		Warnings: audit.WarningCount,
	}
	for _, f := range audit.Errors {
		resp.Findings = append(resp.Findings, f.Error())
	}
	if resp.Ledger.Rows == nil {
		resp.Ledger.Rows = []writer.Row{}
	}
	return resp
}

// readDump returns the dump text and a source name for it.
func readDump(c *fiber.Ctx) ([]byte, string, error) {
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		fh, err := c.FormFile("dump")
		if err != nil {
			return nil, "", errors.New("no dump uploaded, use form field 'dump'")
		}
		f, err := fh.Open()
		if err != nil {
			return nil, "", fmt.Errorf("failed to open upload: %w", err)
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read upload: %w", err)
		}
		return data, fh.Filename, nil
	}

	body := c.Body()
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, "", errors.New("empty request body")
	}
	return append([]byte(nil), body...), "request", nil
}

func contentType(ext string) string {
	switch ext {
	case ".csv":
		return "text/csv; charset=utf-8"
	case ".json":
		return fiber.MIMEApplicationJSONCharsetUTF8
	case ".xml":
		return fiber.MIMEApplicationXMLCharsetUTF8
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return fiber.MIMETextPlainCharsetUTF8
	}
}

func writeError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(LedgerResponse{Success: false, Error: msg})
}

func errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}
	return writeError(c, status, err.Error())
}
