// =============================================================================
// FeliCa Ledger - Converter Module
// =============================================================================
//
// The converter runs the whole pipeline for one card dump:
//
//   1. Parse the dump file
//   2. Scan it (balance, history, ledger, trips, station names)
//   3. Audit the ledger; findings go to an error log
//   4. Write the ledger document in the configured format
//   5. Archive the snapshot to MongoDB (optional)
//   6. Upload the document to Cloud Storage (optional)
//   7. Move the dump to the input archive
//
// Steps 5-7 are best effort: failures are logged and do not fail the file.
// A Converter holds no per-file state and is safe for concurrent use.
//
// =============================================================================

package converter

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ginjaninja78/felica-ledger/internal/card"
	"github.com/ginjaninja78/felica-ledger/internal/scanner"
	"github.com/ginjaninja78/felica-ledger/internal/validation"
	"github.com/ginjaninja78/felica-ledger/internal/writer"
	"github.com/ginjaninja78/felica-ledger/internal/xmlwriter"
	"github.com/ginjaninja78/felica-ledger/pkg/utils"
	"github.com/rs/zerolog"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result is the outcome of processing one dump.
type Result struct {
	FilePath string

	// OutputFile is empty if processing failed.
	OutputFile string

	// ErrorLog is set when the audit produced findings.
	ErrorLog string

	ArchivePath string
	UploadURI   string

	Success bool
	Error   error

	Stats ProcessingStats
}

// ProcessingStats summarizes one processed dump.
type ProcessingStats struct {
	ScanID             string
	Balance            int
	Transactions       int
	Dropped            int
	ValidationErrors   int
	ValidationWarnings int
	ProcessingTime     time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// SnapshotArchive stores scan documents.
type SnapshotArchive interface {
	Save(ctx context.Context, doc writer.Document) error
}

// FileUploader copies a local file elsewhere and returns its URI.
type FileUploader interface {
	UploadFile(ctx context.Context, filePath string) (string, error)
}

// Options controls output and failure handling.
type Options struct {
	OutputFormat     string
	OutputNameFormat string

	// ContinueOnError writes the document even when the audit finds errors.
	ContinueOnError bool

	// Strict counts audit warnings as errors.
	Strict bool

	// ArchiveInputs moves processed dumps to the input archive.
	ArchiveInputs bool
}

// Converter processes dumps.
type Converter struct {
	scanner   *scanner.Scanner
	validator *validation.Validator
	files     *utils.FileManager
	writer    writer.Writer
	opts      Options
	log       zerolog.Logger

	archive  SnapshotArchive
	uploader FileUploader
}

// New creates a Converter. It fails only for an unknown output format.
func New(s *scanner.Scanner, files *utils.FileManager, opts Options, log zerolog.Logger) (*Converter, error) {
	w, err := NewWriter(opts.OutputFormat)
	if err != nil {
		return nil, err
	}
	if opts.OutputNameFormat == "" {
		opts.OutputNameFormat = "{card}_{timestamp}_{uuid}{ext}"
	}

	return &Converter{
		scanner:   s,
		validator: validation.NewValidatorWithOptions(validation.ValidationOptions{
			TreatWarningsAsErrors: opts.Strict,
			ReportUnknown:         true,
		}),
		files:     files,
		writer:    w,
		opts:      opts,
		log:       log,
	}, nil
}

// WithArchive enables the snapshot archive.
func (c *Converter) WithArchive(a SnapshotArchive) *Converter {
	c.archive = a
	return c
}

// WithUploader enables uploads of generated documents.
func (c *Converter) WithUploader(u FileUploader) *Converter {
	c.uploader = u
	return c
}

// NewWriter returns the writer for format, including XML.
func NewWriter(format string) (writer.Writer, error) {
	if strings.EqualFold(format, "xml") {
		return xmlwriter.New(), nil
	}
	return writer.New(format)
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the pipeline for dumpPath.
func (c *Converter) Run(ctx context.Context, dumpPath string) Result {
	start := time.Now()
	result := Result{FilePath: dumpPath}
	log := c.log.With().Str("file", filepath.Base(dumpPath)).Logger()

	fail := func(err error) Result {
		result.Error = err
		result.Stats.ProcessingTime = time.Since(start)
		log.Error().Err(err).Msg("processing failed")
		return result
	}

	// =========================================================================
	// STEP 1-2: PARSE AND SCAN
	// =========================================================================

	dump, err := card.ParseDumpFile(dumpPath)
	if err != nil {
		return fail(fmt.Errorf("failed to parse dump: %w", err))
	}

	snap, err := c.scanner.Scan(ctx, card.NewDumpReader(dump))
	if err != nil {
		return fail(fmt.Errorf("failed to scan: %w", err))
	}

	result.Stats.ScanID = snap.ID
	result.Stats.Balance = int(snap.Balance)
	result.Stats.Transactions = len(snap.Ledger)
	result.Stats.Dropped = len(snap.Dropped)

	// =========================================================================
	// STEP 3: AUDIT
	// =========================================================================

	audit := c.validator.ValidateAll(snap.Ledger, snap.Dropped)
	result.Stats.ValidationErrors = audit.ErrorCount
	result.Stats.ValidationWarnings = audit.WarningCount

	for _, finding := range audit.Errors {
		ev := log.Debug()
		if finding.Severity == validation.SeverityError {
			ev = log.Warn()
		}
		ev.Str("rule", finding.Rule).Int("index", finding.Index).Msg(finding.Message)
	}

	if len(audit.Errors) > 0 {
		logPath := c.errorLogPath(dumpPath)
		if err := validation.WriteErrorLog(audit.Errors, dumpPath, logPath); err != nil {
			log.Warn().Err(err).Msg("failed to write error log")
		} else {
			result.ErrorLog = logPath
		}
	}

	if !audit.IsValid && !c.opts.ContinueOnError {
		return fail(fmt.Errorf("validation failed with %d errors and %d warnings", audit.ErrorCount, audit.WarningCount))
	}

	// =========================================================================
	// STEP 4: WRITE OUTPUT
	// =========================================================================

	doc := writer.NewDocument(snap, filepath.Base(dumpPath))
	outputPath := c.files.OutputPath(c.opts.OutputNameFormat, dumpPath, c.writer.Extension())

	if err := writer.WriteToFile(c.writer, outputPath, doc); err != nil {
		return fail(fmt.Errorf("failed to write output: %w", err))
	}
	result.OutputFile = outputPath

	// =========================================================================
	// STEP 5-7: ARCHIVE, UPLOAD, MOVE INPUT
	// =========================================================================

	if c.archive != nil {
		if err := c.archive.Save(ctx, doc); err != nil {
			log.Warn().Err(err).Msg("failed to archive snapshot")
		}
	}

	if c.uploader != nil {
		uri, err := c.uploader.UploadFile(ctx, outputPath)
		if err != nil {
			log.Warn().Err(err).Msg("failed to upload output")
		} else {
			result.UploadURI = uri
		}
	}

	if c.opts.ArchiveInputs {
		archived, err := c.files.ArchiveInputFile(dumpPath)
		if err != nil {
			log.Warn().Err(err).Msg("failed to archive input")
		} else {
			result.ArchivePath = archived
		}
	}

	result.Success = true
	result.Stats.ProcessingTime = time.Since(start)

	log.Info().
		Str("output", outputPath).
		Int("transactions", result.Stats.Transactions).
		Dur("elapsed", result.Stats.ProcessingTime).
		Msg("processed")

	return result
}

func (c *Converter) errorLogPath(dumpPath string) string {
	base := strings.TrimSuffix(filepath.Base(dumpPath), filepath.Ext(dumpPath))
	return filepath.Join(c.files.LogDir, base+"_errors.txt")
}
