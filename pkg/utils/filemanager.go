// =============================================================================
// FeliCa Ledger - File Manager Utility
// =============================================================================
//
// File handling for batch processing:
//   - discovering card dumps in the input directory
//   - moving processed dumps to the input archive
//   - naming output documents
//   - writing the per-batch summary log
//
// Failed dumps stay in the input directory so they can be retried.
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DumpExtensions are the file extensions treated as card dumps.
var DumpExtensions = []string{".dump", ".hex", ".txt"}

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for batch processing.
type FileManager struct {
	InputDir        string
	OutputDir       string
	InputArchiveDir string
	LogDir          string

	// UseTimestampSubdirs archives under YYYY/MM/DD subdirectories.
	UseTimestampSubdirs bool

	now func() time.Time
}

// NewFileManager creates a FileManager over the given directories.
func NewFileManager(inputDir, outputDir, inputArchiveDir, logDir string) *FileManager {
	return &FileManager{
		InputDir:        inputDir,
		OutputDir:       outputDir,
		InputArchiveDir: inputArchiveDir,
		LogDir:          logDir,
		now:             time.Now,
	}
}

// =============================================================================
// DUMP DISCOVERY
// =============================================================================

// DiscoverDumps lists dump files directly inside the input directory,
// sorted by name. Hidden files are ignored.
func (fm *FileManager) DiscoverDumps() ([]string, error) {
	entries, err := os.ReadDir(fm.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if IsDumpFile(e.Name()) {
			files = append(files, filepath.Join(fm.InputDir, e.Name()))
		}
	}

	sort.Strings(files)
	return files, nil
}

// IsDumpFile reports whether name has a dump extension.
func IsDumpFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range DumpExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// =============================================================================
// ARCHIVAL
// =============================================================================

// ArchiveInputFile moves a processed dump into the input archive and returns
// its new path.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	archivePath := fm.archivePath(filePath)

	if err := os.MkdirAll(filepath.Dir(archivePath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// Cross-device moves fall back to copy and delete.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

func (fm *FileManager) archivePath(filePath string) string {
	name := filepath.Base(filePath)
	if !fm.UseTimestampSubdirs {
		return filepath.Join(fm.InputArchiveDir, name)
	}

	now := fm.now()
	return filepath.Join(
		fm.InputArchiveDir,
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		fmt.Sprintf("%02d", now.Day()),
		name,
	)
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// OutputPath returns a path in the output directory for the ledger of dump
// inputPath. See GenerateOutputFileName for the format placeholders.
func (fm *FileManager) OutputPath(format, inputPath, ext string) string {
	card := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	return filepath.Join(fm.OutputDir, GenerateOutputFileName(format, card, ext, fm.now()))
}

// GenerateOutputFileName expands a name format:
//
//	{card}      dump file name without extension
//	{timestamp} YYYYMMDD_HHMMSS
//	{date}      YYYYMMDD
//	{uuid}      random UUID
//	{ext}       writer extension, including the dot
//
// ext is appended when the format has no {ext} placeholder.
func GenerateOutputFileName(format, card, ext string, now time.Time) string {
	r := strings.NewReplacer(
		"{card}", card,
		"{timestamp}", now.Format("20060102_150405"),
		"{date}", now.Format("20060102"),
		"{uuid}", uuid.NewString(),
		"{ext}", ext,
	)

	name := r.Replace(format)
	if !strings.Contains(format, "{ext}") && !strings.HasSuffix(name, ext) {
		name += ext
	}
	return name
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary describes one batch run.
type ProcessingSummary struct {
	StartTime          time.Time
	EndTime            time.Time
	TotalFiles         int
	SuccessfulFiles    int
	FailedFiles        int
	TotalTransactions  int
	TotalDropped       int
	ValidationErrors   int
	ValidationWarnings int
	ProcessedFiles     []ProcessedFileInfo
	FailedFilesList    []FailedFileInfo
}

// ProcessedFileInfo describes one successfully processed dump.
type ProcessedFileInfo struct {
	InputFile    string
	OutputFile   string
	ArchivePath  string
	UploadURI    string
	ScanID       string
	Balance      int
	Transactions int
	ProcessTime  time.Duration
}

// FailedFileInfo describes one failed dump.
type FailedFileInfo struct {
	InputFile    string
	ErrorMessage string
}

const rule = "================================================================================\n"

// WriteSummaryLog writes summary into the log directory and returns its path.
func (fm *FileManager) WriteSummaryLog(summary ProcessingSummary) (string, error) {
	name := fmt.Sprintf("processing_summary_%s.txt", fm.now().Format("20060102_150405"))
	summaryPath := filepath.Join(fm.LogDir, name)

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	writeSummary(w, summary)

	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("failed to write summary file: %w", err)
	}
	return summaryPath, nil
}

func writeSummary(w io.Writer, s ProcessingSummary) {
	fmt.Fprintf(w, "FeliCa Ledger - Processing Summary\n%s\n", rule)
	fmt.Fprintf(w, "Run Information:\n")
	fmt.Fprintf(w, "  Start Time:     %s\n", s.StartTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  End Time:       %s\n", s.EndTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  Duration:       %s\n\n", s.EndTime.Sub(s.StartTime))

	fmt.Fprintf(w, "Statistics:\n")
	fmt.Fprintf(w, "  Total Files:         %d\n", s.TotalFiles)
	fmt.Fprintf(w, "  Successful:          %d\n", s.SuccessfulFiles)
	fmt.Fprintf(w, "  Failed:              %d\n", s.FailedFiles)
	fmt.Fprintf(w, "  Transactions:        %d\n", s.TotalTransactions)
	fmt.Fprintf(w, "  Dropped Blocks:      %d\n", s.TotalDropped)
	fmt.Fprintf(w, "  Validation Errors:   %d\n", s.ValidationErrors)
	fmt.Fprintf(w, "  Validation Warnings: %d\n\n", s.ValidationWarnings)

	if len(s.ProcessedFiles) > 0 {
		fmt.Fprintf(w, "Successful Files:\n")
		for _, pf := range s.ProcessedFiles {
			fmt.Fprintf(w, "  Input:        %s\n", pf.InputFile)
			fmt.Fprintf(w, "  Output:       %s\n", pf.OutputFile)
			if pf.UploadURI != "" {
				fmt.Fprintf(w, "  Uploaded:     %s\n", pf.UploadURI)
			}
			fmt.Fprintf(w, "  Scan:         %s\n", pf.ScanID)
			fmt.Fprintf(w, "  Balance:      ¥%d\n", pf.Balance)
			fmt.Fprintf(w, "  Transactions: %d\n", pf.Transactions)
			fmt.Fprintf(w, "  Process Time: %s\n\n", pf.ProcessTime)
		}
	}

	if len(s.FailedFilesList) > 0 {
		fmt.Fprintf(w, "Failed Files:\n")
		for _, ff := range s.FailedFilesList {
			fmt.Fprintf(w, "  File:  %s\n", ff.InputFile)
			fmt.Fprintf(w, "  Error: %s\n\n", ff.ErrorMessage)
		}
	}

	fmt.Fprintf(w, "%sEnd of Summary\n", rule)
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

// FileExists reports whether path exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
