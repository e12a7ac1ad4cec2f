package converter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ginjaninja78/felica-ledger/pkg/utils"
)

// RunBatch processes files with at most concurrency workers. Results are
// returned in input order. Files not started before ctx is cancelled fail
// with the context error.
func (c *Converter) RunBatch(ctx context.Context, files []string, concurrency int) []Result {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]Result, len(files))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, file := range files {
		wg.Add(1)

		go func(i int, filePath string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = Result{FilePath: filePath, Error: fmt.Errorf("not processed: %w", ctx.Err())}
				return
			}

			results[i] = c.Run(ctx, filePath)
		}(i, file)
	}

	wg.Wait()
	return results
}

// Summarize folds results into a processing summary.
func Summarize(results []Result, start, end time.Time) utils.ProcessingSummary {
	s := utils.ProcessingSummary{
		StartTime:  start,
		EndTime:    end,
		TotalFiles: len(results),
	}

	for _, r := range results {
		s.ValidationErrors += r.Stats.ValidationErrors
		s.ValidationWarnings += r.Stats.ValidationWarnings

		if !r.Success {
			s.FailedFiles++
			msg := "unknown error"
			if r.Error != nil {
				msg = r.Error.Error()
			}
			s.FailedFilesList = append(s.FailedFilesList, utils.FailedFileInfo{
				InputFile:    r.FilePath,
				ErrorMessage: msg,
			})
			continue
		}

		s.SuccessfulFiles++
		s.TotalTransactions += r.Stats.Transactions
		s.TotalDropped += r.Stats.Dropped
		s.ProcessedFiles = append(s.ProcessedFiles, utils.ProcessedFileInfo{
			InputFile:    r.FilePath,
			OutputFile:   r.OutputFile,
			ArchivePath:  r.ArchivePath,
			UploadURI:    r.UploadURI,
			ScanID:       r.Stats.ScanID,
			Balance:      r.Stats.Balance,
			Transactions: r.Stats.Transactions,
			ProcessTime:  r.Stats.ProcessingTime,
		})
	}

	return s
}
