package pipeline

import (
	"context"
	"sync"

	"findoc/internal/logger"
	"findoc/pkg/models"
	"findoc/pkg/services"
)

// Document is one input of a batch run.
type Document struct {
	Filename string
	// Load reads the document bytes when a worker picks it up.
	Load func() ([]byte, error)
}

// Outcome is the result of one batch entry. Exactly one of Record and Err is set.
type Outcome struct {
	Index    int
	Filename string
	Record   *models.AnalysisRecord
	Err      error
}

// ExportRow renders the outcome in models.ExportHeader order.
func (o Outcome) ExportRow() []string {
	if o.Err != nil || o.Record == nil {
		return models.FailedExportRow(o.Filename, o.Err)
	}
	return o.Record.ExportRow()
}

// ExportRows renders outcomes in input order.
func ExportRows(outcomes []Outcome) [][]string {
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		rows = append(rows, o.ExportRow())
	}
	return rows
}

// ProgressFunc is called once per finished document, serialized, with the
// number of documents done so far.
type ProgressFunc func(done, total int, out Outcome)

type job struct {
	doc   Document
	index int
}

// RunBatch analyzes docs with a fixed pool of workers. Outcomes are returned
// in input order regardless of completion order.
func RunBatch(ctx context.Context, svc services.AnalysisService, docs []Document, workers int, progress ProgressFunc) []Outcome {
	log := logger.WithComponent("batch")
	if workers <= 0 {
		workers = 1
	}
	if workers > len(docs) {
		workers = len(docs)
	}

	jobs := make(chan job, len(docs))
	results := make([]Outcome, len(docs))

	var processed int
	var mu sync.Mutex

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for j := range jobs {
				log.Debug().
					Int("worker", workerID).
					Str("file", j.doc.Filename).
					Int("index", j.index+1).
					Msg("Worker processing document")

				out := analyzeOne(ctx, svc, j.doc)
				out.Index = j.index
				results[j.index] = out

				mu.Lock()
				processed++
				if progress != nil {
					progress(processed, len(docs), out)
				}
				mu.Unlock()
			}
		}(w)
	}

	for i, doc := range docs {
		jobs <- job{doc: doc, index: i}
	}
	close(jobs)

	wg.Wait()
	return results
}

func analyzeOne(ctx context.Context, svc services.AnalysisService, doc Document) Outcome {
	out := Outcome{Filename: doc.Filename}

	if err := ctx.Err(); err != nil {
		out.Err = err
		return out
	}

	data, err := doc.Load()
	if err != nil {
		out.Err = err
		return out
	}

	out.Record, out.Err = svc.Analyze(ctx, doc.Filename, data)
	return out
}
