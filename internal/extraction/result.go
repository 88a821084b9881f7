package extraction

// Result is the outcome of extracting one upload. It is exactly one of
// *TextResult, *TableResult or *FailedResult.
type Result interface {
	isResult()
}

// TextResult holds trimmed document text of at least MinTextLength characters.
type TextResult struct {
	Content string
}

// TableResult holds a parsed spreadsheet. Every row has len(Columns) cells.
type TableResult struct {
	Columns []string
	Rows    [][]string
}

// FailedResult records why nothing usable was extracted.
type FailedResult struct {
	Reason string
}

func (*TextResult) isResult()   {}
func (*TableResult) isResult()  {}
func (*FailedResult) isResult() {}

// Text returns a text result.
func Text(content string) Result {
	return &TextResult{Content: content}
}

// Table returns a tabular result.
func Table(columns []string, rows [][]string) Result {
	return &TableResult{Columns: columns, Rows: rows}
}

// Failed returns a failure with the given reason.
func Failed(reason string) Result {
	return &FailedResult{Reason: reason}
}

// Head returns a table holding at most the first n rows.
func (t *TableResult) Head(n int) *TableResult {
	if n >= len(t.Rows) {
		return t
	}
	return &TableResult{Columns: t.Columns, Rows: t.Rows[:n]}
}
