package normalize

const maxSampleRows = 10

// ColumnReport counts coercion outcomes for one column
type ColumnReport struct {
	Policy      string `json:"policy"`
	Converted   int    `json:"converted"`
	Unparseable int    `json:"unparseable"`
	Missing     int    `json:"missing"`
	// SampleRows holds the first few zero-based row numbers with unparseable cells
	SampleRows []int `json:"sample_rows,omitempty"`
}

func (c *ColumnReport) record(row int, s Status) {
	switch s {
	case StatusOK:
		c.Converted++
	case StatusMissing:
		c.Missing++
	case StatusUnparseable:
		c.Unparseable++
		if len(c.SampleRows) < maxSampleRows {
			c.SampleRows = append(c.SampleRows, row)
		}
	}
}

// Report summarises one normalization pass
type Report struct {
	Columns map[string]*ColumnReport `json:"columns"`
	Skipped []string                 `json:"skipped,omitempty"`
}

// Unparseable returns the total number of unparseable cells across columns
func (r *Report) Unparseable() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, c := range r.Columns {
		n += c.Unparseable
	}
	return n
}
