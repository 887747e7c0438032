package runner

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/samber/lo"
)

// Report summarizes a finished job run.
type Report struct {
	Job       string         `json:"job"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Archives  []ReportRecord `json:"archives"`
}

type ReportRecord struct {
	ID      string `json:"id"`
	Output  string `json:"output,omitempty"`
	Format  string `json:"format,omitempty"`
	Size    int64  `json:"size,omitempty"`
	Entries int    `json:"entries,omitempty"`
	Error   string `json:"error,omitempty"`
}

func NewReport(jobName string, outcomes []Outcome) Report {
	records := lo.Map(outcomes, func(o Outcome, _ int) ReportRecord {
		record := ReportRecord{
			ID:      o.ID,
			Output:  o.Result.OutputPath,
			Format:  o.Result.Format.String(),
			Size:    o.Result.Size,
			Entries: o.Result.Entries,
		}
		if o.Err != nil {
			record.Error = o.Err.Error()
		}
		return record
	})

	failed := lo.CountBy(outcomes, func(o Outcome) bool { return o.Err != nil })

	return Report{
		Job:       jobName,
		Succeeded: len(outcomes) - failed,
		Failed:    failed,
		Archives:  records,
	}
}

// Encode writes the report to w as JSON. Empty indent means compact output.
func (r Report) Encode(w io.Writer, indent string) error {
	encoder := json.NewEncoder(w)
	if indent != "" {
		encoder.SetIndent("", indent)
	}

	if err := encoder.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report as JSON: %w", err)
	}

	return nil
}
