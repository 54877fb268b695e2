package aggregate

import "github.com/loykin/recbridge/internal/backend"

// BatchError itemizes one failed entry in a batch report.
type BatchError struct {
	Identifier string `json:"identifier"`
	Error      string `json:"error"`
}

// BatchResult is the uniform report for per-item-independent batch
// operations. Items never abort siblings; Success means at least one item
// succeeded.
type BatchResult struct {
	Success   bool         `json:"success"`
	Total     int          `json:"total"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Data      []any        `json:"data"`
	Errors    []BatchError `json:"errors"`
}

// runBatch applies run to each identifier independently and folds the
// results into one report.
func runBatch(identifiers []string, run func(i int) ([]any, error)) *BatchResult {
	res := &BatchResult{Total: len(identifiers), Data: make([]any, 0, len(identifiers))}
	for i, ident := range identifiers {
		data, err := run(i)
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, BatchError{Identifier: ident, Error: err.Error()})
			continue
		}
		res.Succeeded++
		res.Data = append(res.Data, data...)
	}
	res.Success = res.Succeeded > 0 || res.Total == 0
	return res
}

// BatchFromOutcomes converts registry batch outcomes into the uniform
// report shape.
func BatchFromOutcomes(outcomes []backend.Outcome) *BatchResult {
	res := &BatchResult{Total: len(outcomes), Data: make([]any, 0, len(outcomes))}
	for _, oc := range outcomes {
		if oc.Status == backend.OutcomeSuccess {
			res.Succeeded++
			res.Data = append(res.Data, oc.Instance)
			continue
		}
		res.Failed++
		res.Errors = append(res.Errors, BatchError{
			Identifier: string(oc.Instance.Vendor) + "/" + oc.Instance.Name,
			Error:      oc.Error,
		})
	}
	res.Success = res.Succeeded > 0 || res.Total == 0
	return res
}
