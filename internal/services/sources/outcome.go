package sources

import "net/http"

// Outcome is the result code of one fetch or parse attempt.
// Extractors report outcomes instead of returning errors.
type Outcome string

const (
	OutcomeOK         Outcome = "ok"
	OutcomeNotFound   Outcome = "not_found"
	OutcomeForbidden  Outcome = "forbidden"
	OutcomeFetchError Outcome = "fetch_error"
	OutcomeParseError Outcome = "parse_error"
)

// ClassifyStatuses folds the HTTP statuses of every failed URL into one outcome.
// Network failures are passed as status 0.
func ClassifyStatuses(statuses []int) Outcome {
	if len(statuses) == 0 {
		return OutcomeFetchError
	}
	allNotFound := true
	for _, status := range statuses {
		if status == http.StatusForbidden {
			return OutcomeForbidden
		}
		if status != http.StatusNotFound {
			allNotFound = false
		}
	}
	if allNotFound {
		return OutcomeNotFound
	}
	return OutcomeFetchError
}
