package enums

import "fmt"

// ReportStatus tracks the upload lifecycle of a refund on the reporting service.
type ReportStatus string

const (
	ReportStatusUnset     ReportStatus = "unset"
	ReportStatusQueued    ReportStatus = "queued"
	ReportStatusSkipped   ReportStatus = "skipped"
	ReportStatusSucceeded ReportStatus = "succeeded"
	ReportStatusFailed    ReportStatus = "failed"
)

var validReportStatuses = []ReportStatus{
	ReportStatusUnset,
	ReportStatusQueued,
	ReportStatusSkipped,
	ReportStatusSucceeded,
	ReportStatusFailed,
}

// String implements fmt.Stringer.
func (r ReportStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReportStatus.
func (r ReportStatus) IsValid() bool {
	for _, candidate := range validReportStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further upload attempt may change the status.
// failed is terminal only once the attempt budget is exhausted, which the
// reporting queue decides; here it only covers skipped and succeeded.
func (r ReportStatus) IsTerminal() bool {
	return r == ReportStatusSkipped || r == ReportStatusSucceeded
}

// ParseReportStatus converts raw input into a ReportStatus.
func ParseReportStatus(value string) (ReportStatus, error) {
	for _, candidate := range validReportStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid report status %q", value)
}
