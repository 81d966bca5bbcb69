package validator

// Status is the overall validation state of one command.
type Status string

const (
	StatusValid   Status = "valid"
	StatusWarning Status = "warning"
	StatusInvalid Status = "invalid"
)

// CommandStatuses derives a status per command from findings. An error finding
// makes a command invalid; otherwise any warning marks it as warning.
func CommandStatuses(findings []Finding, n int) []Status {
	out := make([]Status, n)
	for i := range out {
		out[i] = StatusValid
	}
	for _, f := range findings {
		if f.Index < 0 || f.Index >= n {
			continue
		}
		switch f.Severity {
		case SeverityError:
			out[f.Index] = StatusInvalid
		case SeverityWarning:
			if out[f.Index] == StatusValid {
				out[f.Index] = StatusWarning
			}
		}
	}
	return out
}
