package domain

// Severity ranks a single anomaly.
type Severity string

const (
	SeverityInfo      Severity = "info"
	SeverityAttention Severity = "attention"
	SeverityAlert     Severity = "alert"
)

// Status is the three-level overall condition for one domain.
// Ordering matters: alert > attention > normal. Consumers compare directly.
type Status string

const (
	StatusNormal    Status = "normal"
	StatusAttention Status = "attention"
	StatusAlert     Status = "alert"
)

// Anomaly is an ephemeral classification result. Produced and consumed within
// one pipeline pass, never persisted.
type Anomaly struct {
	Domain   AlertType
	Severity Severity
	Message  string
}

// OverallStatus reduces a set of anomalies to a single status:
// alert if any anomaly is alert, else attention if any is attention,
// else normal.
func OverallStatus(anomalies []Anomaly) Status {
	status := StatusNormal
	for _, a := range anomalies {
		switch a.Severity {
		case SeverityAlert:
			return StatusAlert
		case SeverityAttention:
			status = StatusAttention
		}
	}
	return status
}
