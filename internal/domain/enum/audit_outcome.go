package enum

import (
	"database/sql/driver"
	"encoding/json"
)

// AuditOutcome records whether an audited operation succeeded
type AuditOutcome int

const (
	AuditOutcomeSuccess AuditOutcome = 0
	AuditOutcomeFailure AuditOutcome = 1
)

func (o AuditOutcome) String() string {
	names := [...]string{"Success", "Failure"}
	if int(o) < 0 || int(o) >= len(names) {
		return "Success"
	}
	return names[o]
}

func (o AuditOutcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

func (o *AuditOutcome) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		var i int
		if err := json.Unmarshal(data, &i); err != nil {
			return err
		}
		*o = AuditOutcome(i)
		return nil
	}
	switch str {
	case "Success":
		*o = AuditOutcomeSuccess
	case "Failure":
		*o = AuditOutcomeFailure
	}
	return nil
}

func (o AuditOutcome) Value() (driver.Value, error) {
	return int64(o), nil
}

func (o *AuditOutcome) Scan(value interface{}) error {
	if value == nil {
		*o = AuditOutcomeSuccess
		return nil
	}
	switch v := value.(type) {
	case int64:
		*o = AuditOutcome(v)
	case int:
		*o = AuditOutcome(v)
	}
	return nil
}
