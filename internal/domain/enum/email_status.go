package enum

import (
	"database/sql/driver"
	"encoding/json"
)

// EmailStatus represents the delivery state of an outbound email job.
// Failed is terminal after retries; Sent is terminal on success.
type EmailStatus int

const (
	EmailStatusQueued EmailStatus = 0
	EmailStatusSent   EmailStatus = 1
	EmailStatusFailed EmailStatus = 2
)

func (s EmailStatus) String() string {
	names := [...]string{"Queued", "Sent", "Failed"}
	if int(s) < 0 || int(s) >= len(names) {
		return "Queued"
	}
	return names[s]
}

// IsTerminal reports whether no further delivery attempts will be made.
func (s EmailStatus) IsTerminal() bool {
	return s == EmailStatusSent || s == EmailStatusFailed
}

func (s EmailStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *EmailStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		var i int
		if err := json.Unmarshal(data, &i); err != nil {
			return err
		}
		*s = EmailStatus(i)
		return nil
	}
	switch str {
	case "Queued":
		*s = EmailStatusQueued
	case "Sent":
		*s = EmailStatusSent
	case "Failed":
		*s = EmailStatusFailed
	}
	return nil
}

func (s EmailStatus) Value() (driver.Value, error) {
	return int64(s), nil
}

func (s *EmailStatus) Scan(value interface{}) error {
	if value == nil {
		*s = EmailStatusQueued
		return nil
	}
	switch v := value.(type) {
	case int64:
		*s = EmailStatus(v)
	case int:
		*s = EmailStatus(v)
	}
	return nil
}
