package enum

import (
	"database/sql/driver"
	"encoding/json"
)

// ReceiptStatus represents the lifecycle state of a payment receipt.
// Transitions only ever move forward: Draft -> Generated -> Sent -> Viewed.
type ReceiptStatus int

const (
	ReceiptStatusDraft     ReceiptStatus = 0
	ReceiptStatusGenerated ReceiptStatus = 1
	ReceiptStatusSent      ReceiptStatus = 2
	ReceiptStatusViewed    ReceiptStatus = 3
)

func (s ReceiptStatus) String() string {
	names := [...]string{"Draft", "Generated", "Sent", "Viewed"}
	if int(s) < 0 || int(s) >= len(names) {
		return "Draft"
	}
	return names[s]
}

// CanTransitionTo reports whether the next status is the single legal
// forward step from the current one. No transition skips a state.
func (s ReceiptStatus) CanTransitionTo(next ReceiptStatus) bool {
	return next == s+1 && next <= ReceiptStatusViewed
}

// IsMutable reports whether receipt fields may still be edited or deleted.
func (s ReceiptStatus) IsMutable() bool {
	return s == ReceiptStatusDraft
}

func (s ReceiptStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *ReceiptStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		var i int
		if err := json.Unmarshal(data, &i); err != nil {
			return err
		}
		*s = ReceiptStatus(i)
		return nil
	}
	switch str {
	case "Draft":
		*s = ReceiptStatusDraft
	case "Generated":
		*s = ReceiptStatusGenerated
	case "Sent":
		*s = ReceiptStatusSent
	case "Viewed":
		*s = ReceiptStatusViewed
	}
	return nil
}

func (s ReceiptStatus) Value() (driver.Value, error) {
	return int64(s), nil
}

func (s *ReceiptStatus) Scan(value interface{}) error {
	if value == nil {
		*s = ReceiptStatusDraft
		return nil
	}
	switch v := value.(type) {
	case int64:
		*s = ReceiptStatus(v)
	case int:
		*s = ReceiptStatus(v)
	}
	return nil
}
