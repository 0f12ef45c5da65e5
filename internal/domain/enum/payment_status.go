package enum

import (
	"database/sql/driver"
	"encoding/json"
)

// PaymentStatus represents the status of a payment
type PaymentStatus int

const (
	PaymentStatusPending  PaymentStatus = 0
	PaymentStatusSuccess  PaymentStatus = 1
	PaymentStatusFailed   PaymentStatus = 2
	PaymentStatusRefunded PaymentStatus = 3
)

func (s PaymentStatus) String() string {
	names := [...]string{"Pending", "Success", "Failed", "Refunded"}
	if int(s) < 0 || int(s) >= len(names) {
		return "Pending"
	}
	return names[s]
}

func (s PaymentStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *PaymentStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		var i int
		if err := json.Unmarshal(data, &i); err != nil {
			return err
		}
		*s = PaymentStatus(i)
		return nil
	}
	switch str {
	case "Pending":
		*s = PaymentStatusPending
	case "Success":
		*s = PaymentStatusSuccess
	case "Failed":
		*s = PaymentStatusFailed
	case "Refunded":
		*s = PaymentStatusRefunded
	}
	return nil
}

func (s PaymentStatus) Value() (driver.Value, error) {
	return int64(s), nil
}

func (s *PaymentStatus) Scan(value interface{}) error {
	if value == nil {
		*s = PaymentStatusPending
		return nil
	}
	switch v := value.(type) {
	case int64:
		*s = PaymentStatus(v)
	case int:
		*s = PaymentStatus(v)
	}
	return nil
}
