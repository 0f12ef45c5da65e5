package enum

import (
	"database/sql/driver"
	"encoding/json"
)

// ReceiptType represents what kind of payment a receipt documents
type ReceiptType int

const (
	ReceiptTypeSubscriptionPayment ReceiptType = 0
	ReceiptTypeInvoicePayment      ReceiptType = 1
	ReceiptTypeRefund              ReceiptType = 2
	ReceiptTypeAdjustment          ReceiptType = 3
)

func (t ReceiptType) String() string {
	names := [...]string{"SubscriptionPayment", "InvoicePayment", "Refund", "Adjustment"}
	if int(t) < 0 || int(t) >= len(names) {
		return "SubscriptionPayment"
	}
	return names[t]
}

func (t ReceiptType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *ReceiptType) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		var i int
		if err := json.Unmarshal(data, &i); err != nil {
			return err
		}
		*t = ReceiptType(i)
		return nil
	}
	switch str {
	case "SubscriptionPayment":
		*t = ReceiptTypeSubscriptionPayment
	case "InvoicePayment":
		*t = ReceiptTypeInvoicePayment
	case "Refund":
		*t = ReceiptTypeRefund
	case "Adjustment":
		*t = ReceiptTypeAdjustment
	}
	return nil
}

func (t ReceiptType) Value() (driver.Value, error) {
	return int64(t), nil
}

func (t *ReceiptType) Scan(value interface{}) error {
	if value == nil {
		*t = ReceiptTypeSubscriptionPayment
		return nil
	}
	switch v := value.(type) {
	case int64:
		*t = ReceiptType(v)
	case int:
		*t = ReceiptType(v)
	}
	return nil
}
