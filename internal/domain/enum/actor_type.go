package enum

import (
	"database/sql/driver"
	"encoding/json"
)

// ActorType identifies who performed an audited action
type ActorType int

const (
	ActorTypeUser   ActorType = 0
	ActorTypeAdmin  ActorType = 1
	ActorTypeSystem ActorType = 2
)

func (a ActorType) String() string {
	names := [...]string{"User", "Admin", "System"}
	if int(a) < 0 || int(a) >= len(names) {
		return "System"
	}
	return names[a]
}

func (a ActorType) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *ActorType) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		var i int
		if err := json.Unmarshal(data, &i); err != nil {
			return err
		}
		*a = ActorType(i)
		return nil
	}
	switch str {
	case "User":
		*a = ActorTypeUser
	case "Admin":
		*a = ActorTypeAdmin
	case "System":
		*a = ActorTypeSystem
	}
	return nil
}

func (a ActorType) Value() (driver.Value, error) {
	return int64(a), nil
}

func (a *ActorType) Scan(value interface{}) error {
	if value == nil {
		*a = ActorTypeSystem
		return nil
	}
	switch v := value.(type) {
	case int64:
		*a = ActorType(v)
	case int:
		*a = ActorType(v)
	}
	return nil
}
