package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// IDList is an ordered, duplicate-free sequence of composite ids persisted
// as a JSON column. Order is meaningful: it is the stream's display order.
type IDList []string

// Value implements driver.Valuer.
func (l IDList) Value() (driver.Value, error) {
	if l == nil {
		l = IDList{}
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *IDList) Scan(value interface{}) error {
	if value == nil {
		*l = IDList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("cannot scan %T into IDList", value)
	}
}

// Contains reports whether id is present in the list.
func (l IDList) Contains(id string) bool {
	for _, existing := range l {
		if existing == id {
			return true
		}
	}
	return false
}
