package form

import (
	"approvalflow/common"
	"database/sql/driver"
	"encoding/json"
)

// Data is the json document of a form submission, keyed by field key.
type Data map[string]interface{}

func (d Data) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	jsonBytes, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(jsonBytes), nil
}

func (d *Data) Scan(v interface{}) error {
	return common.ScanJSONColumn(v, d)
}

func (d Data) Copy() Data {
	if d == nil {
		return Data{}
	}
	c := make(Data, len(d))
	for k, v := range d {
		c[k] = v
	}
	return c
}

func isBlank(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []interface{}:
		return len(t) == 0
	case map[string]interface{}:
		return len(t) == 0
	}
	return false
}
