package common

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ScanJSONColumn decodes a json TEXT column into target. Numbers are kept as json.Number so ids wider than
// 53 bits read back intact.
func ScanJSONColumn(v interface{}, target interface{}) error {
	var raw []byte
	switch t := v.(type) {
	case string:
		raw = []byte(t)
	case []byte:
		raw = t
	default:
		return fmt.Errorf("type is neither string nor []byte: %T %v", v, v)
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	return decoder.Decode(target)
}
