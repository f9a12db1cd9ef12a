package evm

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Selector identifies a destination ledger on the cross-chain router.
// Values exceed int64 in practice, so they are stored and serialized as
// decimal strings.
type Selector uint64

func ParseSelector(raw string) (Selector, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("empty chain selector")
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chain selector %q: %w", raw, err)
	}
	return Selector(v), nil
}

func (s Selector) String() string {
	return strconv.FormatUint(uint64(s), 10)
}

func (s Selector) Value() (driver.Value, error) {
	return s.String(), nil
}

func (s *Selector) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = 0
		return nil
	case string:
		parsed, err := ParseSelector(v)
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	case []byte:
		parsed, err := ParseSelector(string(v))
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	case int64:
		*s = Selector(uint64(v))
		return nil
	default:
		return fmt.Errorf("unsupported chain selector type %T", src)
	}
}

func (Selector) GormDataType() string {
	return "varchar(20)"
}

func (s Selector) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Selector) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		var n uint64
		if numErr := json.Unmarshal(data, &n); numErr != nil {
			return fmt.Errorf("invalid chain selector: %s", string(data))
		}
		*s = Selector(n)
		return nil
	}
	parsed, err := ParseSelector(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
