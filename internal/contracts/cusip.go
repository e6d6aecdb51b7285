package contracts

import (
	"encoding/json"
	"strings"
)

// CUSIPLength is the length of a North American security identifier
const CUSIPLength = 9

// CUSIP is a 9-character security identifier.
// The zero value means unknown and is rendered as "—".
type CUSIP struct {
	code string
}

// ParseCUSIP normalizes s into a CUSIP.
// Empty, the "—" sentinel and anything that is not 9 alphanumerics parse to unknown.
func ParseCUSIP(s string) CUSIP {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != CUSIPLength {
		return CUSIP{}
	}
	for _, r := range s {
		if !(r >= '0' && r <= '9' || r >= 'A' && r <= 'Z') {
			return CUSIP{}
		}
	}
	return CUSIP{code: s}
}

// CUSIPFromISIN extracts the CUSIP embedded in a US ISIN (characters 3-11)
func CUSIPFromISIN(isin string) CUSIP {
	isin = strings.ToUpper(strings.TrimSpace(isin))
	if len(isin) < 11 || !strings.HasPrefix(isin, "US") {
		return CUSIP{}
	}
	return ParseCUSIP(isin[2:11])
}

// Known reports whether the identifier is set
func (c CUSIP) Known() bool {
	return c.code != ""
}

// Get returns the CUSIP as an option
func (c CUSIP) Get() (CUSIP, bool) {
	return c, c.Known()
}

// String renders the code, or "—" when unknown
func (c CUSIP) String() string {
	if c.code == "" {
		return Unknown
	}
	return c.code
}

// MarshalJSON encodes unknown as "—" so the field is never empty
func (c CUSIP) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts a string or null
func (c *CUSIP) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil {
		*c = CUSIP{}
		return nil
	}
	*c = ParseCUSIP(*s)
	return nil
}

// MarshalYAML lets knowledge tables carry CUSIPs as plain strings
func (c CUSIP) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}

// UnmarshalYAML parses the same way as JSON
func (c *CUSIP) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	*c = ParseCUSIP(s)
	return nil
}

// FirstCUSIP returns the first known candidate, or unknown
func FirstCUSIP(candidates ...CUSIP) CUSIP {
	for _, c := range candidates {
		if c.Known() {
			return c
		}
	}
	return CUSIP{}
}
