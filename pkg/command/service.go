package command

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

const defaultHexDigits = 8

func New(name string) *Command {
	return &Command{Name: name}
}

// With adds a field that is always emitted, even when value is empty.
func (c *Command) With(name, value string) *Command {
	c.Fields = append(c.Fields, Field{Name: name, Value: value})
	return c
}

// WithOptional adds a field only when value is non-nil.
func (c *Command) WithOptional(name string, value *string) *Command {
	if value != nil {
		c.With(name, *value)
	}
	return c
}

// Value returns the value of the named field.
func (c *Command) Value(name string) (string, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Encode renders the command element. No delimiter follows the closing tag.
func (c *Command) Encode() ([]byte, error) {
	if strings.TrimSpace(c.Name) == "" {
		return nil, fmt.Errorf("%w: command name is empty", ErrInvalidArgument)
	}

	var buf bytes.Buffer
	buf.WriteString("<Command>")
	writeElement(&buf, "Name", c.Name)
	for _, f := range c.Fields {
		if !validElementName(f.Name) {
			return nil, fmt.Errorf("%w: bad field name %q", ErrInvalidArgument, f.Name)
		}
		writeElement(&buf, f.Name, f.Value)
	}
	buf.WriteString("</Command>")
	return buf.Bytes(), nil
}

func (c *Command) String() string {
	b, err := c.Encode()
	if err != nil {
		return c.Name
	}
	return string(b)
}

func writeElement(buf *bytes.Buffer, name, value string) {
	buf.WriteString("<" + name + ">")
	// EscapeText only fails when the writer does
	_ = xml.EscapeText(buf, []byte(value))
	buf.WriteString("</" + name + ">")
}

func validElementName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r == '_':
		case i > 0 && (r >= '0' && r <= '9' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}

// FormatYN renders a boolean the way the device expects.
func FormatYN(v bool) string {
	if v {
		return "Y"
	}
	return "N"
}

// OptionalYN is FormatYN for an optional boolean.
func OptionalYN(v *bool) *string {
	if v == nil {
		return nil
	}
	s := FormatYN(*v)
	return &s
}

// FormatHex renders n as 0x followed by lowercase hex zero-padded to digits.
// A digits value of zero or less uses the 8 digit default.
func FormatHex(n uint64, digits int) string {
	if digits <= 0 {
		digits = defaultHexDigits
	}
	return fmt.Sprintf("0x%0*x", digits, n)
}

// ValidateEvent checks event against the allowed set. EventNone passes only when allowNone is set.
func ValidateEvent(event Event, allowNone bool) error {
	if event == EventNone {
		if allowNone {
			return nil
		}
		return fmt.Errorf("%w: event is required", ErrInvalidArgument)
	}
	if _, ok := validEvents[event]; !ok {
		return fmt.Errorf("%w: invalid event %q", ErrInvalidArgument, string(event))
	}
	return nil
}

// ParsePriceCents splits a price in cents such as "24.373" into the integer price
// and trailing digits the device uses. Two extra trailing digits convert cents to dollars.
func ParsePriceCents(price string) (uint64, uint64, error) {
	price = strings.TrimSpace(price)
	whole, frac, _ := strings.Cut(price, ".")
	digits := whole + frac
	if digits == "" {
		return 0, 0, fmt.Errorf("%w: price %q", ErrInvalidArgument, price)
	}
	v, err := strconv.ParseUint(digits, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: price %q", ErrInvalidArgument, price)
	}
	return v, uint64(len(frac)) + 2, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func eventField(e Event) *string {
	return optional(string(e))
}
