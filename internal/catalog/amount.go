package catalog

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

type amountKind uint8

const (
	amountNull amountKind = iota
	amountString
	amountNumber
)

// Numbers whose magnitude or precision fall outside these bounds are
// rejected on decode.
const (
	maxAmountIntDigits = 40
	maxAmountScale     = 40
)

// Amount is a price or stock value. It keeps the JSON form it was decoded
// from (string or number) so a file written back is unchanged. For numbers
// text holds the decoded literal, empty when built from a value.
type Amount struct {
	kind amountKind
	text string
	num  decimal.Decimal
}

func AmountFromString(s string) Amount {
	return Amount{kind: amountString, text: s}
}

func AmountFromInt(n int64) Amount {
	return Amount{kind: amountNumber, num: decimal.NewFromInt(n)}
}

func AmountFromDecimal(d decimal.Decimal) Amount {
	return Amount{kind: amountNumber, num: d}
}

// IsZero reports whether the amount counts as missing: null, the empty
// string or the number zero. The string "0" is present.
func (a Amount) IsZero() bool {
	switch a.kind {
	case amountString:
		return a.text == ""
	case amountNumber:
		return a.num.IsZero()
	default:
		return true
	}
}

func (a Amount) IsNumber() bool { return a.kind == amountNumber }

// Decimal returns the numeric value. Strings are parsed; ok is false when
// the amount is null or not numeric.
func (a Amount) Decimal() (decimal.Decimal, bool) {
	switch a.kind {
	case amountNumber:
		return a.num, true
	case amountString:
		d, err := decimal.NewFromString(a.text)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	default:
		return decimal.Zero, false
	}
}

func (a Amount) String() string {
	switch a.kind {
	case amountString:
		return a.text
	case amountNumber:
		if a.text != "" {
			return a.text
		}
		return a.num.String()
	default:
		return ""
	}
}

func (a Amount) Equal(b Amount) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case amountString:
		return a.text == b.text
	case amountNumber:
		return a.num.Equal(b.num)
	default:
		return true
	}
}

func (a Amount) MarshalJSON() ([]byte, error) {
	switch a.kind {
	case amountString:
		return json.Marshal(a.text)
	case amountNumber:
		return []byte(a.String()), nil
	default:
		return []byte("null"), nil
	}
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*a = Amount{}
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = AmountFromString(s)
		return nil
	}

	if !json.Valid(b) {
		return fmt.Errorf("amount must be a number or a string: %.32s", b)
	}
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return fmt.Errorf("amount must be a number or a string: %.32s", b)
	}
	if err := checkRange(d); err != nil {
		return err
	}
	*a = Amount{kind: amountNumber, text: string(b), num: d}
	return nil
}

func checkRange(d decimal.Decimal) error {
	if d.IsZero() {
		return nil
	}
	exp := int(d.Exponent())
	if exp < -maxAmountScale || d.NumDigits()+exp > maxAmountIntDigits {
		return fmt.Errorf("%w: %d digits, exponent %d", ErrAmountRange, d.NumDigits(), exp)
	}
	return nil
}

// Value stores the amount as its JSON text.
func (a Amount) Value() (driver.Value, error) {
	b, err := a.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = Amount{}
		return nil
	case string:
		return a.UnmarshalJSON([]byte(v))
	case []byte:
		return a.UnmarshalJSON(v)
	default:
		return errors.New("amount: unsupported column type")
	}
}
