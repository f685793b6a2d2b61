package codec

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// EncodeCondition encodes one rule cell of an input column. The returned
// condition is always usable: when the literal cannot be parsed the cell
// degrades to DontCare and the *LiteralError says why.
func (c *Codec) EncodeCondition(text string, t TypeRef) (Condition, error) {
	s := strings.TrimSpace(text)
	if s == "" || s == "-" {
		return DontCare, nil
	}

	op := OpEqual
	for _, tok := range operatorTokens {
		if tok.ordered && !t.Ordered() {
			continue
		}
		if strings.HasPrefix(s, tok.token) {
			op = tok.op
			s = strings.TrimSpace(s[len(tok.token):])
			break
		}
	}

	v, err := c.encodeLiteral(s, t, true)
	if err != nil {
		return DontCare, &LiteralError{Text: text, TypeRef: t, Err: err}
	}
	return Condition{Value: v, Op: op, Active: true}, nil
}

// EncodeOutputLiteral encodes one output cell of a rule. Empty, dash and
// unparseable literals encode to NaN.
func (c *Codec) EncodeOutputLiteral(text string, t TypeRef) (float64, error) {
	s := strings.TrimSpace(text)
	if s == "" || s == "-" {
		return math.NaN(), nil
	}
	v, err := c.encodeLiteral(s, t, true)
	if err != nil {
		return math.NaN(), &LiteralError{Text: text, TypeRef: t, Err: err}
	}
	return v, nil
}

// encodeLiteral unwraps and parses a literal with the operator already
// stripped. Strings are inserted into the vocabulary when insert is set.
func (c *Codec) encodeLiteral(s string, t TypeRef, insert bool) (float64, error) {
	switch t {
	case TypeNumber, TypeInteger:
		return parseNumber(s)

	case TypeBoolean:
		return parseBoolean(s)

	case TypeDate:
		tm, err := ParseDateTime(unwrapCall(unwrapCall(s, "date and time"), "date"))
		if err != nil {
			return 0, err
		}
		return DateToNumber(tm), nil

	case TypeDateTime:
		inner := unwrapCall(s, "date and time")
		inner = unwrapCall(inner, "date")
		tm, err := ParseDateTime(inner)
		if err != nil {
			return 0, err
		}
		return DateTimeToNumber(tm), nil

	default:
		s = unquote(s)
		if insert {
			return c.Add(s), nil
		}
		return c.Lookup(s), nil
	}
}

// EncodeValue encodes a runtime input value for a column of type t. It never
// inserts into the vocabulary: strings unseen at compile time encode to NaN.
// Integers wider than 2^53 lose precision when widened to float64.
func (c *Codec) EncodeValue(v any, t TypeRef) float64 {
	switch x := v.(type) {
	case nil:
		return math.NaN()
	case string:
		return c.encodeRuntimeString(x, t)
	case bool:
		if x {
			return 1
		}
		return 0
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case time.Time:
		if t == TypeDateTime {
			return DateTimeToNumber(x)
		}
		return DateToNumber(x)
	case *time.Time:
		if x == nil {
			return math.NaN()
		}
		return c.EncodeValue(*x, t)
	default:
		return math.NaN()
	}
}

func (c *Codec) encodeRuntimeString(s string, t TypeRef) float64 {
	switch t {
	case TypeNumber, TypeInteger, TypeBoolean, TypeDate, TypeDateTime:
		v, err := c.encodeLiteral(strings.TrimSpace(s), t, false)
		if err != nil {
			return math.NaN()
		}
		return v
	default:
		return c.Lookup(s)
	}
}

// Decode turns an encoded cell back into a typed value:
//
//	string    string ("" for NaN or unknown ids)
//	number    float64 (NaN kept)
//	integer   int64 (0 for NaN, infinities and out-of-range values)
//	boolean   bool (true only for exactly 1)
//	date      time.Time, or nil when unrepresentable
//	dateTime  time.Time, or nil when unrepresentable
//
// Unknown type references decode as numbers.
func (c *Codec) Decode(v float64, t TypeRef) any {
	switch t {
	case TypeString:
		return c.DecodeString(v)
	case TypeInteger:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return int64(0)
		}
		r := math.Round(v)
		if r < math.MinInt64 || r >= math.MaxInt64 {
			return int64(0)
		}
		return int64(r)
	case TypeBoolean:
		return v == 1
	case TypeDate:
		tm, ok := NumberToDate(v)
		if !ok {
			return nil
		}
		return tm
	case TypeDateTime:
		tm, ok := NumberToDateTime(v)
		if !ok {
			return nil
		}
		return tm
	default:
		return v
	}
}

func parseNumber(s string) (float64, error) {
	f, err := strconv.ParseFloat(unquote(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrInvalidNumber
	}
	return f, nil
}

func parseBoolean(s string) (float64, error) {
	switch strings.ToLower(unquote(s)) {
	case "true":
		return 1, nil
	case "false":
		return 0, nil
	}
	return 0, ErrInvalidBoolean
}

// unwrapCall strips a `name("...")` wrapper (name matched case-insensitively)
// and the quotes inside it. Text without the wrapper is only unquoted.
func unwrapCall(s, name string) string {
	s = strings.TrimSpace(s)
	if len(s) > len(name)+1 && strings.EqualFold(s[:len(name)], name) {
		rest := strings.TrimSpace(s[len(name):])
		if strings.HasPrefix(rest, "(") && strings.HasSuffix(rest, ")") {
			return unquote(strings.TrimSpace(rest[1 : len(rest)-1]))
		}
	}
	return unquote(s)
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
