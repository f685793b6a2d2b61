// Package codec maps typed decision-table values onto float64 and back.
//
// Every cell a decision table compares is a float64. Numbers pass through,
// booleans become 0 or 1, dates become days since the Unix epoch and strings
// become stable integer ids handed out by a per-table vocabulary. NaN is the
// unknown sentinel: it is produced for nil inputs, unparseable output
// literals and strings the vocabulary has never seen, and it never compares
// equal (or not-equal) to anything.
//
// # Vocabulary
//
// A Codec owns the string vocabulary of one compiled table. Ids are assigned
// in first-seen order starting at zero and Add is idempotent:
//
//	c := codec.New()
//	id := c.Add("gold")      // 0
//	_ = c.Add("gold")        // 0 again
//	s := c.Decode(id)        // "gold"
//	u := c.Lookup("silver")  // NaN, nothing inserted
//
// The vocabulary grows only while a table is compiled. Freeze turns Add into
// a lookup, after which a Codec is safe for concurrent readers.
//
// # Literal Grammar
//
// EncodeCondition understands the cell grammar of a rule row:
//
//	""  or "-"                      don't-care
//	!=x  <>x                        not equal (all types)
//	>=x  <=x  >x  <x  =x            ordering (number, integer, date, dateTime)
//	"text"                          string literal
//	date("2020-01-01")              date literal
//	date and time("2020-01-01T10:00:00")
//	true / false                    boolean literal (case-insensitive)
//
// A literal that cannot be parsed for its column type degrades to a
// don't-care condition. EncodeCondition still reports a *LiteralError so the
// caller can surface a diagnostic.
//
// # Dates
//
// Dates encode to integral day numbers and datetimes to fractional days,
// both counted from 1970-01-01 UTC. Ordering is preserved and decoding
// rounds to the millisecond, so literals round-trip exactly. Values outside
// years 1 to 9999 decode to nil.
package codec
