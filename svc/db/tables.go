package db

// A Table is a named key range inside the shared keyspace. Rows are keyed
// by pasty id; the physical key is the table name, a ':' separator and the
// id, so forward iteration over a table yields ids in byte order.
type Table struct {
	prefix []byte
}

func NewTable(name string) Table {
	return Table{prefix: append([]byte(name), ':')}
}

// The four pasty tables. Every well-formed pasty has one row in each,
// written and removed atomically.
var (
	TableType    = NewTable("type")
	TableContent = NewTable("content")
	TableToken   = NewTable("token")
	TableStats   = NewTable("stats")
)

func (t Table) Key(id string) []byte {
	k := make([]byte, 0, len(t.prefix)+len(id))
	k = append(k, t.prefix...)
	return append(k, id...)
}

// ID strips the table prefix from a physical key.
func (t Table) ID(key []byte) string {
	return string(key[len(t.prefix):])
}

// Bounds returns the half-open key range covering the whole table. The
// prefix ends with the separator byte, so the increment cannot overflow.
func (t Table) Bounds() (lower, upper []byte) {
	lower = t.prefix
	upper = append([]byte(nil), t.prefix...)
	upper[len(upper)-1]++
	return lower, upper
}
