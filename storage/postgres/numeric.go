package postgres

import "strconv"

// numeric renders a u64 for a NUMERIC column; pgx has no uint64 encoder for
// values above MaxInt64.
func numeric(v uint64) string {
	return strconv.FormatUint(v, 10)
}
