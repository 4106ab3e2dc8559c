package google

func toValues(rows [][]string) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		vals := make([]interface{}, len(row))
		for j, v := range row {
			vals[j] = v
		}
		out[i] = vals
	}
	return out
}

func maxWidth(rows [][]string) int {
	w := 1
	for _, row := range rows {
		if len(row) > w {
			w = len(row)
		}
	}
	return w
}

// columnName converts a 1-based column index to A1 letters: 1 -> A, 27 -> AA.
func columnName(n int) string {
	name := ""
	for n > 0 {
		n--
		name = string(rune('A'+n%26)) + name
		n /= 26
	}
	return name
}
