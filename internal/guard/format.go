package guard

import "strconv"

func formatG(g float64) string {
	return strconv.FormatFloat(g, 'f', 2, 64) + " g"
}

func formatSeconds(s int) string {
	return strconv.Itoa(s) + " s"
}
