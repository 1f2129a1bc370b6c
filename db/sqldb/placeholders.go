package sqldb

import (
	"fmt"
)

var PlaceholderPrefixForDBType = map[string]byte{
	"mysql": '?',
	"pgsql": '$',
}

// Placeholders returns n bind placeholders for dbType starting at 1:
// "?" for mysql, "$1".."$n" for pgsql
func Placeholders(dbType string, n int) []string {
	return PlaceholdersGF(PlaceholderPrefixForDBType[dbType])(n)
}

func PlaceholdersGF(baseChar byte) func(int, ...int) []string { // length, start
	if baseChar == '?' || baseChar == 0 {
		return func(length int, _ ...int) []string {
			placeholders := make([]string, length)
			for i := range placeholders {
				placeholders[i] = "?"
			}
			return placeholders
		}
	}
	return func(length int, startIndex ...int) []string {
		placeholders := make([]string, length)
		startI := 1
		if len(startIndex) > 0 {
			startI = startIndex[0]
		}
		for i := range placeholders {
			placeholders[i] = fmt.Sprintf("%c%d", baseChar, startI+i)
		}
		return placeholders
	}
}
