// redact маскирует учётные данные перед записью в лог.
package redact

import "unicode/utf8"

// Username оставляет первые два символа имени.
func Username(s string) string {
	if utf8.RuneCountInString(s) <= 2 {
		return "***"
	}

	r := []rune(s)

	return string(r[:2]) + "***"
}
