// Package validation содержит проверки пользовательского ввода.
package validation

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

// MinPasswordLength задаёт минимальную длину пароля в символах.
const MinPasswordLength = 6

// IsValidLogin проверяет, что логин является адресом электронной почты без отображаемого имени.
func IsValidLogin(login string) bool {
	if login == "" || len(login) > 254 || strings.TrimSpace(login) != login {
		return false
	}
	addr, err := mail.ParseAddress(login)
	if err != nil || addr.Address != login {
		return false
	}
	_, domain, _ := strings.Cut(login, "@")
	return strings.Contains(domain, ".")
}

// IsValidPassword проверяет минимальную длину пароля.
func IsValidPassword(password string) bool {
	return utf8.RuneCountInString(password) >= MinPasswordLength
}

// NormalizeLogin приводит логин к каноническому виду.
func NormalizeLogin(login string) string {
	return strings.ToLower(strings.TrimSpace(login))
}
