// redact маскирует чувствительные данные перед записью в лог: e-mail,
// телефон, токены, пароли и одноразовые коды. Тела запросов в лог не
// пишутся вовсе, сюда попадают только отдельные поля для контекста.
package redact

import "strings"

// Email маскирует e-mail: первые две руны локальной части + "***".
//
// Примеры:
//
//	"ada@example.ng" -> "ad***@example.ng"
//	"ab@ex.com"      -> "***@ex.com"
//	"no-at"          -> "***"
func Email(s string) string {
	if strings.Count(s, "@") != 1 {
		return "***"
	}

	i := strings.IndexByte(s, '@')
	local, domain := s[:i], s[i+1:]

	lr := []rune(local)
	if len(lr) > 2 {
		local = string(lr[:2]) + "***"
	} else {
		local = "***"
	}

	return local + "@" + domain
}

// Phone оставляет только две последние цифры номера.
func Phone(s string) string {
	digits := make([]rune, 0, len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}

	if len(digits) <= 2 {
		return "***"
	}

	return "***" + string(digits[len(digits)-2:])
}

func Token() string    { return "[REDACTED_TOKEN]" }
func Password() string { return "[REDACTED_PASSWORD]" }
func OTP() string      { return "[REDACTED_OTP]" }
