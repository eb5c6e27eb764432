// Package validation содержит правила разбора и проверки кодов доставки.
package validation

import (
	"errors"
	"regexp"
	"strings"
)

// CodePrefix открывает каждый код доставки.
const CodePrefix = "LIV-"

// ErrEmptyCode возвращается при попытке отправить пустой код.
var ErrEmptyCode = errors.New("delivery code is empty")

var (
	reCode     = regexp.MustCompile(`LIV-[A-Z0-9]+`)
	reFullCode = regexp.MustCompile(`^LIV-[A-Z0-9]+$`)
)

// IsDeliveryCode проверяет, что строка целиком является кодом доставки.
func IsDeliveryCode(s string) bool {
	return reFullCode.MatchString(s)
}

// ExtractDeliveryCode извлекает код доставки из распознанного содержимого.
// Из нескольких совпадений выбирается самое длинное; если совпадений нет,
// кодом считается само содержимое без пробелов по краям.
func ExtractDeliveryCode(payload string) string {
	best := ""
	for _, m := range reCode.FindAllString(payload, -1) {
		if len(m) > len(best) {
			best = m
		}
	}
	if best != "" {
		return best
	}
	return strings.TrimSpace(payload)
}

// NormalizeManualCode приводит введённый вручную код к верхнему регистру
// и добавляет префикс LIV-, если его нет.
func NormalizeManualCode(input string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(input))
	if code == "" {
		return "", ErrEmptyCode
	}
	if !strings.HasPrefix(code, CodePrefix) {
		code = CodePrefix + code
	}
	return code, nil
}
