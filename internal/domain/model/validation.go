package model

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DNS-1123 label: строчные латинские буквы, цифры и '-', начало и конец — буква или цифра.
var slugRegex = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)

// SlugMaxLength — максимальная длина slug (DNS-1123 label).
const SlugMaxLength = 63

// hexColorRegex — цвет в формате #rrggbb.
var hexColorRegex = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ValidateSlug проверяет, что slug организации — корректная DNS-1123 метка.
func ValidateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("slug не может быть пустым")
	}
	if len(slug) > SlugMaxLength {
		return fmt.Errorf("slug длиннее %d символов", SlugMaxLength)
	}
	if !slugRegex.MatchString(slug) {
		return fmt.Errorf("slug %q должен состоять из строчных латинских букв, цифр и '-'", slug)
	}
	return nil
}

// Slugify строит slug из названия организации:
// "Garage Métropole" → "garage-metropole". Диакритика снимается через NFD.
func Slugify(name string) string {
	decomposed := norm.NFD.String(strings.ToLower(name))

	var b strings.Builder
	dash := false
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
			// диакритический знак
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}

	s := strings.TrimRight(b.String(), "-")
	if len(s) > SlugMaxLength {
		s = strings.TrimRight(s[:SlugMaxLength], "-")
	}
	return s
}

// IsValidColor проверяет цвет в формате #rrggbb.
func IsValidColor(c string) bool {
	return hexColorRegex.MatchString(c)
}
