package calendar

import (
	"strconv"
	"strings"
)

var digits = [...]string{"零", "一", "二", "三", "四", "五", "六", "七", "八", "九"}

var digitValues = map[rune]int{
	'零': 0, '〇': 0,
	'一': 1, '二': 2, '两': 2, '三': 3, '四': 4,
	'五': 5, '六': 6, '七': 7, '八': 8, '九': 9,
}

// Numeral renders 0-999 as Chinese numerals ("十一", "二十", "一百零五").
// Larger or negative values fall back to Arabic digits.
func Numeral(n int) string {
	if n < 0 || n > 999 {
		return strconv.Itoa(n)
	}
	if n < 10 {
		return digits[n]
	}
	if n < 20 {
		if n == 10 {
			return "十"
		}
		return "十" + digits[n-10]
	}
	if n < 100 {
		s := digits[n/10] + "十"
		if n%10 != 0 {
			s += digits[n%10]
		}
		return s
	}

	s := digits[n/100] + "百"
	rem := n % 100
	switch {
	case rem == 0:
	case rem < 10:
		s += "零" + digits[rem]
	case rem < 20:
		s += "一" + Numeral(rem)
	default:
		s += Numeral(rem)
	}
	return s
}

// ParseNumeral parses Arabic digits or Chinese numerals up to the hundreds
// ("十", "十二", "二十", "两", "三百").
func ParseNumeral(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, n >= 0
	}

	total, current := 0, 0
	seen := false
	for _, r := range s {
		switch r {
		case '十':
			if current == 0 {
				current = 1
			}
			total += current * 10
			current = 0
		case '百':
			if current == 0 {
				current = 1
			}
			total += current * 100
			current = 0
		default:
			v, ok := digitValues[r]
			if !ok {
				return 0, false
			}
			current = v
		}
		seen = true
	}
	if !seen {
		return 0, false
	}
	return total + current, true
}
