package models

import "fmt"

// FormatPaise renders an integer paise amount as rupees
func FormatPaise(paise int64) string {
	sign := ""
	if paise < 0 {
		sign = "-"
		paise = -paise
	}
	return fmt.Sprintf("%s₹%d.%02d", sign, paise/100, paise%100)
}

// GSTInclusive returns the tax portion of a GST-inclusive amount,
// gst = total * rate / (100 + rate), rounded half-up in paise.
func GSTInclusive(total int64, rate int) int64 {
	if rate <= 0 || total <= 0 {
		return 0
	}
	num := total * int64(rate)
	den := int64(100 + rate)
	return (num + den/2) / den
}
