package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/foodthrift/paysmallsmall/internal/savings/domain"
)

// FormatAmount renders a naira amount with thousands separators, e.g. ₦45,000.
func FormatAmount(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + "₦" + b.String()
}

// FormatRemaining renders a countdown as "2d 05h 00m 00s".
func FormatRemaining(tr *domain.TimeRemaining) string {
	if tr == nil {
		return "due now"
	}
	return fmt.Sprintf("%dd %02dh %02dm %02ds", tr.Days, tr.Hours, tr.Minutes, tr.Seconds)
}

// ProgressBar draws a fixed-width bar for a 0..1 fraction.
func ProgressBar(fraction float64, width int) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction*float64(width) + 0.5)
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}
