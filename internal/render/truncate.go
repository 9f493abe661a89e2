package render

import "github.com/mattn/go-runewidth"

// MiddleEllipsis shortens s to at most maxWidth display cells by cutting
// out the middle, keeping the head and tail visible. Window titles tend to
// carry the distinguishing part at both ends.
func MiddleEllipsis(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth == 1 {
		return "…"
	}

	budget := maxWidth - 1
	leftBudget := (budget + 1) / 2
	rightBudget := budget - leftBudget

	runes := []rune(s)
	left := make([]rune, 0, len(runes))
	w := 0
	for _, r := range runes {
		rw := runewidth.RuneWidth(r)
		if w+rw > leftBudget {
			break
		}
		left = append(left, r)
		w += rw
	}

	right := make([]rune, 0, len(runes))
	w = 0
	for i := len(runes) - 1; i >= 0; i-- {
		rw := runewidth.RuneWidth(runes[i])
		if w+rw > rightBudget {
			break
		}
		right = append([]rune{runes[i]}, right...)
		w += rw
	}

	return string(left) + "…" + string(right)
}
