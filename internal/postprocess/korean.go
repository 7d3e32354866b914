package postprocess

import "strings"

var (
	koreanDigits    = [...]string{"", "일", "이", "삼", "사", "오", "육", "칠", "팔", "구"}
	koreanPositions = [...]string{"", "십", "백", "천"}
	koreanGroups    = [...]string{"", "만", "억", "조", "경"}
)

// KoreanAmount spells n in Sino-Korean numerals followed by "원정", the form
// used on estimates and invoices: 10000 is "일만원정", 143000 is
// "십사만삼천원정". Zero is "영원".
func KoreanAmount(n int64) string {
	if n == 0 {
		return "영원"
	}
	var sb strings.Builder
	if n < 0 {
		sb.WriteString("마이너스")
	}
	u := uint64(n)
	if n < 0 {
		u = uint64(-(n + 1)) + 1
	}

	var groups []string
	for g := 0; u > 0; g++ {
		chunk := int(u % 10000)
		u /= 10000
		if chunk == 0 {
			continue
		}
		groups = append(groups, koreanGroup(chunk)+koreanGroups[g])
	}
	for i := len(groups) - 1; i >= 0; i-- {
		sb.WriteString(groups[i])
	}
	sb.WriteString("원정")
	return sb.String()
}

// koreanGroup spells 1..9999. A leading one before 십, 백 or 천 is dropped.
func koreanGroup(chunk int) string {
	var sb strings.Builder
	for pos, div := 3, 1000; pos >= 0; pos, div = pos-1, div/10 {
		d := (chunk / div) % 10
		if d == 0 {
			continue
		}
		if d != 1 || pos == 0 {
			sb.WriteString(koreanDigits[d])
		}
		sb.WriteString(koreanPositions[pos])
	}
	return sb.String()
}
