package dispatch

import "strings"

// MaskPhone keeps the first three and last two digits so log lines stay
// correlatable without exposing the number.
func MaskPhone(phone string) string {
	if phone == "" {
		return ""
	}
	if len(phone) <= 5 {
		return strings.Repeat("*", len(phone))
	}
	return phone[:3] + strings.Repeat("*", len(phone)-5) + phone[len(phone)-2:]
}

// MaskEmail keeps the first two characters of the local part and the
// full domain.
func MaskEmail(email string) string {
	if email == "" {
		return ""
	}
	local, domain, ok := strings.Cut(email, "@")
	if !ok || len(local) <= 2 {
		return "***@" + domain
	}
	return local[:2] + strings.Repeat("*", len(local)-2) + "@" + domain
}
