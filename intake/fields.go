package intake

import (
	"slices"
	"strings"
)

// ключевые слова, по которым последнее поле формы считается вложением
var attachmentKeywords = []string{"dekont", "makbuz", "receipt", "fatura"}

const cancelKeyword = "iptal"

// NormalizeName приводит имя формы к виду, в котором оно хранится
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// SplitLines режет текст по строкам, обрезает пробелы и выбрасывает пустые
func SplitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func IsCancel(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	return t == cancelKeyword || t == "/"+cancelKeyword
}

func IsAttachmentField(field string) bool {
	f := strings.ToLower(field)
	for _, kw := range attachmentKeywords {
		if strings.Contains(f, kw) {
			return true
		}
	}
	return false
}

type CountCheck struct {
	// Missing — недостающие поля по порядку
	Missing []string
	Extra   int
	// AwaitAttachment — не хватает только последнего поля-вложения
	AwaitAttachment bool
}

func (c CountCheck) OK() bool {
	return len(c.Missing) == 0 && c.Extra == 0 && !c.AwaitAttachment
}

func CheckCount(fields, values []string) CountCheck {
	switch n := len(fields); {
	case len(values) == n:
		return CountCheck{}
	case len(values) > n:
		return CountCheck{Extra: len(values) - n}
	case len(values) == n-1 && IsAttachmentField(fields[n-1]):
		return CountCheck{AwaitAttachment: true}
	default:
		return CountCheck{Missing: slices.Clone(fields[len(values):])}
	}
}
