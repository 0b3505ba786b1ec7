package ocr

import (
	"regexp"
	"strings"
)

// matcher 是一条具名的提取规则。规则按切片顺序逐条尝试，第一条产生匹配的
// 规则获胜，取其扫描顺序上的第一个匹配，不做打分。
type matcher struct {
	name  string
	re    *regexp.Regexp
	group int
}

func (m matcher) find(text string) (string, bool) {
	match := m.re.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}
	idx := m.group
	if idx >= len(match) {
		idx = 0
	}
	value := strings.TrimSpace(match[idx])
	if value == "" {
		return "", false
	}
	return value, true
}

// documentMatchers 按优先级排列：英式格式在前（最具体），美式格式其后，
// 最宽松的兜底规则在末尾。
var documentMatchers = []matcher{
	{name: "uk-field-5", re: regexp.MustCompile(`5\s+([A-Z]{5}\d+[A-Za-z]+)`), group: 1},
	{name: "uk-mixed-case", re: regexp.MustCompile(`\b([A-Z]{5}\d+[A-Za-z]+[a-z]*[A-Z]*)\b`), group: 1},
	{name: "uk-variant", re: regexp.MustCompile(`\b([A-Z]{3,5}\d{1,2}[A-Z]{2,8}[a-z]{0,5})\b`), group: 1},
	{name: "us-labeled", re: regexp.MustCompile(`(?i)(?:DL|LICENSE|LIC)[\s#:]*([A-Z]?\d{7,8})`), group: 0},
	{name: "us-letter-7", re: regexp.MustCompile(`(?m)(?:^|\s)([A-Z]\d{7})(?:\s|$)`), group: 1},
	{name: "us-2letter-6", re: regexp.MustCompile(`(?m)(?:^|\s)([A-Z]{2}\d{6})(?:\s|$)`), group: 1},
	{name: "us-8-digit", re: regexp.MustCompile(`(?m)(?:^|\s)(\d{8})(?:\s|$)`), group: 1},
	{name: "us-letter-6", re: regexp.MustCompile(`(?m)(?:^|\s)([A-Z]\d{6})(?:\s|$)`), group: 1},
	{name: "any-8-digit", re: regexp.MustCompile(`\b(\d{8})\b`), group: 1},
	{name: "any-letter-7", re: regexp.MustCompile(`\b([A-Z]\d{7})\b`), group: 1},
}

// expiryMatchers 覆盖四种常见日期排版，独立于证件号提取。
var expiryMatchers = []matcher{
	{name: "mm/dd/yyyy", re: regexp.MustCompile(`\d{2}/\d{2}/\d{4}`)},
	{name: "mm-dd-yyyy", re: regexp.MustCompile(`\d{2}-\d{2}-\d{4}`)},
	{name: "yyyy-mm-dd", re: regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)},
	{name: "mm.dd.yyyy", re: regexp.MustCompile(`\d{2}\.\d{2}\.\d{4}`)},
}

// labelPrefix 匹配 "DL:"、"LICENSE #" 一类的标签前缀。
var labelPrefix = regexp.MustCompile(`^(?i:DL|LICENSE|LIC)[\s#:]*`)

// extractDocumentNumber 返回第一条命中规则的第一个匹配，并剥离标签前缀。
// 未命中不是错误，调用方应将其视为“无法提取”的可恢复结果。
func extractDocumentNumber(text string) (value, rule string, ok bool) {
	for _, m := range documentMatchers {
		candidate, found := m.find(text)
		if !found {
			continue
		}
		candidate = strings.TrimSpace(labelPrefix.ReplaceAllString(candidate, ""))
		if candidate == "" {
			continue
		}
		return candidate, m.name, true
	}
	return "", "", false
}

// extractExpiryDate 与证件号提取相互独立，同样尽力而为。
func extractExpiryDate(text string) (string, bool) {
	for _, m := range expiryMatchers {
		if value, found := m.find(text); found {
			return value, true
		}
	}
	return "", false
}

// cleanText 去掉竖线与波浪线等杂散分隔符，压缩空白并删除空行。
func cleanText(text string) string {
	text = strings.NewReplacer("|", "", "~", "").Replace(text)
	text = spacesRun.ReplaceAllString(text, " ")
	text = blankLines.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}

var (
	spacesRun  = regexp.MustCompile(`[ \t]+`)
	blankLines = regexp.MustCompile(`\n\s*\n`)
)
