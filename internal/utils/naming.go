package utils

import (
	"strings"
	"unicode"
)

// ToSnakeCase 将驼峰命名转换为蛇形(下划线)命名
// 连续的大写字母视为一个缩略词: HTTPServer -> http_server, EmployeeID -> employee_id
func ToSnakeCase(name string) string {
	runes := []rune(name)

	var buf strings.Builder
	underscored := true // 开头不插入下划线
	for i, r := range runes {
		if r == '_' {
			if !underscored {
				buf.WriteByte('_')
				underscored = true
			}
			continue
		}

		if unicode.IsUpper(r) && !underscored && i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				buf.WriteByte('_')
			}
		}
		buf.WriteRune(unicode.ToLower(r))
		underscored = false
	}

	return strings.TrimSuffix(buf.String(), "_")
}

// FoldIdent 归一化标识符用于不区分大小写、忽略下划线的比较
// StatusCode, status_code, STATUSCODE 都得到 statuscode
func FoldIdent(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "_", ""))
}
