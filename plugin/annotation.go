package plugin

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// annotationRegex 匹配 @Name 或 @Name(args)，args 中引号内的右括号不结束参数
var annotationRegex = regexp.MustCompile(
	`@(\w+)(?:\(((?:"(?:\\.|[^"\\])*"|` + "`[^`]*`" + `|[^)"` + "`" + `])*)\))?`)

// annotationArgs 注解参数: key=value, key="value", key=`value`
type annotationArgs struct {
	Pairs []*annotationPair `parser:"( @@ ( ',' @@ )* ','? )?"`
}

type annotationPair struct {
	Key   string `parser:"@Word '='"`
	Value string `parser:"@( String | RawString | Word )?"`
}

var argsLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},
	{Name: "RawString", Pattern: "`[^`]*`"},
	{Name: "Word", Pattern: "[^\\s,=\"`]+"},
	{Name: "Punct", Pattern: `[,=]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var argsParser = participle.MustBuild[annotationArgs](
	participle.Lexer(argsLexer),
	participle.Elide("Whitespace"),
)

// ParseAnnotations 从注释文本中解析所有注解。
// 参数按 key=value 解析，key 不区分大小写；不是这种形式的参数（如 @StatusCode(NotFound)）
// 记录在 Annotation.Err 中，由绑定参数的一方决定是否报告。
func ParseAnnotations(comment string) []*Annotation {
	lines := strings.Split(comment, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "//")
		line = strings.TrimPrefix(line, "/*")
		lines[i] = strings.TrimSuffix(line, "*/")
	}
	text := strings.Join(lines, "\n")

	var annotations []*Annotation
	for _, m := range annotationRegex.FindAllStringSubmatchIndex(text, -1) {
		ann := &Annotation{
			Name:   text[m[2]:m[3]],
			Raw:    text[m[0]:m[1]],
			Params: map[string]string{},
		}
		if m[4] >= 0 {
			ann.Params, ann.Err = parseArgs(text[m[4]:m[5]])
		}
		annotations = append(annotations, ann)
	}
	return annotations
}

func parseArgs(content string) (map[string]string, error) {
	params := map[string]string{}
	args, err := argsParser.ParseString("", content)
	if err != nil {
		return params, fmt.Errorf("参数 (%s) 不是 key=value 形式: %w", content, err)
	}
	for _, p := range args.Pairs {
		params[strings.ToLower(p.Key)] = unquoteArg(p.Value)
	}
	return params, nil
}

func unquoteArg(v string) string {
	switch {
	case strings.HasPrefix(v, "`"):
		return strings.Trim(v, "`")
	case strings.HasPrefix(v, `"`):
		if s, err := strconv.Unquote(v); err == nil {
			return s
		}
		return strings.Trim(v, `"`)
	}
	return v
}

// GetAnnotation 获取指定名称的注解
func GetAnnotation(annotations []*Annotation, name string) *Annotation {
	for _, ann := range annotations {
		if ann.Name == name {
			return ann
		}
	}
	return nil
}

// GetParam 获取注解参数
func (a *Annotation) GetParam(key string) string {
	return a.Params[strings.ToLower(key)]
}
