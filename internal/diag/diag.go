// Package diag 渲染生成过程中的诊断信息。
//
// 文本模式输出 file:line:col: kind: message，附带源码行与指向列的插入符；
// JSON 模式在 Flush 时一次性输出所有诊断。
package diag

import (
	"bufio"
	"errors"
	"fmt"
	"go/token"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

// Diagnostic 带源码位置的诊断
type Diagnostic interface {
	error
	Location() token.Position
	Code() string    // 蛇形命名的类型代码，如 conflicting_annotations
	Summary() string // 不含位置与类型的消息
}

// Severity 诊断级别
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Entry JSON 输出的单条诊断
type Entry struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code,omitempty"`
	File     string   `json:"file,omitempty"`
	Line     int      `json:"line,omitempty"`
	Column   int      `json:"column,omitempty"`
	Message  string   `json:"message"`
}

// Reporter 诊断输出器，可并发使用
type Reporter struct {
	mu      sync.Mutex
	w       io.Writer
	json    bool
	entries []Entry
	lines   map[string][]string // 源文件行缓存

	errorStyle   *color.Color
	warningStyle *color.Color
	codeStyle    *color.Color
	caretStyle   *color.Color
}

// Option Reporter 选项
type Option func(*Reporter)

// WithJSON 切换为 JSON 输出
func WithJSON(v bool) Option {
	return func(r *Reporter) { r.json = v }
}

// WithColor 强制开启或关闭颜色，默认由 fatih/color 根据终端判断
func WithColor(v bool) Option {
	return func(r *Reporter) {
		for _, c := range []*color.Color{r.errorStyle, r.warningStyle, r.codeStyle, r.caretStyle} {
			if v {
				c.EnableColor()
			} else {
				c.DisableColor()
			}
		}
	}
}

func NewReporter(w io.Writer, opts ...Option) *Reporter {
	r := &Reporter{
		w:            w,
		lines:        make(map[string][]string),
		errorStyle:   color.New(color.FgRed, color.Bold),
		warningStyle: color.New(color.FgYellow, color.Bold),
		codeStyle:    color.New(color.Bold),
		caretStyle:   color.New(color.FgGreen, color.Bold),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Error 输出一个错误
// 聚合错误（实现 Unwrap() []error）会被展开逐条输出
func (r *Reporter) Error(err error) {
	r.report(SeverityError, err)
}

// Warn 输出一个警告
func (r *Reporter) Warn(err error) {
	r.report(SeverityWarning, err)
}

func (r *Reporter) report(sev Severity, err error) {
	if err == nil {
		return
	}
	if _, ok := err.(Diagnostic); !ok {
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, e := range joined.Unwrap() {
				r.report(sev, e)
			}
			return
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry := Entry{Severity: sev, Message: err.Error()}
	var d Diagnostic
	if errors.As(err, &d) {
		loc := d.Location()
		entry.Code = d.Code()
		entry.File, entry.Line, entry.Column = loc.Filename, loc.Line, loc.Column
		entry.Message = d.Summary()
	}

	if r.json {
		r.entries = append(r.entries, entry)
		return
	}
	r.render(entry)
}

// Count 返回已记录的诊断数量，仅 JSON 模式有效
func (r *Reporter) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Flush JSON 模式下输出全部诊断
func (r *Reporter) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.json {
		return nil
	}
	entries := r.entries
	if entries == nil {
		entries = []Entry{}
	}
	data, err := sonic.ConfigStd.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化诊断失败: %w", err)
	}
	r.entries = nil
	_, err = fmt.Fprintf(r.w, "%s\n", data)
	return err
}

func (r *Reporter) render(e Entry) {
	style := r.errorStyle
	label := "错误"
	if e.Severity == SeverityWarning {
		style = r.warningStyle
		label = "警告"
	}

	var head strings.Builder
	if e.File != "" {
		head.WriteString(token.Position{Filename: e.File, Line: e.Line, Column: e.Column}.String())
		head.WriteString(": ")
	}
	head.WriteString(style.Sprint(label))
	if e.Code != "" {
		head.WriteString(r.codeStyle.Sprintf("[%s]", e.Code))
	}
	head.WriteString(": ")
	head.WriteString(e.Message)
	fmt.Fprintln(r.w, head.String())

	if line, ok := r.sourceLine(e.File, e.Line); ok {
		gutter := fmt.Sprintf("%5d | ", e.Line)
		fmt.Fprintf(r.w, "%s%s\n", gutter, line)
		fmt.Fprintf(r.w, "%s| %s%s\n", strings.Repeat(" ", len(gutter)-2), CaretPadding(line, e.Column), r.caretStyle.Sprint("^"))
	}
}

// sourceLine 读取源文件的第 n 行（从 1 开始）
func (r *Reporter) sourceLine(file string, n int) (string, bool) {
	if file == "" || n <= 0 {
		return "", false
	}
	lines, ok := r.lines[file]
	if !ok {
		lines = readLines(file)
		r.lines[file] = lines
	}
	if n > len(lines) {
		return "", false
	}
	return lines[n-1], true
}

func readLines(file string) []string {
	f, err := os.Open(file)
	if err != nil {
		return nil
	}
	defer f.Close()

	var lines []string
	s := bufio.NewScanner(f)
	for s.Scan() {
		lines = append(lines, s.Text())
	}
	return lines
}

// CaretPadding 返回把插入符对齐到 line 第 col 列（字节列，从 1 开始）所需的前缀。
// 制表符原样保留，其余字符按显示宽度替换为空格，宽字符占两列。
func CaretPadding(line string, col int) string {
	if col <= 1 {
		return ""
	}
	prefix := line[:min(col-1, len(line))]

	var b strings.Builder
	for _, r := range prefix {
		if r == '\t' {
			b.WriteByte('\t')
			continue
		}
		b.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
	}
	return b.String()
}
