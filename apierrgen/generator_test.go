package apierrgen

import (
	"context"
	"errors"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/donutnomad/apierrgen/plugin"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildPlan(t *testing.T, response bool, patterns ...string) *plugin.Plan {
	t.Helper()
	registry := plugin.NewRegistry()
	require.NoError(t, registry.Register(NewGenerator().SetResponseDefault(response)))

	plan, err := plugin.BuildPlan(context.Background(), &plugin.RunOptions{
		Registry: registry,
		Patterns: patterns,
	})
	require.NoError(t, err)
	return plan
}

// generated 返回唯一的生成文件
func generated(t *testing.T, plan *plugin.Plan) (string, string) {
	t.Helper()
	require.Empty(t, plan.Errors)
	require.Len(t, plan.Files, 1)
	f := plan.Files[0]

	_, err := parser.ParseFile(token.NewFileSet(), f.Path, f.Content, parser.ParseComments)
	require.NoError(t, err, string(f.Content))
	return f.Path, string(f.Content)
}

// codeLines 去掉缩进后的非空行
func codeLines(content string) []string {
	return lo.FilterMap(strings.Split(content, "\n"), func(line string, _ int) (string, bool) {
		line = strings.TrimSpace(line)
		return line, line != ""
	})
}

func diagnosticsOf(errs []error) Diagnostics {
	var diags Diagnostics
	for _, err := range errs {
		var d *Diagnostic
		if errors.As(err, &d) {
			diags = append(diags, d)
		}
	}
	return diags
}

func TestGenerate_Basic(t *testing.T) {
	path, content := generated(t, buildPlan(t, false, "testdata/basic"))
	assert.Equal(t, "errors_apierror.go", filepath.Base(path))
	assert.Contains(t, content, "Code generated by apierrgen. DO NOT EDIT.")
	assert.Contains(t, content, "package basic")
	assert.Contains(t, content, `"github.com/donutnomad/apierrgen/apierror"`)

	lines := codeLines(content)
	for _, want := range []string{
		"var _ apierror.Descriptor = (*E)(nil)",
		"func (e E) ApiErrorData() apierror.Data {",
		"msg := fmt.Sprint(e)",
		"switch e {",
		"case A:",
		`return apierror.NewData(http.StatusInternalServerError, msg, "InternalServerError")`,
		"case B:",
		`return apierror.NewData(http.StatusNotFound, msg, "B")`,
		"case C:",
		`return apierror.NewData(http.StatusInternalServerError, msg, "oops")`,
		"case D:",
		`return apierror.NewData(http.StatusNotFound, msg, "oops")`,
		"case P:",
		`return apierror.NewData(http.StatusInternalServerError, msg, "P")`,
	} {
		assert.Contains(t, lines, want)
	}

	// 变体保持声明顺序，默认分支在 switch 之后
	indexOf := func(s string) int { return strings.Index(content, s) }
	assert.Less(t, indexOf("case A:"), indexOf("case B:"))
	assert.Less(t, indexOf("case B:"), indexOf("case C:"))
	assert.Less(t, indexOf("case C:"), indexOf("case D:"))
	assert.Less(t, indexOf("case D:"), indexOf("case P:"))
	assert.Equal(t, `return apierror.NewData(http.StatusInternalServerError, msg, "InternalServerError")`,
		lines[len(lines)-2])

	assert.NotContains(t, content, "Respond")
}

func TestGenerate_Deterministic(t *testing.T) {
	_, first := generated(t, buildPlan(t, true, "testdata/basic"))
	_, second := generated(t, buildPlan(t, true, "testdata/basic"))
	assert.Equal(t, first, second)

	frameworks := func() []plugin.PlannedFile {
		plan := buildPlan(t, false, "testdata/frameworks", "testdata/variants")
		require.Empty(t, plan.Errors)
		return plan.Files
	}
	assert.Equal(t, frameworks(), frameworks())
}

func TestGenerate_ResponseDefault(t *testing.T) {
	_, content := generated(t, buildPlan(t, true, "testdata/basic"))
	lines := codeLines(content)

	assert.Contains(t, lines, "var _ apierror.GinResponder = (*E)(nil)")
	assert.Contains(t, lines, "func (e E) Respond(c *gin.Context) {")
	assert.Contains(t, lines, "c.Set(apierror.ContextKey, e.ApiErrorData())")
	assert.Contains(t, lines, "c.Status(http.StatusInternalServerError)")
	assert.Contains(t, lines, "c.Abort()")
	assert.Contains(t, content, `"github.com/gin-gonic/gin"`)
}

func TestGenerate_Frameworks(t *testing.T) {
	_, content := generated(t, buildPlan(t, false, "testdata/frameworks"))
	lines := codeLines(content)

	// 同一文件中的枚举按名称排序
	indexOf := func(s string) int { return strings.Index(content, s) }
	assert.Less(t, indexOf("func (e EchoErr) ApiErrorData()"), indexOf("func (e FiberErr) ApiErrorData()"))
	assert.Less(t, indexOf("func (e FiberErr) ApiErrorData()"), indexOf("func (e GinErr) ApiErrorData()"))
	assert.Less(t, indexOf("func (e GinErr) ApiErrorData()"), indexOf("func (e Quiet) ApiErrorData()"))

	for _, want := range []string{
		"func (e GinErr) Respond(c *gin.Context) {",
		`return apierror.NewData(http.StatusUnauthorized, msg, "GinDenied")`,

		"var _ apierror.EchoResponder = (*EchoErr)(nil)",
		"func (e EchoErr) Respond(c echo.Context) error {",
		"return c.NoContent(http.StatusInternalServerError)",
		`return apierror.NewData(http.StatusTooManyRequests, msg, "EchoLimited")`,

		"var _ apierror.FiberResponder = (*FiberErr)(nil)",
		"func (e FiberErr) Respond(c *fiber.Ctx) error {",
		"c.Locals(apierror.ContextKey, e.ApiErrorData())",
		"return c.SendStatus(http.StatusInternalServerError)",
		`return apierror.NewData(http.StatusInternalServerError, msg, "raw label")`,

		"var _ apierror.Descriptor = (*Quiet)(nil)",
		"case QuietOne:",
	} {
		assert.Contains(t, lines, want)
	}
	assert.NotContains(t, content, "func (e Quiet) Respond")
	assert.Contains(t, content, `"github.com/labstack/echo/v4"`)
	assert.Contains(t, content, `"github.com/gofiber/fiber/v2"`)
}

func TestGenerate_Variants(t *testing.T) {
	_, content := generated(t, buildPlan(t, false, "testdata/variants"))
	lines := codeLines(content)

	for _, want := range []string{
		"case Invalid:", "case Missing:", "case Expired:", "case Denied:", "case Teapot:", "case Late:",
		`return apierror.NewData(http.StatusTeapot, msg, "Teapot")`,
		`return apierror.NewData(http.StatusForbidden, msg, "Denied")`,
		"case KindB:",
		`return apierror.NewData(http.StatusGatewayTimeout, msg, "KindB")`,
	} {
		assert.Contains(t, lines, want)
	}
	for _, absent := range []string{"case Alias:", "case Again:", "case Untyped:", "case _:"} {
		assert.NotContains(t, lines, absent)
	}
}

func TestGenerate_WarnsIgnoredAliasDirectives(t *testing.T) {
	plan := buildPlan(t, false, "testdata/variants")
	require.Empty(t, plan.Errors)
	require.Len(t, plan.Warnings, 1)

	msg := plan.Warnings[0].Error()
	assert.Contains(t, msg, "errors.go:19:7")
	assert.Contains(t, msg, "Again 与 Missing 的值相同")
	assert.Contains(t, msg, "@StatusCode(Conflict)")
	assert.NotContains(t, msg, "Alias")
}

func TestGenerate_Conflict(t *testing.T) {
	plan := buildPlan(t, false, "testdata/conflict")
	assert.Empty(t, plan.Files)

	diags := diagnosticsOf(plan.Errors)
	require.Len(t, diags, 1)
	d := diags[0]
	assert.Equal(t, ConflictingAnnotations, d.Kind)
	assert.Equal(t, "A", d.Subject)
	assert.Equal(t, "errors.go", filepath.Base(d.Pos.Filename))
	assert.Equal(t, 8, d.Pos.Line)
}

func TestGenerate_OnEnum(t *testing.T) {
	var reports []EnumReport
	registry := plugin.NewRegistry(NewGenerator().OnEnum(func(r EnumReport) { reports = append(reports, r) }))
	plan, err := plugin.BuildPlan(context.Background(), &plugin.RunOptions{
		Registry: registry,
		Patterns: []string{"testdata/basic", "testdata/conflict"},
	})
	require.NoError(t, err)
	require.Len(t, plan.Errors, 1)

	require.Len(t, reports, 2)
	ok, bad := reports[0], reports[1]

	assert.Equal(t, "E", ok.Name)
	assert.True(t, ok.OK())
	assert.Equal(t, 5, ok.Variants)
	assert.Equal(t, "errors_apierror.go", filepath.Base(ok.Output))
	assert.Equal(t, 7, ok.Pos.Line)

	assert.Equal(t, "F", bad.Name)
	assert.False(t, bad.OK())
	assert.Empty(t, bad.Output)
	require.Len(t, bad.Diagnostics, 1)
	assert.Equal(t, ConflictingAnnotations, bad.Diagnostics[0].Kind)
}

func TestGenerate_NotEnum(t *testing.T) {
	plan := buildPlan(t, false, "testdata/notenum")
	assert.Empty(t, plan.Files)

	diags := diagnosticsOf(plan.Errors)
	require.Len(t, diags, 3)
	for _, d := range diags {
		assert.Equal(t, UnsupportedDeclarationKind, d.Kind)
	}
	assert.ElementsMatch(t, []string{"S", "Ratio", "Build"},
		lo.Map(diags, func(d *Diagnostic, _ int) string { return d.Subject }))
}

func TestGenerate_ReportsAllInvalidVariants(t *testing.T) {
	plan := buildPlan(t, false, "testdata/multi")
	assert.Empty(t, plan.Files)

	diags := diagnosticsOf(plan.Errors)
	require.Len(t, diags, 3)
	assert.Equal(t, []string{"First", "Second", "Fourth"},
		lo.Map(diags, func(d *Diagnostic, _ int) string { return d.Subject }))
	assert.Equal(t, []Kind{ConflictingAnnotations, UnknownStatusCode, ConflictingAnnotations},
		lo.Map(diags, func(d *Diagnostic, _ int) Kind { return d.Kind }))
}

func TestGenerate_Malformed(t *testing.T) {
	plan := buildPlan(t, false, "testdata/malformed")
	assert.Empty(t, plan.Files)

	diags := diagnosticsOf(plan.Errors)
	require.Len(t, diags, 3)
	assert.Len(t, diags.OfKind(MalformedAnnotationPayload), 3)
	assert.Equal(t, []string{"Numeric", "Unquoted", "PassWithArg"},
		lo.Map(diags, func(d *Diagnostic, _ int) string { return d.Subject }))
}

func TestGenerate_UnsupportedFramework(t *testing.T) {
	plan := buildPlan(t, false, "testdata/badframework")
	assert.Empty(t, plan.Files)

	diags := diagnosticsOf(plan.Errors)
	require.Len(t, diags, 1)
	assert.Equal(t, UnsupportedFramework, diags[0].Kind)
	assert.Equal(t, "Chi", diags[0].Subject)
	assert.Contains(t, diags[0].Message, "echo|fiber|gin")
}

func TestGenerate_ErrorsBlockWholeRun(t *testing.T) {
	// 一个包出错时，其他包的输出也不写入
	dir := t.TempDir()
	for _, name := range []string{"basic", "conflict"} {
		src, err := os.ReadFile(filepath.Join("testdata", name, "errors.go"))
		require.NoError(t, err)
		require.NoError(t, os.MkdirAll(filepath.Join(dir, name), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, name, "errors.go"), src, 0644))
	}

	registry := plugin.NewRegistry()
	require.NoError(t, registry.Register(NewGenerator()))
	var reported []error
	_, err := plugin.RunWithOptionsAndStats(context.Background(), &plugin.RunOptions{
		Registry: registry,
		Patterns: []string{dir + "/..."},
		Report:   func(err error) { reported = append(reported, err) },
		Warn:     func(error) {},
	})

	var runErr *plugin.RunError
	require.ErrorAs(t, err, &runErr)
	assert.True(t, diagnosticsOf(reported).Has(ConflictingAnnotations))
	assert.NoFileExists(t, filepath.Join(dir, "basic", "errors_apierror.go"))
	assert.NoFileExists(t, filepath.Join(dir, "conflict", "errors_apierror.go"))
}

func TestGenerate_WritesAndChecks(t *testing.T) {
	dir := t.TempDir()
	src, err := os.ReadFile(filepath.Join("testdata", "basic", "errors.go"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "errors.go"), src, 0644))

	registry := plugin.NewRegistry()
	require.NoError(t, registry.Register(NewGenerator()))
	opts := &plugin.RunOptions{Registry: registry, Patterns: []string{dir}}

	drifts, err := plugin.Check(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.True(t, drifts[0].Missing)

	stats, err := plugin.RunWithOptionsAndStats(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FileCount)
	assert.FileExists(t, filepath.Join(dir, "errors_apierror.go"))

	// 生成的文件不会被当作输入，再次生成结果一致
	drifts, err = plugin.Check(context.Background(), opts)
	require.NoError(t, err)
	assert.Empty(t, drifts)
}

func TestGenerate_OutputParam(t *testing.T) {
	dir := t.TempDir()
	src := "package out\n\n// @ApiError(output=$PACKAGE_errors)\ntype E int\n\nconst A E = 1\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "e.go"), []byte(src), 0644))

	path, content := generated(t, buildPlan(t, false, dir))
	assert.Equal(t, filepath.Join(dir, "out_errors.go"), path)
	assert.Contains(t, codeLines(content), "case A:")
}

func TestGenerate_EmptyEnum(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "e.go"), []byte("package empty\n\n// @ApiError\ntype E string\n"), 0644))

	_, content := generated(t, buildPlan(t, false, dir))
	assert.NotContains(t, content, "switch")
	assert.Contains(t, codeLines(content), `return apierror.NewData(http.StatusInternalServerError, msg, "InternalServerError")`)
}

func TestGenerate_LocalNamesAvoidVariants(t *testing.T) {
	dir := t.TempDir()
	src := "package clash\n\n// @ApiError\ntype E int\n\nconst (\n\te E = iota\n\tmsg\n)\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "e.go"), []byte(src), 0644))

	_, content := generated(t, buildPlan(t, false, dir))
	lines := codeLines(content)
	assert.Contains(t, lines, "func (e1 E) ApiErrorData() apierror.Data {")
	assert.Contains(t, lines, "msg1 := fmt.Sprint(e1)")
	assert.Contains(t, lines, "case msg:")
}

func TestGenerator_Describe(t *testing.T) {
	registry := plugin.NewRegistry()
	require.NoError(t, registry.Register(NewGenerator()))
	help := plugin.FormatHelpText(registry)

	assert.Contains(t, help, "@ApiError - apierror")
	assert.Contains(t, help, "@StatusCode(NotFound)")
	assert.Contains(t, help, "framework [默认: gin]")
}
