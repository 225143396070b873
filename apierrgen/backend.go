package apierrgen

import (
	"fmt"
	"slices"
	"strings"

	"github.com/donutnomad/gg"
	"github.com/samber/lo"
)

// ResponseBackend 为某个 Web 框架生成响应适配方法。
// 无论推导出的状态码是多少，适配方法总是以 500 作为传输层状态码，
// 并把 apierror.Data 放到 apierror.ContextKey 下由下游读取。
type ResponseBackend interface {
	Name() string
	// ModulePath 框架所在模块，用于检查 go.mod
	ModulePath() string
	// Responder 生成代码中用于编译期断言的接口
	Responder() string
	Emit(gen *gg.Generator, typeName, recv string)
}

type ginBackend struct{}

func (ginBackend) Name() string       { return "gin" }
func (ginBackend) ModulePath() string { return "github.com/gin-gonic/gin" }
func (ginBackend) Responder() string  { return "apierror.GinResponder" }

func (ginBackend) Emit(gen *gg.Generator, typeName, recv string) {
	gen.P("github.com/gin-gonic/gin")
	group := gen.Body()
	group.Append(gg.LineComment("Respond stores the descriptor of %s under apierror.ContextKey and aborts with status 500.", typeName))
	group.Append(gg.Function("Respond").
		WithReceiver(recv, typeName).
		AddParameter("c", "*gin.Context").
		AddBody(
			gg.S("c.Set(apierror.ContextKey, %s.ApiErrorData())", recv),
			gg.S("c.Status(http.StatusInternalServerError)"),
			gg.S("c.Abort()"),
		))
}

type echoBackend struct{}

func (echoBackend) Name() string       { return "echo" }
func (echoBackend) ModulePath() string { return "github.com/labstack/echo/v4" }
func (echoBackend) Responder() string  { return "apierror.EchoResponder" }

func (echoBackend) Emit(gen *gg.Generator, typeName, recv string) {
	gen.PAlias("github.com/labstack/echo/v4", "echo")
	group := gen.Body()
	group.Append(gg.LineComment("Respond stores the descriptor of %s under apierror.ContextKey and responds with status 500.", typeName))
	group.Append(gg.Function("Respond").
		WithReceiver(recv, typeName).
		AddParameter("c", "echo.Context").
		AddResult("", "error").
		AddBody(
			gg.S("c.Set(apierror.ContextKey, %s.ApiErrorData())", recv),
			gg.S("return c.NoContent(http.StatusInternalServerError)"),
		))
}

type fiberBackend struct{}

func (fiberBackend) Name() string       { return "fiber" }
func (fiberBackend) ModulePath() string { return "github.com/gofiber/fiber/v2" }
func (fiberBackend) Responder() string  { return "apierror.FiberResponder" }

func (fiberBackend) Emit(gen *gg.Generator, typeName, recv string) {
	gen.PAlias("github.com/gofiber/fiber/v2", "fiber")
	group := gen.Body()
	group.Append(gg.LineComment("Respond stores the descriptor of %s in the fiber locals under apierror.ContextKey and responds with status 500.", typeName))
	group.Append(gg.Function("Respond").
		WithReceiver(recv, typeName).
		AddParameter("c", "*fiber.Ctx").
		AddResult("", "error").
		AddBody(
			gg.S("c.Locals(apierror.ContextKey, %s.ApiErrorData())", recv),
			gg.S("return c.SendStatus(http.StatusInternalServerError)"),
		))
}

var backends = lo.KeyBy([]ResponseBackend{ginBackend{}, echoBackend{}, fiberBackend{}},
	func(b ResponseBackend) string { return b.Name() })

// DefaultFramework 未指定 framework 时使用的框架
const DefaultFramework = "gin"

// LookupBackend 按名称查找框架，大小写不敏感
func LookupBackend(name string) (ResponseBackend, error) {
	b, ok := backends[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("不支持的框架 %q，可选值: %s", name, strings.Join(BackendNames(), "|"))
	}
	return b, nil
}

// BackendNames 所有已知框架名，按字母排序
func BackendNames() []string {
	names := lo.Keys(backends)
	slices.Sort(names)
	return names
}
