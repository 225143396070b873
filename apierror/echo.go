package apierror

import "github.com/labstack/echo/v4"

// EchoResponder 由 framework=echo 生成的响应适配方法实现
type EchoResponder interface {
	Descriptor
	Respond(c echo.Context) error
}

// FromEcho 读取 Respond 挂在 echo 上下文中的 Data
func FromEcho(c echo.Context) (Data, bool) {
	d, ok := c.Get(ContextKey).(Data)
	return d, ok
}
