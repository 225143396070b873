package apierror

import "github.com/gofiber/fiber/v2"

// FiberResponder 由 framework=fiber 生成的响应适配方法实现
type FiberResponder interface {
	Descriptor
	Respond(c *fiber.Ctx) error
}

// FromFiber 读取 Respond 挂在 fiber Locals 中的 Data
func FromFiber(c *fiber.Ctx) (Data, bool) {
	d, ok := c.Locals(ContextKey).(Data)
	return d, ok
}
