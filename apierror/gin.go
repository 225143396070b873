package apierror

import "github.com/gin-gonic/gin"

// GinResponder 由 framework=gin 生成的响应适配方法实现
type GinResponder interface {
	Descriptor
	Respond(c *gin.Context)
}

// FromGin 读取 Respond 挂在 gin 上下文中的 Data
func FromGin(c *gin.Context) (Data, bool) {
	v, ok := c.Get(ContextKey)
	if !ok {
		return Data{}, false
	}
	d, ok := v.(Data)
	return d, ok
}

// GinRenderer 返回一个中间件，在后续处理结束后如果上下文中存在 Data 则交给 render 输出
func GinRenderer(render func(c *gin.Context, d Data)) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if d, ok := FromGin(c); ok {
			render(c, d)
		}
	}
}
