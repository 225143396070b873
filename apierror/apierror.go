// Package apierror 是 apierrgen 生成代码依赖的运行时包。
//
// 生成的 ApiErrorData 方法把枚举值转换为 Data；开启响应适配时，
// 生成的 Respond 方法把 Data 以 ContextKey 挂到请求上下文，
// 并且总是以 500 作为传输层状态码结束请求。真正的状态码、
// 文案与标签由下游中间件通过 FromGin / FromEcho / FromFiber 读取后自行渲染。
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// ContextKey 响应适配方法在请求上下文中存放 Data 使用的键
const ContextKey = "apierror.data"

// Data 由枚举值推导出的 API 错误描述
type Data struct {
	StatusCode     int    `json:"status_code"`
	DisplayMessage string `json:"display_message"`
	Label          string `json:"label"`
}

// NewData 创建 Data
func NewData(statusCode int, displayMessage, label string) Data {
	return Data{
		StatusCode:     statusCode,
		DisplayMessage: displayMessage,
		Label:          label,
	}
}

// IsZero 是否为零值
func (d Data) IsZero() bool {
	return d == Data{}
}

// StatusText 返回状态码对应的标准描述
func (d Data) StatusText() string {
	return http.StatusText(d.StatusCode)
}

func (d Data) String() string {
	return fmt.Sprintf("%d %s: %s", d.StatusCode, d.Label, d.DisplayMessage)
}

// Descriptor 由生成的 ApiErrorData 方法实现
type Descriptor interface {
	ApiErrorData() Data
}

// From 沿错误链查找第一个实现了 Descriptor 的错误并返回其 Data。
// 枚举类型需要自己实现 error 才能出现在错误链中。
func From(err error) (Data, bool) {
	var d Descriptor
	if !errors.As(err, &d) {
		return Data{}, false
	}
	return d.ApiErrorData(), true
}
