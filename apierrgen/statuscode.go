package apierrgen

import (
	"net/http"
	"strings"

	"github.com/donutnomad/apierrgen/internal/utils"
)

// StatusCode @StatusCode 标识符解析结果
type StatusCode struct {
	Name  string // 注解中书写的标识符
	Const string // net/http 常量名，如 StatusNotFound；未解析时为空
	Code  int    // 数值；未解析时为 0
}

// Resolved 是否解析到了 net/http 常量
func (s *StatusCode) Resolved() bool {
	return s != nil && s.Const != ""
}

type httpStatus struct {
	name string // 去掉 Status 前缀的 net/http 常量名
	code int
}

var httpStatuses = []httpStatus{
	{"Continue", http.StatusContinue},
	{"SwitchingProtocols", http.StatusSwitchingProtocols},
	{"Processing", http.StatusProcessing},
	{"EarlyHints", http.StatusEarlyHints},

	{"OK", http.StatusOK},
	{"Created", http.StatusCreated},
	{"Accepted", http.StatusAccepted},
	{"NonAuthoritativeInfo", http.StatusNonAuthoritativeInfo},
	{"NoContent", http.StatusNoContent},
	{"ResetContent", http.StatusResetContent},
	{"PartialContent", http.StatusPartialContent},
	{"MultiStatus", http.StatusMultiStatus},
	{"AlreadyReported", http.StatusAlreadyReported},
	{"IMUsed", http.StatusIMUsed},

	{"MultipleChoices", http.StatusMultipleChoices},
	{"MovedPermanently", http.StatusMovedPermanently},
	{"Found", http.StatusFound},
	{"SeeOther", http.StatusSeeOther},
	{"NotModified", http.StatusNotModified},
	{"UseProxy", http.StatusUseProxy},
	{"TemporaryRedirect", http.StatusTemporaryRedirect},
	{"PermanentRedirect", http.StatusPermanentRedirect},

	{"BadRequest", http.StatusBadRequest},
	{"Unauthorized", http.StatusUnauthorized},
	{"PaymentRequired", http.StatusPaymentRequired},
	{"Forbidden", http.StatusForbidden},
	{"NotFound", http.StatusNotFound},
	{"MethodNotAllowed", http.StatusMethodNotAllowed},
	{"NotAcceptable", http.StatusNotAcceptable},
	{"ProxyAuthRequired", http.StatusProxyAuthRequired},
	{"RequestTimeout", http.StatusRequestTimeout},
	{"Conflict", http.StatusConflict},
	{"Gone", http.StatusGone},
	{"LengthRequired", http.StatusLengthRequired},
	{"PreconditionFailed", http.StatusPreconditionFailed},
	{"RequestEntityTooLarge", http.StatusRequestEntityTooLarge},
	{"RequestURITooLong", http.StatusRequestURITooLong},
	{"UnsupportedMediaType", http.StatusUnsupportedMediaType},
	{"RequestedRangeNotSatisfiable", http.StatusRequestedRangeNotSatisfiable},
	{"ExpectationFailed", http.StatusExpectationFailed},
	{"Teapot", http.StatusTeapot},
	{"MisdirectedRequest", http.StatusMisdirectedRequest},
	{"UnprocessableEntity", http.StatusUnprocessableEntity},
	{"Locked", http.StatusLocked},
	{"FailedDependency", http.StatusFailedDependency},
	{"TooEarly", http.StatusTooEarly},
	{"UpgradeRequired", http.StatusUpgradeRequired},
	{"PreconditionRequired", http.StatusPreconditionRequired},
	{"TooManyRequests", http.StatusTooManyRequests},
	{"RequestHeaderFieldsTooLarge", http.StatusRequestHeaderFieldsTooLarge},
	{"UnavailableForLegalReasons", http.StatusUnavailableForLegalReasons},

	{"InternalServerError", http.StatusInternalServerError},
	{"NotImplemented", http.StatusNotImplemented},
	{"BadGateway", http.StatusBadGateway},
	{"ServiceUnavailable", http.StatusServiceUnavailable},
	{"GatewayTimeout", http.StatusGatewayTimeout},
	{"HTTPVersionNotSupported", http.StatusHTTPVersionNotSupported},
	{"VariantAlsoNegotiates", http.StatusVariantAlsoNegotiates},
	{"InsufficientStorage", http.StatusInsufficientStorage},
	{"LoopDetected", http.StatusLoopDetected},
	{"NotExtended", http.StatusNotExtended},
	{"NetworkAuthenticationRequired", http.StatusNetworkAuthenticationRequired},
}

// statusAliases 其他生态中常见的写法，如 PAYLOAD_TOO_LARGE
var statusAliases = map[string]string{
	"nonauthoritativeinformation": "NonAuthoritativeInfo",
	"proxyauthenticationrequired": "ProxyAuthRequired",
	"payloadtoolarge":             "RequestEntityTooLarge",
	"contenttoolarge":             "RequestEntityTooLarge",
	"uritoolong":                  "RequestURITooLong",
	"rangenotsatisfiable":         "RequestedRangeNotSatisfiable",
	"imateapot":                   "Teapot",
	"unprocessablecontent":        "UnprocessableEntity",
}

var statusIndex = func() map[string]httpStatus {
	m := make(map[string]httpStatus, len(httpStatuses)+len(statusAliases))
	for _, s := range httpStatuses {
		m[utils.FoldIdent(s.name)] = s
	}
	for alias, name := range statusAliases {
		m[alias] = m[utils.FoldIdent(name)]
	}
	return m
}()

// LookupStatus 将标识符解析为 net/http 状态码。
// 大小写与下划线不敏感，可带 Status 前缀：NotFound、StatusNotFound、NOT_FOUND 均为 404。
// 无法解析时 Resolved() 为 false。
func LookupStatus(ident string) *StatusCode {
	sc := &StatusCode{Name: ident}

	key := utils.FoldIdent(ident)
	s, ok := statusIndex[key]
	if !ok {
		s, ok = statusIndex[strings.TrimPrefix(key, "status")]
	}
	if ok {
		sc.Const = "Status" + s.name
		sc.Code = s.code
	}
	return sc
}
