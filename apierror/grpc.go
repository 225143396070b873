package apierror

import (
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// httpToGRPC HTTP 状态码到 gRPC 状态码的映射
var httpToGRPC = map[int]codes.Code{
	http.StatusOK:                    codes.OK,
	http.StatusBadRequest:            codes.InvalidArgument,
	http.StatusUnauthorized:          codes.Unauthenticated,
	http.StatusForbidden:             codes.PermissionDenied,
	http.StatusNotFound:              codes.NotFound,
	http.StatusGone:                  codes.NotFound, // gRPC 没有 410
	http.StatusRequestTimeout:        codes.DeadlineExceeded,
	http.StatusConflict:              codes.Aborted,
	http.StatusPreconditionFailed:    codes.FailedPrecondition,
	http.StatusTooEarly:              codes.FailedPrecondition,
	http.StatusTooManyRequests:       codes.ResourceExhausted,
	499:                              codes.Canceled, // nginx client closed request
	http.StatusInternalServerError:   codes.Internal,
	http.StatusNotImplemented:        codes.Unimplemented,
	http.StatusBadGateway:            codes.Unavailable,
	http.StatusServiceUnavailable:    codes.Unavailable,
	http.StatusGatewayTimeout:        codes.DeadlineExceeded,
	http.StatusRequestEntityTooLarge: codes.ResourceExhausted,
}

// GRPCCode 将 StatusCode 映射为 gRPC 状态码
// 未列出的 4xx 映射为 FailedPrecondition，其余映射为 Unknown
func (d Data) GRPCCode() codes.Code {
	if c, ok := httpToGRPC[d.StatusCode]; ok {
		return c
	}
	if d.StatusCode >= 400 && d.StatusCode < 500 {
		return codes.FailedPrecondition
	}
	return codes.Unknown
}

// GRPCStatus 返回以 DisplayMessage 为消息的 gRPC 状态
func (d Data) GRPCStatus() *status.Status {
	return status.New(d.GRPCCode(), d.DisplayMessage)
}
