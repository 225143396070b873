package frameworks

// @ApiError(response=true)
type GinErr int

// @ApiError(response=true, framework=echo)
type EchoErr string

// @ApiError(framework=fiber, response=true)
type FiberErr uint8

// @ApiError(response=false, framework=echo)
type Quiet int

const (
	// @StatusCode(Unauthorized)
	GinDenied GinErr = 1
)

const (
	// @StatusCode(StatusTooManyRequests)
	EchoLimited EchoErr = "limited"
)

const (
	// @Custom(`raw label`)
	FiberBroken FiberErr = 7
)

const QuietOne Quiet = 1
