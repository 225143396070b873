package basic

import "fmt"

// E 业务错误
// @ApiError
type E int

const (
	A E = iota
	// @StatusCode(NotFound)
	B
	// @Custom("oops")
	C
	// @StatusCode(NOT_FOUND) @Custom("oops")
	D
	P // @Pass
)

func (e E) String() string {
	return fmt.Sprintf("E(%d)", int(e))
}
