package malformed

// @ApiError
type Bad int

const (
	// @StatusCode(404)
	Numeric Bad = iota
	// @Custom(oops)
	Unquoted
	// @Pass(true)
	PassWithArg
	// @StatusCode(NotFound) @StatusCode(Conflict)
	Fine
)
