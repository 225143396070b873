package conflict

// @ApiError
type F int

const (
	// @Pass @Custom("x")
	A F = iota
)
