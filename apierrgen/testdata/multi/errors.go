package multi

// @ApiError
type M int

const (
	// @Pass
	// @StatusCode(Conflict)
	First M = iota
	// @StatusCode(NoSuchStatus)
	Second
	Third // @status_code(BadRequest)
	// @custom("label") @pass
	Fourth
)
