package notenum

// @ApiError
type S struct {
	Code int
}

// @ApiError
type Ratio float64

// @ApiError
func Build() {}
