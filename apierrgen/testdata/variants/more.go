package variants

const (
	// @Pass
	Late Code = 100
)
