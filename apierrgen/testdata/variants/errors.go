package variants

// @ApiError
type Code uint16

const (
	_ Code = iota
	// @StatusCode(BadRequest)
	Invalid
	Missing // @StatusCode(NotFound)
	// @Custom("gone")
	Expired
)

// Alias 与 Missing 值相同
const Alias = Missing

// @StatusCode(Conflict)
const Again = Code(2)

const (
	// @StatusCode(Forbidden)
	Denied  = Code(10)
	Untyped = 11
)

// @StatusCode(Teapot)
const Teapot Code = 418

// @ApiError
type Kind string

const (
	KindA Kind = "a"
	// @StatusCode(GATEWAY_TIMEOUT)
	KindB Kind = "b"
)
