package badframework

// @ApiError(response=true, framework=chi)
type Chi int

const First Chi = 0
