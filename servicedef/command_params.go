package servicedef

const (
	CommandRunTests       = "runTests"
	CommandGetTestResults = "getTestResults"
)

type CommandParams struct {
	Command string `json:"command"`
}

// RunTestsResponse is the response to CommandRunTests. Zero means every test passed; any other
// value means at least one did not.
type RunTestsResponse struct {
	Status int `json:"status"`
}
