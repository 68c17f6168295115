package runner

// retryController bounds the sequential topology's accept/reject loop. The
// attempt counter starts at 1 and is incremented on each validator reject;
// once it would exceed the ceiling the controller signals exhaustion and
// never allows another restart.
type retryController struct {
	attempt int
	max     int
}

func newRetryController(max int) *retryController {
	return &retryController{attempt: 1, max: max}
}

// Reject records a validator rejection and reports whether another pipeline
// attempt is allowed.
func (c *retryController) Reject() bool {
	c.attempt++
	return c.attempt <= c.max
}

// Attempt returns the current attempt number, starting at 1.
func (c *retryController) Attempt() int { return c.attempt }
