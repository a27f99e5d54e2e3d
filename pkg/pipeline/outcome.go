package pipeline

import "errors"

// Outcome is a named terminal result of an analysis that produced no verdict.
type Outcome struct {
	code string
	msg  string
}

func (o *Outcome) Error() string { return o.msg }

// Code is the stable identifier reported to API clients.
func (o *Outcome) Code() string { return o.code }

var (
	// ErrNoContent means the page could not be fetched or was blank.
	ErrNoContent = &Outcome{code: "no_content", msg: "no content could be extracted from the page"}
	// ErrCaptchaDetected means the page was a bot-check interstitial.
	ErrCaptchaDetected = &Outcome{code: "captcha_detected", msg: "page is behind a captcha"}
	// ErrNoChunks means the extracted text produced no chunks.
	ErrNoChunks = &Outcome{code: "no_chunks", msg: "page text produced no chunks"}
	// ErrNoFindings means every batch failed or returned nothing.
	ErrNoFindings = &Outcome{code: "no_findings", msg: "no findings were produced"}
)

// OutcomeCode returns the code of the Outcome in err's chain, or "" when err
// is not a terminal outcome.
func OutcomeCode(err error) string {
	var o *Outcome
	if errors.As(err, &o) {
		return o.code
	}
	return ""
}
