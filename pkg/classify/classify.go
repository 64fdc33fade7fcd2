// Package classify turns raw generation API results into retry decisions.
// The decision table is deliberately a pure function over a tagged variant:
// credential-related and transient failures rotate to the next session,
// request-level rejections abandon the prompt immediately.
package classify

import (
	"encoding/json"
	"fmt"
)

// Class is the retry decision for one API attempt.
type Class int

// Classification constants.
const (
	// Success means the attempt produced at least one image.
	Success Class = iota
	// SwitchSession means the failure is credential-related or transient;
	// retry the prompt with the next credential.
	SwitchSession
	// Abort means the failure is intrinsic to the request; do not retry.
	Abort
)

// String returns the classification name for log output.
func (c Class) String() string {
	switch c {
	case Success:
		return "success"
	case SwitchSession:
		return "switch_session"
	case Abort:
		return "abort"
	default:
		return "unknown"
	}
}

// Image is one generated image reference returned by the API.
type Image struct {
	URL string `json:"url"`
}

// apiBody is the wire shape of a generation response. The service reports
// application-level failure through code/message regardless of HTTP status.
type apiBody struct {
	Code    *int    `json:"code,omitempty"`
	Message string  `json:"message,omitempty"`
	Data    []Image `json:"data,omitempty"`
}

// Outcome is the classified result of exactly one API attempt.
type Outcome struct {
	Class  Class
	Images []Image // populated only on Success, order preserved
	Detail string  // human-readable reason for log output
}

// sessionInvalidCodes are application codes that indicate the current
// credential is exhausted, revoked, or otherwise unusable. They rotate to
// the next session rather than aborting the prompt.
var sessionInvalidCodes = map[int]bool{
	1000: true, // invalid session token
	1001: true, // session expired
	1002: true, // generation quota exhausted
	1015: true, // account temporarily restricted
	5000: true, // server busy, retryable
}

// codeMessages maps known application codes to log text. Codes absent from
// this table still classify correctly by the sign/membership rules; only
// the message falls back to a generic form.
var codeMessages = map[int]string{
	1000: "invalid session token",
	1001: "session expired",
	1002: "generation quota exhausted",
	1015: "account temporarily restricted",
	2001: "prompt rejected by content filter",
	2002: "invalid request parameters",
	5000: "server busy",
}

// CodeMessage returns the human-readable message for an application code,
// or a generic form for codes not in the table.
func CodeMessage(code int) string {
	if msg, ok := codeMessages[code]; ok {
		return msg
	}
	return fmt.Sprintf("error code %d", code)
}

// Classify maps one raw API result to an Outcome.
//
//   - Success: the HTTP call succeeded, the body parsed, a non-empty data
//     collection is present, and no error code is set (absent or zero).
//   - SwitchSession: transport/HTTP failure, unparseable body, negative
//     code, a code in the session-invalidating set, or present-but-empty
//     data.
//   - Abort: any other non-zero code, a request-level rejection unrelated
//     to credential validity.
func Classify(httpErr error, statusCode int, body []byte) Outcome {
	if httpErr != nil {
		return Outcome{Class: SwitchSession, Detail: fmt.Sprintf("transport error: %v", httpErr)}
	}
	if statusCode < 200 || statusCode >= 300 {
		return Outcome{Class: SwitchSession, Detail: fmt.Sprintf("http status %d", statusCode)}
	}

	var parsed apiBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Outcome{Class: SwitchSession, Detail: fmt.Sprintf("unparseable response: %v", err)}
	}

	if parsed.Code != nil && *parsed.Code != 0 {
		code := *parsed.Code
		detail := CodeMessage(code)
		if parsed.Message != "" {
			detail = fmt.Sprintf("%s: %s", detail, parsed.Message)
		}
		if code < 0 || sessionInvalidCodes[code] {
			return Outcome{Class: SwitchSession, Detail: detail}
		}
		return Outcome{Class: Abort, Detail: detail}
	}

	if len(parsed.Data) == 0 {
		return Outcome{Class: SwitchSession, Detail: "response contained no images"}
	}

	return Outcome{Class: Success, Images: parsed.Data}
}
