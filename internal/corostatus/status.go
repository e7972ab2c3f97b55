// Package corostatus is the status-code table collaborator: it maps an
// HTTP status code to its reason phrase and to the short/long strings the
// default error template renders. spec.md treats this table as an
// external dependency of the response framer.
package corostatus

import "fmt"

// Entry describes one HTTP status code.
type Entry struct {
	Reason      string // e.g. "OK", "Not Found"
	Description string // long-form description used in the error template
}

var table = map[int]Entry{
	200: {"OK", "Success!"},
	201: {"Created", "The request has been fulfilled and a new resource has been created."},
	204: {"No Content", "The request was fulfilled but there is no content to send."},
	206: {"Partial Content", "Partial content is being returned."},
	301: {"Moved Permanently", "The requested resource has moved permanently to a new location."},
	302: {"Found", "The requested resource was found at a different location."},
	304: {"Not Modified", "The requested resource has not been modified."},
	400: {"Bad Request", "The request could not be understood by the server due to malformed syntax."},
	401: {"Unauthorized", "The request requires authentication."},
	403: {"Forbidden", "Access to the requested resource is forbidden."},
	404: {"Not Found", "The requested resource could not be found but may be available in the future."},
	405: {"Method Not Allowed", "The method specified is not allowed for the requested resource."},
	408: {"Request Timeout", "The server timed out waiting for the request."},
	413: {"Request Entity Too Large", "The request is larger than the server is willing or able to process."},
	416: {"Range Not Satisfiable", "The requested range is not satisfiable."},
	429: {"Too Many Requests", "Too many requests have been sent in a given amount of time."},
	500: {"Internal Server Error", "The server encountered an unexpected condition."},
	501: {"Not Implemented", "The server does not support the functionality required to fulfill the request."},
	502: {"Bad Gateway", "The server received an invalid response from an upstream server."},
	503: {"Service Unavailable", "The server is currently unable to handle the request due to temporary overload or maintenance."},
}

// Lookup returns the Entry for a status code, falling back to a generic
// entry derived from the numeric code when it is unknown.
func Lookup(code int) Entry {
	if e, ok := table[code]; ok {
		return e
	}
	return Entry{
		Reason:      fmt.Sprintf("Status %d", code),
		Description: "No further details are available for this status.",
	}
}

// Reason returns the reason phrase for a status code.
func Reason(code int) string {
	return Lookup(code).Reason
}
