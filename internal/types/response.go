package types

import (
	"bytes"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// StatusTransportFailure is the sentinel status code for a response that
// never reached the server (DNS, connect, TLS, or timeout failure).
const StatusTransportFailure = -1

// Response is the result of fetching a Request.
type Response struct {
	// Request echoes the request this response answers.
	Request *Request

	// StatusCode is the HTTP status, or StatusTransportFailure on transport error.
	StatusCode int

	// Headers are the ordered response headers.
	Headers http.Header

	// Content is the raw response body.
	Content []byte

	// NumRedirects is how many redirects were followed to reach this response.
	NumRedirects int

	// IsTimeout reports whether the fetch failed due to the per-request deadline.
	IsTimeout bool

	// ElapsedMS is the wall-clock duration of the fetch, in milliseconds.
	ElapsedMS int64

	// RequestDiscriminator mirrors Request.Kind, kept alongside the response
	// record so downstream consumers don't need to dereference Request.
	RequestDiscriminator Kind

	// FetchedAt is when this response was received.
	FetchedAt time.Time

	doc *goquery.Document
}

// NewResponse builds a Response, deriving RequestDiscriminator from the request.
func NewResponse(req *Request, statusCode int, headers http.Header, content []byte, numRedirects int, isTimeout bool, elapsed time.Duration) *Response {
	return &Response{
		Request:              req,
		StatusCode:           statusCode,
		Headers:              headers,
		Content:              content,
		NumRedirects:         numRedirects,
		IsTimeout:            isTimeout,
		ElapsedMS:            elapsed.Milliseconds(),
		RequestDiscriminator: req.Kind,
		FetchedAt:            time.Now(),
	}
}

// IsSuccess reports whether the response status is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsTransportFailure reports whether the fetch never reached the server.
func (r *Response) IsTransportFailure() bool {
	return r.StatusCode == StatusTransportFailure
}

// Document lazily parses Content as HTML via goquery, caching the result.
func (r *Response) Document() (*goquery.Document, error) {
	if r.doc != nil {
		return r.doc, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Content))
	if err != nil {
		return nil, err
	}
	r.doc = doc
	return doc, nil
}
