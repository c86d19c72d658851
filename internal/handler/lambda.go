package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// LambdaAdapter serves an http.Handler behind an AWS Lambda function URL.
type LambdaAdapter struct {
	handler http.Handler
}

// NewLambdaAdapter creates a LambdaAdapter for h.
func NewLambdaAdapter(h http.Handler) *LambdaAdapter {
	return &LambdaAdapter{handler: h}
}

// Handle converts the function URL event into an *http.Request, runs the
// handler and converts the recorded response back.
func (a *LambdaAdapter) Handle(ctx context.Context, event events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			rw := newLambdaResponseWriter()
			WriteError(rw, http.StatusBadRequest, titleInvalidPayload, "body is not valid base64")
			return rw.response(), nil
		}
		body = decoded
	}

	path := event.RawPath
	if path == "" {
		path = "/"
	}
	u, err := url.Parse(path)
	if err != nil {
		rw := newLambdaResponseWriter()
		WriteError(rw, http.StatusBadRequest, "Bad Request", "invalid request path")
		return rw.response(), nil
	}
	u.Scheme = "https"
	u.Host = event.RequestContext.DomainName
	if u.Host == "" {
		u.Host = "localhost"
	}
	u.RawQuery = event.RawQueryString

	method := event.RequestContext.HTTP.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(body))
	if err != nil {
		return events.LambdaFunctionURLResponse{}, err
	}
	for k, v := range event.Headers {
		req.Header.Set(k, v)
	}
	for _, c := range event.Cookies {
		req.Header.Add("Cookie", c)
	}
	req.RemoteAddr = event.RequestContext.HTTP.SourceIP

	rw := newLambdaResponseWriter()
	a.handler.ServeHTTP(rw, req)
	return rw.response(), nil
}

// lambdaResponseWriter buffers a response for the function URL result.
type lambdaResponseWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newLambdaResponseWriter() *lambdaResponseWriter {
	return &lambdaResponseWriter{header: http.Header{}}
}

func (w *lambdaResponseWriter) Header() http.Header {
	return w.header
}

func (w *lambdaResponseWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.body.Write(b)
}

func (w *lambdaResponseWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
}

func (w *lambdaResponseWriter) response() events.LambdaFunctionURLResponse {
	status := w.status
	if status == 0 {
		status = http.StatusOK
	}
	headers := make(map[string]string, len(w.header))
	var cookies []string
	for k, v := range w.header {
		if http.CanonicalHeaderKey(k) == "Set-Cookie" {
			cookies = append(cookies, v...)
			continue
		}
		headers[k] = strings.Join(v, ",")
	}
	return events.LambdaFunctionURLResponse{
		StatusCode: status,
		Headers:    headers,
		Body:       w.body.String(),
		Cookies:    cookies,
	}
}
