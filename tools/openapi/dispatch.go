package openapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/getkin/kin-openapi/openapi3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/BaSui01/plugstore/types"
)

var pathPlaceholder = regexp.MustCompile(`\{[^}/]+\}`)

// invocation is the dispatcher for one operation of one plugin.
type invocation struct {
	gen      *Generator
	pluginID string
	op       Operation
	target   target
	cred     Credential
	// wrapBody sends the bodyArgument value as the request body.
	wrapBody bool
}

// methodCarriesBody reports whether requests with method get a JSON body.
func methodCarriesBody(method string) bool {
	return method != http.MethodGet && method != http.MethodHead
}

func (inv *invocation) call(ctx context.Context, args map[string]any) (*types.ToolResponse, error) {
	start := time.Now()
	ctx, span := inv.gen.tracer.Start(ctx, "plugin.invoke",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("plugin.id", inv.pluginID),
			attribute.String("plugin.operation", inv.op.Name),
			semconv.HTTPRequestMethodKey.String(inv.op.Method),
		),
	)
	defer span.End()

	resp, status, err := inv.do(ctx, args)
	if status != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	inv.gen.observer.RecordInvocation(inv.pluginID, inv.op.Name, status, time.Since(start), err)
	return resp, err
}

func (inv *invocation) do(ctx context.Context, args map[string]any) (*types.ToolResponse, int, error) {
	req, err := inv.buildRequest(ctx, args)
	if err != nil {
		return nil, 0, err
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	if id, ok := types.RequestID(ctx); ok && req.Header.Get(types.HeaderRequestID) == "" {
		req.Header.Set(types.HeaderRequestID, id)
	}

	resp, err := inv.gen.httpClient.Do(req)
	if err != nil {
		code := types.ErrUpstreamError
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			code = types.ErrUpstreamTimeout
		}
		return nil, 0, inv.errorf(code, "plugin request failed").WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, inv.gen.cfg.MaxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, inv.errorf(types.ErrUpstreamError, "failed to read plugin response").
			WithCause(err).WithRetryable(true)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, resp.StatusCode, inv.errorf(types.ErrUpstreamError,
			fmt.Sprintf("plugin returned HTTP %d: %s", resp.StatusCode, snippet(body))).
			WithHTTPStatus(resp.StatusCode).
			WithRetryable(retryable)
	}

	out := &types.ToolResponse{
		StatusCode: resp.StatusCode,
		Headers:    make(map[string]string, len(resp.Header)),
		Data:       responseData(body),
	}
	for k := range resp.Header {
		out.Headers[k] = resp.Header.Get(k)
	}
	return out, resp.StatusCode, nil
}

func (inv *invocation) errorf(code types.ErrorCode, msg string) *types.Error {
	return types.NewError(code, msg).WithPlugin(inv.pluginID).WithOperation(inv.op.Name)
}

// buildRequest routes declared parameters to their locations, injects the
// credential and encodes leftover arguments as the JSON body. GET and HEAD
// requests carry no body, so a body credential is not sent for them.
func (inv *invocation) buildRequest(ctx context.Context, args map[string]any) (*http.Request, error) {
	body := make(map[string]any, len(args))
	for k, v := range args {
		body[k] = v
	}

	path := inv.op.Path
	query := url.Values{}
	header := http.Header{}
	var cookies []*http.Cookie
	for _, p := range inv.op.Parameters {
		v, ok := body[p.Name]
		if !ok {
			continue
		}
		delete(body, p.Name)
		switch p.In {
		case openapi3.ParameterInPath:
			path = strings.ReplaceAll(path, "{"+p.Name+"}", url.PathEscape(formatValue(v)))
		case openapi3.ParameterInQuery:
			addQuery(query, p.Name, v)
		case openapi3.ParameterInHeader:
			header.Set(p.Name, formatValue(v))
		case openapi3.ParameterInCookie:
			cookies = append(cookies, &http.Cookie{Name: p.Name, Value: formatValue(v)})
		}
	}
	if missing := pathPlaceholder.FindString(path); missing != "" {
		return nil, inv.errorf(types.ErrInvalidArguments,
			fmt.Sprintf("missing path parameter %s", strings.Trim(missing, "{}")))
	}

	if !inv.cred.IsZero() {
		switch inv.cred.Location {
		case types.AuthLocationQuery:
			query.Set(inv.cred.Name, inv.cred.Value)
		case types.AuthLocationBody:
			if !inv.wrapBody {
				body[inv.cred.Name] = inv.cred.Value
			}
		}
	}

	endpoint, err := joinURL(inv.target.baseURL, path, query)
	if err != nil {
		return nil, inv.errorf(types.ErrInvalidDocument, "plugin has no usable server URL").WithCause(err)
	}

	var payload any
	switch {
	case inv.wrapBody:
		payload = body[bodyArgument]
	case len(body) > 0:
		payload = body
	}

	var reader io.Reader
	if payload != nil && methodCarriesBody(inv.op.Method) {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, inv.errorf(types.ErrInvalidArguments, "arguments are not JSON serializable").WithCause(err)
		}
		reader = bytes.NewReader(data)
		header.Set("Content-Type", "application/json")
	}

	req, err := http.NewRequestWithContext(ctx, inv.op.Method, endpoint, reader)
	if err != nil {
		return nil, inv.errorf(types.ErrInvalidArguments, "failed to build plugin request").WithCause(err)
	}
	for k, vs := range header {
		req.Header[k] = vs
	}
	req.Header.Set("Accept", "application/json")
	if !inv.cred.IsZero() && inv.cred.Location == types.AuthLocationHeader {
		req.Header.Set(inv.cred.Name, inv.cred.Value)
	}
	if inv.target.proxied {
		req.Header.Set(HeaderBaseURL, inv.target.serverURL)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req, nil
}

func joinURL(base, path string, query url.Values) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/") + path)
	if err != nil {
		return "", err
	}
	if !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("base URL %q is not absolute", base)
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func addQuery(q url.Values, name string, v any) {
	if list, ok := v.([]any); ok {
		for _, item := range list {
			q.Add(name, formatValue(item))
		}
		return
	}
	q.Add(name, formatValue(v))
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case fmt.Stringer:
		return t.String()
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// responseData returns body unchanged when it is JSON, otherwise as a JSON string.
func responseData(body []byte) json.RawMessage {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	data, _ := json.Marshal(string(body))
	return data
}

func snippet(body []byte) string {
	const limit = 256
	s := strings.TrimSpace(string(body))
	if len(s) <= limit {
		return s
	}
	s = s[:limit]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s + "..."
}
