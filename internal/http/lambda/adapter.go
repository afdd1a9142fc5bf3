// Package lambda serves a Fiber app from API Gateway proxy events.
package lambda

import (
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

type contextKey struct{}

// Adapter converts proxy events into fasthttp requests for app.
type Adapter struct {
	handler fasthttp.RequestHandler
}

// NewAdapter wraps app. Register ContextMiddleware on app first so handlers see
// the invocation context.
func NewAdapter(app *fiber.App) *Adapter {
	return &Adapter{handler: app.Handler()}
}

// ContextMiddleware exposes the Lambda invocation context through c.UserContext().
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if ctx, ok := c.Context().UserValue(contextKey{}).(context.Context); ok {
			c.SetUserContext(ctx)
		}
		return c.Next()
	}
}

// Handle is the Lambda entry point.
func (a *Adapter) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	req, err := toRequest(event)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	defer fasthttp.ReleaseRequest(req)

	var fctx fasthttp.RequestCtx
	fctx.Init(req, remoteAddr(event), nil)
	fctx.SetUserValue(contextKey{}, ctx)

	a.handler(&fctx)

	return toResponse(&fctx.Response), nil
}

func toRequest(event events.APIGatewayProxyRequest) (*fasthttp.Request, error) {
	req := fasthttp.AcquireRequest()
	req.Header.SetMethod(event.HTTPMethod)

	uri := (&url.URL{Path: event.Path}).EscapedPath()
	if q := query(event); q != "" {
		uri += "?" + q
	}
	req.SetRequestURI(uri)

	if len(event.MultiValueHeaders) > 0 {
		for name, values := range event.MultiValueHeaders {
			for _, v := range values {
				req.Header.Add(name, v)
			}
		}
	} else {
		for name, v := range event.Headers {
			req.Header.Set(name, v)
		}
	}
	if len(req.Header.Host()) == 0 {
		req.Header.SetHost("lambda")
	}

	if event.Body != "" {
		body := []byte(event.Body)
		if event.IsBase64Encoded {
			decoded, err := base64.StdEncoding.DecodeString(event.Body)
			if err != nil {
				fasthttp.ReleaseRequest(req)
				return nil, fmt.Errorf("lambda: decode body: %w", err)
			}
			body = decoded
		}
		req.SetBody(body)
	}

	return req, nil
}

func query(event events.APIGatewayProxyRequest) string {
	values := url.Values{}
	if len(event.MultiValueQueryStringParameters) > 0 {
		for k, vs := range event.MultiValueQueryStringParameters {
			for _, v := range vs {
				values.Add(k, v)
			}
		}
	} else {
		for k, v := range event.QueryStringParameters {
			values.Set(k, v)
		}
	}
	return values.Encode()
}

func remoteAddr(event events.APIGatewayProxyRequest) net.Addr {
	ip := net.ParseIP(event.RequestContext.Identity.SourceIP)
	if ip == nil {
		ip = net.IPv4zero
	}
	return &net.TCPAddr{IP: ip}
}

func toResponse(resp *fasthttp.Response) events.APIGatewayProxyResponse {
	out := events.APIGatewayProxyResponse{
		StatusCode:        resp.StatusCode(),
		Headers:           make(map[string]string),
		MultiValueHeaders: make(map[string][]string),
	}

	resp.Header.VisitAll(func(key, value []byte) {
		k, v := string(key), string(value)
		out.MultiValueHeaders[k] = append(out.MultiValueHeaders[k], v)
		if existing, ok := out.Headers[k]; ok {
			out.Headers[k] = strings.Join([]string{existing, v}, ",")
		} else {
			out.Headers[k] = v
		}
	})

	body := resp.Body()
	if utf8.Valid(body) {
		out.Body = string(body)
	} else {
		out.Body = base64.StdEncoding.EncodeToString(body)
		out.IsBase64Encoded = true
	}
	return out
}
