package filters

import (
	"context"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

type FilterContext struct {
	Request  *events.APIGatewayV2HTTPRequest
	Response *events.APIGatewayV2HTTPResponse
	Context  *context.Context
}

// RequestFilter either lets the request continue with a possibly updated context, or
// breaks the chain and answers with the context response.
type RequestFilter interface {
	Filter(ctx *FilterContext) (*FilterContext, bool)
}

type CorsFilter struct {
	Methods []string
	Origins []string
	Headers []string
}

func (cf *CorsFilter) Filter(ctx *FilterContext) (*FilterContext, bool) {
	headers := make(map[string]string, len(ctx.Response.Headers)+4)
	for name, value := range ctx.Response.Headers {
		headers[name] = value
	}
	headers["access-control-allow-origin"] = strings.Join(cf.Origins, ", ")
	if ctx.Request.RequestContext.HTTP.Method == http.MethodOptions {
		headers["content-length"] = "0"
		headers["access-control-allow-headers"] = strings.Join(cf.Headers, ", ")
		headers["access-control-allow-methods"] = strings.Join(cf.Methods, ", ")
		return &FilterContext{
			Request: ctx.Request,
			Context: ctx.Context,
			Response: &events.APIGatewayV2HTTPResponse{
				Headers:    headers,
				StatusCode: http.StatusNoContent,
			},
		}, true
	}
	return &FilterContext{
		Request: ctx.Request,
		Context: ctx.Context,
		Response: &events.APIGatewayV2HTTPResponse{
			Headers:    headers,
			StatusCode: ctx.Response.StatusCode,
		},
	}, false
}

func DefaultFilterContext(event events.APIGatewayV2HTTPRequest, ctx context.Context) *FilterContext {
	return &FilterContext{
		Request: &event,
		Response: &events.APIGatewayV2HTTPResponse{
			StatusCode: http.StatusOK,
		},
		Context: &ctx,
	}
}

func NewCorsFilter(origins ...string) *CorsFilter {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &CorsFilter{
		Methods: []string{http.MethodGet, http.MethodPost},
		Headers: []string{"Content-Type", "Content-Length", "Authorization"},
		Origins: origins,
	}
}

func DefaultCorsFilter() *CorsFilter {
	return NewCorsFilter("*")
}
