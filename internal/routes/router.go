package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog/log"
	"philcali.me/notifications/internal/exceptions"
	"philcali.me/notifications/internal/routes/filters"
)

type Route func(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error)

type Service interface {
	GetRoutes() map[string]Route
}

type paramsKey struct{}

// RequestParam returns a decoded path parameter of the matched route.
func RequestParam(ctx context.Context, name string) string {
	if params, ok := ctx.Value(paramsKey{}).(map[string]string); ok {
		return params[name]
	}
	return ""
}

func WithParams(ctx context.Context, params map[string]string) context.Context {
	return context.WithValue(ctx, paramsKey{}, params)
}

type CachedMatcher struct {
	Matcher    *regexp.Regexp
	ParamNames []string
	Mutex      *sync.Mutex
}

type CachedRoute struct {
	Method  string
	Path    string
	Route   Route
	Matcher *CachedMatcher
}

var paramPattern = regexp.MustCompile(":[^/]+")

func (cm *CachedMatcher) Refresh(path string) *regexp.Regexp {
	cm.Mutex.Lock()
	defer cm.Mutex.Unlock()
	if cm.Matcher == nil {
		regexPath := paramPattern.ReplaceAllStringFunc(path, func(found string) string {
			cm.ParamNames = append(cm.ParamNames, found[1:])
			return "([^/]+)"
		})
		cm.Matcher = regexp.MustCompile("^" + regexPath + "$")
	}
	return cm.Matcher
}

// MatchEvent matches the raw (still escaped) path, then decodes each parameter once so
// a category like "home%2Fgarden" arrives as "home/garden".
func (cr *CachedRoute) MatchEvent(event events.APIGatewayV2HTTPRequest) (map[string]string, bool) {
	if event.RequestContext.HTTP.Method != cr.Method {
		return nil, false
	}
	values := cr.Matcher.Refresh(cr.Path).FindStringSubmatch(event.RawPath)
	if values == nil {
		return nil, false
	}
	params := make(map[string]string, len(cr.Matcher.ParamNames))
	for i, name := range cr.Matcher.ParamNames {
		decoded, err := url.PathUnescape(values[i+1])
		if err != nil {
			return nil, false
		}
		params[name] = decoded
	}
	return params, true
}

type Router struct {
	Filters []filters.RequestFilter
	Routes  []CachedRoute
}

func NewRouter(services ...Service) *Router {
	var routes []CachedRoute
	for _, service := range services {
		for composite, route := range service.GetRoutes() {
			parts := strings.SplitN(composite, ":", 2)
			routes = append(routes, CachedRoute{
				Method: parts[0],
				Path:   parts[1],
				Route:  route,
				Matcher: &CachedMatcher{
					Mutex: &sync.Mutex{},
				},
			})
		}
	}
	return &Router{
		Routes:  routes,
		Filters: []filters.RequestFilter{filters.DefaultCorsFilter()},
	}
}

func ErrorResponse(err error) events.APIGatewayV2HTTPResponse {
	statusCode := exceptions.StatusCode(err)
	body, _ := json.Marshal(map[string]string{"message": err.Error()})
	return events.APIGatewayV2HTTPResponse{
		StatusCode: statusCode,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type":   "application/json",
			"Content-Length": strconv.Itoa(len(body)),
		},
	}
}

// invoke reports a panicking route as a 500.
func (cr *CachedRoute) invoke(event events.APIGatewayV2HTTPRequest, ctx context.Context) (resp events.APIGatewayV2HTTPResponse, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			log.Error().Interface("panic", recovered).Str("method", cr.Method).Str("path", event.RawPath).Msg("Route panicked")
			resp, err = events.APIGatewayV2HTTPResponse{}, exceptions.InternalServer("Unexpected internal error")
		}
	}()
	return cr.Route(event, ctx)
}

func (r *Router) Invoke(event events.APIGatewayV2HTTPRequest, ctx context.Context) events.APIGatewayV2HTTPResponse {
	filterContext := filters.DefaultFilterContext(event, ctx)
	for _, filter := range r.Filters {
		updatedContext, broken := filter.Filter(filterContext)
		if broken {
			return *updatedContext.Response
		}
		filterContext = updatedContext
	}
	for _, route := range r.Routes {
		if params, ok := route.MatchEvent(*filterContext.Request); ok {
			resp, err := route.invoke(*filterContext.Request, WithParams(*filterContext.Context, params))
			if err != nil {
				resp = ErrorResponse(err)
				logger := log.Warn()
				if resp.StatusCode >= http.StatusInternalServerError {
					logger = log.Error()
				}
				logger.Err(err).
					Str("method", route.Method).
					Str("path", event.RawPath).
					Int("status", resp.StatusCode).
					Msg("Request failed")
			}
			return r.decorate(filterContext, resp)
		}
	}
	return r.decorate(filterContext, ErrorResponse(exceptions.NotFound("route", event.RawPath)))
}

// decorate copies headers that filters attached to the pending response, such as the
// CORS origin, onto the route response.
func (r *Router) decorate(filterContext *filters.FilterContext, resp events.APIGatewayV2HTTPResponse) events.APIGatewayV2HTTPResponse {
	if filterContext.Response == nil || len(filterContext.Response.Headers) == 0 {
		return resp
	}
	if resp.Headers == nil {
		resp.Headers = make(map[string]string, len(filterContext.Response.Headers))
	}
	for name, value := range filterContext.Response.Headers {
		if _, ok := resp.Headers[name]; !ok {
			resp.Headers[name] = value
		}
	}
	return resp
}
