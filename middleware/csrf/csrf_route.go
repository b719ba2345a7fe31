package csrf

import "github.com/goliatone/go-router"

// RouteConfig controls how the CSRF token bootstrap endpoint behaves.
type RouteConfig struct {
	// Path is the route registered for retrieving the CSRF token.
	Path string
	// ContextKey is the locals key where the middleware stored the token.
	ContextKey string
	// RouteName is the name assigned to the registered route.
	RouteName string
}

const (
	defaultRoutePath = "/csrf"
	defaultRouteName = "auth.csrf.get"
)

// TokenResponse is the body of the bootstrap endpoint
type TokenResponse struct {
	Token      string `json:"token"`
	FieldName  string `json:"field_name"`
	HeaderName string `json:"header_name"`
}

// RegisterRoutes registers a GET endpoint that returns the CSRF token of
// the request. The CSRF middleware must run before it.
func RegisterRoutes[T any](app router.Router[T], cfg ...RouteConfig) {
	conf := routeConfigDefault(cfg...)
	app.Get(conf.Path, tokenHandler(conf)).SetName(conf.RouteName)
}

func routeConfigDefault(cfg ...RouteConfig) RouteConfig {
	conf := RouteConfig{
		Path:       defaultRoutePath,
		ContextKey: DefaultContextKey,
		RouteName:  defaultRouteName,
	}
	if len(cfg) == 0 {
		return conf
	}

	c := cfg[0]
	if c.Path != "" {
		conf.Path = c.Path
	}
	if c.ContextKey != "" {
		conf.ContextKey = c.ContextKey
	}
	if c.RouteName != "" {
		conf.RouteName = c.RouteName
	}
	return conf
}

func tokenHandler(cfg RouteConfig) router.HandlerFunc {
	return func(ctx router.Context) error {
		token, _ := ctx.Locals(cfg.ContextKey).(string)
		if token == "" {
			return ctx.JSON(router.StatusUnauthorized, map[string]string{
				"error": ErrTokenMissing.Message,
			})
		}

		ctx.SetHeader("Cache-Control", "no-store, max-age=0")
		ctx.SetHeader("Pragma", "no-cache")
		ctx.SetHeader("Expires", "0")

		return ctx.JSON(router.StatusOK, TokenResponse{
			Token:      token,
			FieldName:  DefaultFormFieldName,
			HeaderName: DefaultHeaderName,
		})
	}
}
