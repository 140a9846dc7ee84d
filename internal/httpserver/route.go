package httpserver

import (
	"net/http"

	middleware "github.com/Skotchmaster/checkout/pkg/middleware/auth"
	"github.com/Skotchmaster/checkout/pkg/middleware/csrf"
	"github.com/labstack/echo/v4"
)

type Deps struct {
	CartHandler     *CartHTTP
	CheckoutHandler *CheckoutHTTP
	JWTSecret       []byte
	AuthClient      middleware.Refresher
	CSRF            *csrf.Config
	Ready           func() error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(); err != nil {
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			}
		}
		return c.NoContent(http.StatusOK)
	})

	authMW := middleware.NewAutoRefreshMiddleware(d.JWTSecret, d.AuthClient)

	api := e.Group("/api/v1")
	if d.CSRF != nil {
		api.Use(csrf.Middleware(*d.CSRF))
	}
	api.Use(authMW.RequireAuth, Notices)

	cart := api.Group("/cart")
	cart.GET("", d.CartHandler.GetCart)
	cart.GET("/badge", d.CartHandler.Badge)
	cart.POST("/lines", d.CartHandler.AddLine)
	cart.PATCH("/lines/:id", d.CartHandler.UpdateLine)
	cart.DELETE("/lines/:id", d.CartHandler.DeleteLine)
	cart.DELETE("/lines", d.CartHandler.DeleteAll)

	co := api.Group("/checkout")
	co.POST("/address", d.CheckoutHandler.ResolveAddress)
	co.POST("/orders", d.CheckoutHandler.PlaceOrder)
	co.GET("/orders/:id", d.CheckoutHandler.GetOrder)
}
