package middleware

import (
	"github.com/rs/cors"
	"gopkg.in/macaron.v1"
)

// CorsHandler lets browser dashboards on other origins query the status
// and explain endpoints.
func CorsHandler(origins []string) macaron.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST"},
		AllowCredentials: true,
	})
	return c.HandlerFunc
}
