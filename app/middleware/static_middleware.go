package middleware

import (
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// PlugStatic answers /.well-known/ probes outside the API prefixes so they do
// not fall through to the UI.
func PlugStatic(apiPrefixes ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if isAPI(path, apiPrefixes) {
			return c.Next()
		}
		if strings.HasPrefix(path, "/.well-known/") {
			return c.JSON(fiber.Map{
				"status": "ignored dynamic-static",
			})
		}
		return c.Next()
	}
}

// SPAFallback serves the UI's index.html for GET requests outside the API
// prefixes that no static file matched.
func SPAFallback(dir string, apiPrefixes ...string) fiber.Handler {
	index := filepath.Join(dir, "index.html")
	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodGet || isAPI(c.Path(), apiPrefixes) {
			return c.Next()
		}
		return c.SendFile(index)
	}
}

func isAPI(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
