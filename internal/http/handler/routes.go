package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"fileapi/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers stay free of business logic; anything beyond request parsing and
// error translation lives in the service layer.
func RegisterRoutes(app *fiber.App, db *sql.DB, fileSvc service.FileService) {
	// Serve OpenAPI spec and Swagger UI
	app.Get("/openapi.yaml", func(c *fiber.Ctx) error {
		c.Type("yaml")
		return c.SendFile("openapi.yaml")
	})
	app.Get("/docs", func(c *fiber.Ctx) error {
		html := `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/openapi.yaml',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`
		return c.Type("html").SendString(html)
	})

	// Health endpoint: liveness plus DB connectivity
	app.Get("/health", HealthCheck(db))

	// Bare liveness probe
	app.Get("/healthz", LivenessProbe())

	// File ingestion and retrieval
	app.Post("/files/upload", UploadFiles(fileSvc))
	app.Get("/files", ListFiles(fileSvc))
	app.Get("/files/download/:id", DownloadFile(fileSvc))
	app.Delete("/files/:id", DeleteFile(fileSvc))
}
