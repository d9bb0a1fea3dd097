package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/stitchdesk/stitchdesk/internal/handlers"
	authmw "github.com/stitchdesk/stitchdesk/internal/middleware/auth"
	"github.com/stitchdesk/stitchdesk/internal/middleware/upload"
	"github.com/stitchdesk/stitchdesk/internal/tokens"
)

const (
	maxAvatarSize     = 2 << 20
	maxGenerationSize = 5 << 20
)

type Deps struct {
	Tokens      *tokens.Service
	Auth        *handlers.AuthHandler
	Employees   *handlers.EmployeeHandler
	Todos       *handlers.TodoHandler
	Generate    *handlers.GenerateHandler
	UploadDir   string
	ContentsDir string
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})

	e.POST("/register", d.Auth.Register)
	e.POST("/login", d.Auth.Login)
	e.POST("/refresh", d.Auth.Refresh)
	e.POST("/logout", d.Auth.Logout)

	requireAuth := authmw.RequireAuth(d.Tokens)

	avatarUpload := upload.Images(upload.Options{
		Dir:     d.UploadDir,
		Fields:  []string{"avatar"},
		MaxSize: maxAvatarSize,
	})
	generationUpload := upload.Images(upload.Options{
		Dir:     d.ContentsDir,
		Fields:  []string{"image", "logo"},
		MaxSize: maxGenerationSize,
	})

	employees := e.Group("/employees", requireAuth)
	employees.GET("", d.Employees.Index)
	employees.POST("", d.Employees.Create)
	employees.GET("/search", d.Employees.Search)
	employees.GET("/:id", d.Employees.Show)
	employees.PUT("/:id", d.Employees.Update)
	employees.PATCH("/:id", d.Employees.Update)
	employees.DELETE("/:id", d.Employees.Destroy)
	employees.POST("/:id/avatar", d.Employees.UploadAvatar, avatarUpload)

	todos := e.Group("/todos", requireAuth)
	todos.GET("", d.Todos.Index)
	todos.POST("", d.Todos.Create)
	todos.GET("/:id", d.Todos.Show)
	todos.PUT("/:id", d.Todos.Update)
	todos.PATCH("/:id", d.Todos.Patch)
	todos.DELETE("/:id", d.Todos.Destroy)

	e.POST("/llm/gen", d.Generate.Generate, generationUpload)

	e.Static("/contents", d.ContentsDir)
	e.Static("/uploads", d.UploadDir)
}
