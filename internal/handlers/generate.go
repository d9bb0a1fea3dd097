package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"gorm.io/gorm"

	"github.com/stitchdesk/stitchdesk/internal/events"
	"github.com/stitchdesk/stitchdesk/internal/genai"
	"github.com/stitchdesk/stitchdesk/internal/logging"
	"github.com/stitchdesk/stitchdesk/internal/middleware/upload"
	"github.com/stitchdesk/stitchdesk/internal/models"
)

type GenerateHandler struct {
	DB          *gorm.DB
	Provider    genai.Provider
	Producer    *events.Producer
	AppURL      string
	ContentsDir string
}

type generateParams struct {
	Description      string `form:"description"`
	ColorHTMLCode    string `form:"color_html_code" validate:"omitempty,hexcolor"`
	Fabric           string `form:"fabric"`
	PrintFileCode    string `form:"print_file_code"`
	PrintScalePreset string `form:"print_file_scale_preset"`
	LogoPlacement    string `form:"logo_placement"`
	RenderSize       string `form:"render_size"`
}

// Generate assembles a prompt from the uploaded images and form fields,
// calls the image-generation provider, stores the result and returns its
// public URL. Every failure after the uploads were stored removes them
// again; the logo removal is nil-safe because the logo is optional.
func (h *GenerateHandler) Generate(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "llm_generate")

	baseFile, ok := upload.FromContext(c, "image")
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "No file uploaded or invalid file type/size")
	}
	logoFile, hasLogo := upload.FromContext(c, "logo")

	cleanup := func() {
		upload.Remove(baseFile)
		if hasLogo {
			upload.Remove(logoFile)
		}
	}

	var params generateParams
	if err := c.Bind(&params); err != nil {
		cleanup()
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&params); err != nil {
		cleanup()
		return errorJSON(c, http.StatusBadRequest, "Invalid color code")
	}

	req := genai.Request{
		Description:   params.Description,
		ColorHTMLCode: params.ColorHTMLCode,
		Fabric:        params.Fabric,
		RenderSize:    params.RenderSize,
	}

	if params.PrintFileCode != "" {
		var print models.Print
		if err := h.DB.Where("code = ?", params.PrintFileCode).First(&print).Error; err != nil {
			cleanup()
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errorJSON(c, http.StatusBadRequest, "Invalid print file code")
			}
			l.Error("print lookup failed", "error", err)
			return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
		}

		printURL, err := genai.FileDataURL(filepath.Join(h.ContentsDir, "prints", print.Image))
		if err != nil {
			cleanup()
			l.Error("print image read failed", "error", err)
			return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
		}
		req.PrintImage = printURL
		req.PrintScalePreset = params.PrintScalePreset
	}

	if hasLogo {
		logoURL, err := genai.FileDataURL(logoFile.Path)
		if err != nil {
			cleanup()
			l.Error("logo image read failed", "error", err)
			return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
		}
		req.LogoImage = logoURL
		req.LogoPlacement = params.LogoPlacement
	}

	baseURL, err := genai.FileDataURL(baseFile.Path)
	if err != nil {
		cleanup()
		l.Error("base image read failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
	}
	req.BaseImage = baseURL

	img, err := h.Provider.Generate(c.Request().Context(), req)
	if err != nil {
		cleanup()
		l.Error("generation failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, "Image generation failed")
	}

	dir := filepath.Join(h.ContentsDir, "generated")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		cleanup()
		l.Error("generation failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
	}

	name := fmt.Sprintf("gen_%d_%s.png", time.Now().UnixMilli(), gonanoid.Must(8))
	if err := os.WriteFile(filepath.Join(dir, name), img, 0o644); err != nil {
		cleanup()
		l.Error("generation failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, internalErrorMsg)
	}

	resultURL := fmt.Sprintf("%s/contents/generated/%s", h.AppURL, name)

	publish(c, h.Producer, "generation_events", name, map[string]any{
		"type": "image_generated",
		"url":  resultURL,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Generated response",
		"url":     resultURL,
	})
}
