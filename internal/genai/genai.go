package genai

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// Request carries everything the provider needs to render a mockup.
// Image fields hold base64 data URLs; only BaseImage is required.
type Request struct {
	BaseImage  string
	PrintImage string
	LogoImage  string

	Description      string
	ColorHTMLCode    string
	Fabric           string
	RenderSize       string
	PrintScalePreset string
	LogoPlacement    string
}

// Provider generates a mockup image from an assembled request and
// returns the raw image bytes. Implementations must not retry on
// failure; callers surface errors directly.
type Provider interface {
	Generate(ctx context.Context, req Request) ([]byte, error)
}

const systemPrompt = `You are a professional fashion and textile image generation assistant.
Your task is to create ultra-realistic outfit mockups that look like real studio product photos.
Rules:
1. The garment should always maintain natural folds, shadows, and lighting consistency.
2. Apply the requested color and fabric realistically.
3. Overlay the print design in the correct scale and position.
4. Add the logo on the correct chest area per the requested placement.
5. The result must NOT look cartoonish, painted, or AI-generated.
6. Output a clean, eCommerce-ready garment photo with a neutral background.`

type contentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// buildUserContent assembles the user-side prompt: one text part followed
// by the inline images in base/print/logo order.
func buildUserContent(req Request) []contentPart {
	promptParts := []string{"Generate a high-quality, photorealistic clothing mockup image."}
	promptParts = append(promptParts, "Use the first image as the base outfit image.")
	if req.Fabric != "" {
		promptParts = append(promptParts, fmt.Sprintf("Apply fabric texture: %s.", req.Fabric))
	}
	if req.ColorHTMLCode != "" {
		promptParts = append(promptParts, fmt.Sprintf("Set the main garment color to: %s.", req.ColorHTMLCode))
	}
	if req.PrintImage != "" && req.PrintScalePreset != "" {
		promptParts = append(promptParts, fmt.Sprintf("Overlay the second image as print design (%s scale) on the front.", req.PrintScalePreset))
	}
	if req.LogoImage != "" && req.LogoPlacement != "" {
		promptParts = append(promptParts, fmt.Sprintf("Place the third image as logo on the %s chest area.", req.LogoPlacement))
	}
	if req.Description != "" {
		promptParts = append(promptParts, fmt.Sprintf("Design description: %s.", req.Description))
	}
	if req.RenderSize != "" {
		promptParts = append(promptParts, fmt.Sprintf("Render size: %s. Use realistic lighting, true fabric texture, and professional fashion photography style.", req.RenderSize))
	}

	content := []contentPart{{Type: "input_text", Text: strings.Join(promptParts, " ")}}
	content = append(content, contentPart{Type: "input_image", ImageURL: req.BaseImage})
	if req.PrintImage != "" {
		content = append(content, contentPart{Type: "input_image", ImageURL: req.PrintImage})
	}
	if req.LogoImage != "" {
		content = append(content, contentPart{Type: "input_image", ImageURL: req.LogoImage})
	}
	return content
}

// FileDataURL reads a stored image and inlines it as a base64 data URL.
func FileDataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image %s: %w", path, err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "image/png"
	}

	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data)), nil
}
