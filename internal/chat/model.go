package chat

// Gemini Model IDs
//
// | Model Name                  | API Model ID                | Use Case                      |
// |-----------------------------|-----------------------------|-------------------------------|
// | Gemini 2.5 Flash Image      | gemini-2.5-flash-image      | Fast image generation/edit    |
// | Gemini 3 Pro Image          | gemini-3-pro-image-preview  | Advanced image generation     |
// | Gemini 2.5 Flash            | gemini-2.5-flash            | Text only; key validation     |
const (
	// ModelGemini25FlashImage is the default colorization model.
	ModelGemini25FlashImage = "gemini-2.5-flash-image"

	// ModelGemini3ProImage is for advanced image generation/edit.
	ModelGemini3ProImage = "gemini-3-pro-image-preview"

	// ModelGemini25Flash is stable, balanced performance.
	ModelGemini25Flash = "gemini-2.5-flash"
)

// DefaultImageModel is the model used when gemini.model is not configured.
const DefaultImageModel = ModelGemini25FlashImage

// RequestImageMIMEType is the MIME type declared for every uploaded image,
// whatever its real format. The service sniffs the bytes itself.
const RequestImageMIMEType = "image/png"

// responseModalities asks for an image with optional commentary.
var responseModalities = []string{"TEXT", "IMAGE"}

// truncateString shortens s for log output.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
