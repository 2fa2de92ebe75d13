package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Static catalogs served to clients building operation forms.

func (h *Handler) ConversionFormats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"images":    gin.H{"formats": []string{"jpg", "jpeg", "png", "webp", "gif", "bmp", "tiff"}, "description": "Image file formats"},
			"videos":    gin.H{"formats": []string{"mp4", "avi", "mov", "wmv", "flv", "webm"}, "description": "Video file formats"},
			"audio":     gin.H{"formats": []string{"mp3", "wav", "ogg", "aac", "flac"}, "description": "Audio file formats"},
			"documents": gin.H{"formats": []string{"pdf", "docx", "txt"}, "description": "Document file formats"},
		},
	})
}

func (h *Handler) CompressionLevels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": []gin.H{
			{"value": "light", "label": "Light", "description": "Minimal compression, fast processing"},
			{"value": "medium", "label": "Medium", "description": "Balanced compression and quality"},
			{"value": "high", "label": "High", "description": "Strong compression, smaller files"},
			{"value": "extreme", "label": "Extreme", "description": "Maximum compression, slowest"},
		},
	})
}

func (h *Handler) ExtractionModes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": []gin.H{
			{"value": "auto", "label": "Auto Detect", "description": "Automatically detect text extraction method"},
			{"value": "ocr", "label": "OCR Only", "description": "Use optical character recognition"},
			{"value": "native", "label": "Native Text", "description": "Extract from text-based documents"},
			{"value": "hybrid", "label": "Hybrid", "description": "Combine native extraction with OCR"},
		},
	})
}

func (h *Handler) ExtractionLanguages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": []gin.H{
			{"value": "auto", "label": "Auto Detect"},
			{"value": "en", "label": "English"},
			{"value": "es", "label": "Spanish"},
			{"value": "fr", "label": "French"},
			{"value": "de", "label": "German"},
			{"value": "zh", "label": "Chinese"},
			{"value": "ja", "label": "Japanese"},
			{"value": "ko", "label": "Korean"},
			{"value": "ru", "label": "Russian"},
			{"value": "ar", "label": "Arabic"},
			{"value": "hi", "label": "Hindi"},
		},
	})
}
