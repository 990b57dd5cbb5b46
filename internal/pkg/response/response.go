// Package response renders the API's uniform JSON envelope. Every endpoint
// answers either {"success": true, "data": ...} or
// {"success": false, "error": {"code", "message", "details"}}.
package response

import "github.com/gin-gonic/gin"

// Success writes data wrapped in the success envelope.
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

// Error writes a coded error with no field-level details.
func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// ErrorWithDetails additionally carries a details payload, typically the
// per-field map of a validation failure.
func ErrorWithDetails(c *gin.Context, statusCode int, code string, message string, details any) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
