package main

import (
	"errors"
	"log"
	"net/http"

	"pbs/src/types"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// respondWithError renders domain errors with their own status and hides
// everything else behind a 500.
func respondWithError(ctx *gin.Context, tag string, err error) {
	if appErr := types.IsAppError(err); appErr != nil {
		if appErr.Kind == types.EXTERNAL_SERVICE_FAILURE {
			log.Printf("[%s] %s\n", tag, appErr.Error())
		}
		ctx.JSON(appErr.HTTPStatus(), gin.H{"error": appErr})
		return
	}
	log.Printf("[%s] error: %s\n", tag, err.Error())
	ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func respondWithBindError(ctx *gin.Context, err error) {
	ctx.JSON(http.StatusBadRequest, gin.H{"error": types.NewValidationError("invalid_request", err.Error())})
}

func notFoundOr(err error, resource string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.NewNotFound(resource)
	}
	return err
}
