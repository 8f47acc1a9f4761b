package main

import (
	"io"
	"log"
	"net/http"

	"pbs/src/booking"
	"pbs/src/types"

	"github.com/gin-gonic/gin"
)

const maxWebhookBytes = int64(65536)

func webhookRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.POST("/webhook/:provider", func(ctx *gin.Context) {
		var params struct {
			Provider string `uri:"provider" binding:"required,oneof=paystack stripe"`
		}
		if err := ctx.ShouldBindUri(&params); err != nil {
			ctx.Status(http.StatusNotFound)
			return
		}
		payload, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxWebhookBytes))
		if err != nil {
			log.Printf("Error reading request body: %s\n", err.Error())
			ctx.Status(http.StatusServiceUnavailable)
			return
		}
		err = booking.GetManager().HandleWebhook(ctx, params.Provider, payload, ctx.Request.Header)
		if err != nil {
			if types.IsKind(err, types.VALIDATION_ERROR) {
				log.Printf("Error verifying %s webhook: %s\n", params.Provider, err.Error())
				ctx.Status(http.StatusBadRequest)
				return
			}
			respondWithError(ctx, "webhook", err)
			return
		}
		ctx.Status(http.StatusOK)
	})
	return apiv1
}
