package main

import (
	"net/http"
	"strings"

	"pbs/src/booking"
	"pbs/src/middlewares"
	"pbs/src/types"

	"github.com/gin-gonic/gin"
)

func guestPaymentHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.POST("/payments/initialize", func(ctx *gin.Context) {
		var body types.InitializePaymentRequestBody
		if err := ctx.ShouldBindJSON(&body); err != nil {
			respondWithBindError(ctx, err)
			return
		}
		payment, err := booking.GetManager().InitializePayment(ctx, middlewares.Actor(ctx), &booking.PaymentInput{
			BookingID:   body.BookingID,
			Email:       strings.TrimSpace(body.Email),
			Method:      types.PaymentMethod(body.Method),
			CallbackURL: body.CallbackURL,
		})
		if err != nil {
			respondWithError(ctx, "payments", err)
			return
		}
		ctx.JSON(http.StatusOK, gin.H{
			"data":              payment,
			"authorization_url": payment.AuthorizationURL,
			"reference":         payment.Reference,
		})
	})
	return g
}

func paymentHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.GET("/payments/verify/:reference", func(ctx *gin.Context) {
		var params types.PaymentReferenceParams
		if err := ctx.ShouldBindUri(&params); err != nil {
			respondWithBindError(ctx, err)
			return
		}
		payment, err := booking.GetManager().VerifyPayment(ctx, params.Reference)
		if err != nil {
			respondWithError(ctx, "payments", err)
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"data": payment})
	})
	return g
}
