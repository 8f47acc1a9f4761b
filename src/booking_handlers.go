package main

import (
	"net/http"

	"pbs/src/booking"
	"pbs/src/middlewares"
	"pbs/src/types"

	"github.com/gin-gonic/gin"
)

// guestBookingHandlers serve anonymous and signed-in guests alike.
func guestBookingHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/bookings/calculate-price", func(ctx *gin.Context) {
			var query types.PriceQueryParams
			if err := ctx.ShouldBindQuery(&query); err != nil {
				respondWithBindError(ctx, err)
				return
			}
			in, err := booking.NewPreviewInput(&query)
			if err != nil {
				respondWithError(ctx, "calculate-price", err)
				return
			}
			preview, err := booking.GetManager().PreviewPrice(ctx, middlewares.Actor(ctx), in)
			if err != nil {
				respondWithError(ctx, "calculate-price", err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": preview})
		}).
		POST("/bookings", func(ctx *gin.Context) {
			var body types.CreateBookingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				respondWithBindError(ctx, err)
				return
			}
			in, err := booking.NewCreateInput(&body)
			if err != nil {
				respondWithError(ctx, "bookings", err)
				return
			}
			b, quote, err := booking.GetManager().CreateBooking(ctx, middlewares.Actor(ctx), in)
			if err != nil {
				respondWithError(ctx, "bookings", err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": b, "pricing": quote})
		})
	return g
}

func bookingHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/bookings", func(ctx *gin.Context) {
			var query struct {
				Status     string `form:"status" binding:"omitempty,oneof=pending confirmed completed cancelled"`
				PropertyID uint   `form:"property"`
			}
			if err := ctx.ShouldBindQuery(&query); err != nil {
				respondWithBindError(ctx, err)
				return
			}
			bookings, err := booking.GetManager().ListBookings(ctx, middlewares.Actor(ctx), booking.ListFilter{
				Status:     types.BookingStatus(query.Status),
				PropertyID: query.PropertyID,
			})
			if err != nil {
				respondWithError(ctx, "bookings", err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": bookings, "count": len(bookings)})
		}).
		GET("/bookings/mine", func(ctx *gin.Context) {
			bookings, err := booking.GetManager().ListMine(ctx, middlewares.Actor(ctx))
			if err != nil {
				respondWithError(ctx, "bookings", err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": bookings, "count": len(bookings)})
		}).
		GET("/bookings/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				respondWithBindError(ctx, err)
				return
			}
			b, err := booking.GetManager().GetBooking(ctx, middlewares.Actor(ctx), params.ID)
			if err != nil {
				respondWithError(ctx, "bookings", err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": b})
		}).
		POST("/bookings/:id/cancel", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				respondWithBindError(ctx, err)
				return
			}
			b, err := booking.GetManager().CancelBooking(ctx, middlewares.Actor(ctx), params.ID)
			if err != nil {
				respondWithError(ctx, "cancel", err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": b})
		}).
		POST("/bookings/:id/confirm", middlewares.RequireRole(types.ROLE_ADMIN), func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				respondWithBindError(ctx, err)
				return
			}
			b, err := booking.GetManager().ConfirmBooking(ctx, middlewares.Actor(ctx), params.ID)
			if err != nil {
				respondWithError(ctx, "confirm", err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": b})
		})
	return g
}
