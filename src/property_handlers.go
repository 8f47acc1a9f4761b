package main

import (
	"net/http"

	"pbs/src/availability"
	"pbs/src/booking"
	"pbs/src/db"
	"pbs/src/middlewares"
	"pbs/src/models"
	"pbs/src/models/scopes"
	"pbs/src/types"
	"pbs/src/utils"

	"github.com/gin-gonic/gin"
)

func propertyHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/properties", func(ctx *gin.Context) {
			var properties []models.Property
			err := db.GetDb().
				Model(&models.Property{}).
				Order("id").
				Find(&properties).
				Error
			if err != nil {
				respondWithError(ctx, "properties", err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": properties, "count": len(properties)})
		}).
		GET("/properties/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				respondWithBindError(ctx, err)
				return
			}
			var property models.Property
			err := db.GetDb().
				Model(&models.Property{}).
				Scopes(scopes.WithID(params.ID)).
				Preload("PricingRecords").
				First(&property).
				Error
			if err != nil {
				respondWithError(ctx, "properties", notFoundOr(err, "property"))
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": property})
		}).
		GET("/properties/:id/pricing", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				respondWithBindError(ctx, err)
				return
			}
			var count int64
			if err := db.GetDb().Model(&models.Property{}).Scopes(scopes.WithID(params.ID)).Count(&count).Error; err != nil {
				respondWithError(ctx, "pricing", err)
				return
			}
			if count == 0 {
				respondWithError(ctx, "pricing", types.NewNotFound("property"))
				return
			}
			catalog, err := booking.GetManager().Catalog().Load(ctx, params.ID)
			if err != nil {
				respondWithError(ctx, "pricing", err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": catalog, "count": len(catalog)})
		}).
		GET("/properties/:id/availability", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				respondWithBindError(ctx, err)
				return
			}
			var query types.AvailabilityQueryParams
			if err := ctx.ShouldBindQuery(&query); err != nil {
				respondWithBindError(ctx, err)
				return
			}
			var count int64
			if err := db.GetDb().Model(&models.Property{}).Scopes(scopes.WithID(params.ID)).Count(&count).Error; err != nil {
				respondWithError(ctx, "availability", err)
				return
			}
			if count == 0 {
				respondWithError(ctx, "availability", types.NewNotFound("property"))
				return
			}
			checkIn, _ := utils.ParseDate(query.CheckIn)
			checkOut, _ := utils.ParseDate(query.CheckOut)
			report, err := availability.Check(ctx, db.GetDb(), params.ID, checkIn, checkOut, utils.Today())
			if err != nil {
				respondWithError(ctx, "availability", err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": report})
		})
	return g
}

func blockedRangeHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/properties/:id/blocked-ranges", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				respondWithBindError(ctx, err)
				return
			}
			var body types.CreateBlockedRangeRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				respondWithBindError(ctx, err)
				return
			}
			start, _ := utils.ParseDate(body.StartDate)
			end, _ := utils.ParseDate(body.EndDate)
			block, err := booking.GetManager().BlockDates(ctx, middlewares.Actor(ctx), &booking.BlockInput{
				PropertyID:    params.ID,
				StartDate:     start,
				EndDate:       end,
				Reason:        body.Reason,
				IsMaintenance: body.IsMaintenance,
			})
			if err != nil {
				respondWithError(ctx, "blocked-ranges", err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": block})
		}).
		DELETE("/blocked-ranges/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				respondWithBindError(ctx, err)
				return
			}
			if err := booking.GetManager().UnblockDates(ctx, middlewares.Actor(ctx), params.ID); err != nil {
				respondWithError(ctx, "blocked-ranges", err)
				return
			}
			ctx.Status(http.StatusNoContent)
		})
	return g
}
