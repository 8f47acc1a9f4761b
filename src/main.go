package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"regexp"
	"time"

	"pbs/src/boot"
	"pbs/src/config"
	"pbs/src/db"
	"pbs/src/lib"
	"pbs/src/middlewares"
	"pbs/src/types"
	"pbs/src/utils"

	"github.com/covalenthq/lumberjack"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	apiPrefix string = "/api/v1"
)

var bookingDateValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	date, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	_, err := utils.ParseDate(date)
	return err == nil
}

// afterdate=Field passes when the value is a later calendar date than Field.
var afterDateValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	date, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	datetime, err := utils.ParseDate(date)
	if err != nil {
		return false
	}
	field := fl.Parent().FieldByName(fl.Param())
	if !field.IsValid() {
		return false
	}
	fieldValue, ok := field.Interface().(string)
	if !ok {
		return false
	}
	fielddatetime, err := utils.ParseDate(fieldValue)
	if err != nil {
		// the other field reports its own error
		return true
	}
	return datetime.After(fielddatetime)
}

func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("bookingdate", bookingDateValidatorFunc)
		v.RegisterValidation("afterdate", afterDateValidatorFunc)
	}
}

func setupRouter() *gin.Engine {
	router := gin.Default()
	router.Use(middlewares.SecureHeaders)
	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, "ok")
	})
	router.GET("/health", func(ctx *gin.Context) {
		status := gin.H{"database": "ok", "cache": "ok"}
		code := http.StatusOK
		sqlDB, err := db.GetDb().DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			log.Printf("[health] database: %s\n", err.Error())
			status["database"] = "unavailable"
			code = http.StatusServiceUnavailable
		}
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := lib.PingRedis(pingCtx); err != nil {
			status["cache"] = "unavailable"
		}
		ctx.JSON(code, status)
	})
	return router
}

func maintenanceModeMiddleware(g *gin.Engine) *gin.Engine {
	g.Use(middlewares.MaintenanceMode)
	return g
}

func apiv1Group(g *gin.Engine) *gin.RouterGroup {
	apiv1 := g.Group(apiPrefix)
	return apiv1
}

func publicRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1 = propertyHandlers(apiv1)
	apiv1 = paymentHandlers(apiv1)
	return apiv1
}

// guestRoutes serve anonymous guests and signed-in users alike.
func guestRoutes(g *gin.Engine) *gin.RouterGroup {
	guest := g.Group(apiPrefix)
	guest.Use(middlewares.OptionalAuth)
	guest = guestBookingHandlers(guest)
	guest = guestPaymentHandlers(guest)
	return guest
}

func authorizedRoutes(g *gin.Engine) *gin.RouterGroup {
	authorized := g.Group(apiPrefix)
	authorized.Use(middlewares.AuthMiddleware)
	{
		authorized = bookingHandlers(authorized)

		management := authorized.Group("")
		management.Use(middlewares.RequireRole(types.ROLE_ADMIN, types.ROLE_STAFF))
		blockedRangeHandlers(management)
	}
	return authorized
}

func registerRoutes(router *gin.Engine) *gin.Engine {
	router = maintenanceModeMiddleware(router)
	publicRoutes(router)
	guestRoutes(router)
	webhookRoutes(router)
	authorizedRoutes(router)
	return router
}

func initLogger() {
	cwd, _ := os.Getwd()
	serverLogs := path.Join(cwd, "logs", "server.log")
	apiLogs := path.Join(cwd, "logs", "api.log")
	gin.ForceConsoleColor()

	f, _ := os.Create(apiLogs)
	gin.DefaultWriter = io.MultiWriter(f, os.Stdout)
	log.SetOutput(&lumberjack.Logger{
		Filename:   serverLogs,
		MaxSize:    500,
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   true,
	})
}

func corsMiddleware(apiEnv string) gin.HandlerFunc {
	if apiEnv == "local" {
		return cors.Default()
	}
	appHost := os.Getenv("APP_HOST")
	cc := cors.DefaultConfig()
	cc.AllowMethods = append(cc.AllowMethods, "GET", "POST", "PATCH", "PUT", "DELETE", "HEAD")
	cc.AllowHeaders = append(cc.AllowHeaders, "Origin", "Authorization")
	cc.AllowOriginFunc = func(origin string) bool {
		if appHost == "" {
			return false
		}
		match, _ := regexp.MatchString(appHost, origin)
		return match
	}
	cc.AllowCredentials = true
	cc.AllowAllOrigins = false
	return cors.New(cc)
}

func main() {
	apiEnv := os.Getenv("API_ENV")
	if apiEnv == "local" {
		cwd, _ := os.Getwd()
		if err := godotenv.Load(path.Join(cwd, ".env")); err != nil {
			panic(err)
		}
	}
	initLogger()
	if utils.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	boot.InitDb()
	if err := boot.Seed(db.GetDb()); err != nil {
		log.Printf("[seed] %s\n", err.Error())
	}
	boot.InitScheduler()
	defer boot.StopScheduler()

	go boot.InitBroker()

	router := setupRouter()
	router.Use(corsMiddleware(apiEnv))

	registerValidators()
	registerRoutes(router)

	addr := ":" + config.GetPort()
	if os.Getenv("TLS_ENABLE") == "true" {
		cwd, _ := os.Getwd()
		certpath := path.Join(cwd, "certificates", "localhost.pem")
		keypath := path.Join(cwd, "certificates", "localhost-key.pem")
		if err := router.RunTLS(addr, certpath, keypath); err != nil {
			log.Fatalf("Failed to start server: %s", err)
		}
		return
	}
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %s", err)
	}
}
