package middlewares

import (
	"errors"
	"log"
	"net/http"
	"slices"
	"strconv"

	"pbs/src/booking"
	"pbs/src/db"
	"pbs/src/models"
	"pbs/src/types"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// authenticate resolves the bearer token to a stored user and records the
// identity on the context.
func authenticate(ctx *gin.Context) error {
	reqToken, err := bearerToken(ctx.Request.Header.Get("Authorization"))
	if err != nil {
		return err
	}
	claims, err := ParseToken(reqToken)
	if err != nil {
		log.Printf("token error: %s\n", err.Error())
		return errInvalidToken
	}

	uid, err := strconv.Atoi(claims.Subject)
	if err != nil || uid < 1 {
		log.Printf("error parsing claims: subject %q\n", claims.Subject)
		return errInvalidToken
	}
	var user models.User
	err = db.GetDb().Model(&models.User{}).Where("id = ?", uid).First(&user).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("error loading user %d: %s\n", uid, err.Error())
		}
		return errInvalidToken
	}

	ctx.Set("id", user.ID)
	ctx.Set("email", user.Email)
	ctx.Set("role", user.Role)
	return nil
}

func AuthMiddleware(ctx *gin.Context) {
	if err := authenticate(ctx); err != nil {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	ctx.Next()
}

// OptionalAuth identifies the caller when a token is sent. Requests without
// an Authorization header continue anonymously; a bad token is rejected.
func OptionalAuth(ctx *gin.Context) {
	if ctx.Request.Header.Get("Authorization") == "" {
		ctx.Next()
		return
	}
	AuthMiddleware(ctx)
}

func RequireRole(roles ...types.UserRole) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		role, _ := ctx.Get("role")
		r, ok := role.(types.UserRole)
		if !ok || !slices.Contains(roles, r) {
			ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": types.NewPermissionDenied("insufficient role")})
			return
		}
		ctx.Next()
	}
}

// Actor returns the authenticated caller, or nil for anonymous requests.
func Actor(ctx *gin.Context) *booking.Actor {
	id := ctx.GetUint("id")
	if id == 0 {
		return nil
	}
	role, _ := ctx.Get("role")
	r, _ := role.(types.UserRole)
	return &booking.Actor{
		UserID: id,
		Email:  ctx.GetString("email"),
		Role:   r,
	}
}
