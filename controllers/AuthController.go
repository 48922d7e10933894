package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"qurilish/config"
	"qurilish/middleware"
	"qurilish/services"
)

type AuthController struct {
	userService *services.UserService
	validate    *validator.Validate
	config      *config.Config
	log         *zap.Logger
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type SignUpRequest struct {
	FirstName string `json:"firstName" validate:"required,min=2,max=50"`
	LastName  string `json:"lastName" validate:"required,min=2,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,password"`
}

type Token struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	UserID    uint      `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type AuthResponse struct {
	Token Token                 `json:"token"`
	User  services.UserResponse `json:"user"`
}

func NewAuthController(userService *services.UserService, validate *validator.Validate, cfg *config.Config, log *zap.Logger) *AuthController {
	return &AuthController{
		userService: userService,
		validate:    validate,
		config:      cfg,
		log:         log.Named("auth"),
	}
}

// SignIn обрабатывает вход сотрудника
func (c *AuthController) SignIn(ctx *gin.Context) {
	var req SignInRequest
	if !bind(ctx, c.validate, &req) {
		return
	}

	user, err := c.userService.Authenticate(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			ctx.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "code": "invalid_credentials"})
			return
		}
		respondError(ctx, c.log, err)
		return
	}

	token, err := c.generateToken(user.ID, user.Email)
	if err != nil {
		c.log.Error("ошибка создания токена", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "не удалось создать токен"})
		return
	}

	ctx.JSON(http.StatusOK, AuthResponse{Token: *token, User: services.NewUserResponse(user)})
}

// SignUp регистрирует сотрудника
func (c *AuthController) SignUp(ctx *gin.Context) {
	var req SignUpRequest
	if !bind(ctx, c.validate, &req) {
		return
	}

	user, err := c.userService.CreateUser(services.CreateUserRequest{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}

	token, err := c.generateToken(user.ID, user.Email)
	if err != nil {
		c.log.Error("ошибка создания токена", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "не удалось создать токен"})
		return
	}

	ctx.JSON(http.StatusCreated, AuthResponse{Token: *token, User: services.NewUserResponse(user)})
}

// Me возвращает текущего сотрудника по токену
func (c *AuthController) Me(ctx *gin.Context) {
	userID, _, err := middleware.GetUserFromContext(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	user, err := c.userService.GetUser(userID)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, services.NewUserResponse(user))
}

// RegisterRoutes регистрирует маршруты контроллера
func (c *AuthController) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/signUp", c.SignUp)
	rg.POST("/auth/signIn", c.SignIn)
}

// generateToken создает JWT токен
func (c *AuthController) generateToken(userID uint, email string) (*Token, error) {
	expirationTime := time.Now().Add(time.Duration(c.config.JWT.ExpiresIn) * time.Hour)
	claims := jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"exp":     expirationTime.Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(c.config.JWT.SecretKey))
	if err != nil {
		return nil, err
	}

	return &Token{
		Token:     tokenString,
		Email:     email,
		UserID:    userID,
		ExpiresAt: expirationTime,
	}, nil
}
