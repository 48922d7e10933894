package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	userIDKey = "user_id"
	emailKey  = "email"
)

// Auth проверяет JWT токен и кладет сотрудника в контекст запроса
func Auth(jwtKey []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Получаем токен из заголовка
		tokenString := c.GetHeader("Authorization")
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "требуется заголовок Authorization"})
			return
		}

		// Убираем префикс "Bearer " если он есть
		tokenString = strings.TrimPrefix(tokenString, "Bearer ")

		// Парсим и проверяем токен
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return jwtKey, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "недействительный токен"})
			return
		}

		// Проверяем claims
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "неверные данные токена"})
			return
		}
		userID, ok := claims["user_id"].(float64)
		if !ok || userID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "в токене нет user_id"})
			return
		}
		email, _ := claims["email"].(string)

		c.Set(userIDKey, uint(userID))
		c.Set(emailKey, email)
		c.Next()
	}
}

// UserID получает идентификатор сотрудника из контекста
func UserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// GetUserFromContext получает информацию о сотруднике из контекста
func GetUserFromContext(c *gin.Context) (uint, string, error) {
	userID, ok := UserID(c)
	if !ok {
		return 0, "", fmt.Errorf("user_id not found in context")
	}
	email := c.GetString(emailKey)
	if email == "" {
		return 0, "", fmt.Errorf("email not found in context")
	}
	return userID, email, nil
}
