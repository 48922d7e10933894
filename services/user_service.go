package services

import (
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"qurilish/database"
	"qurilish/models"
)

// UserService управляет сотрудниками, которые работают с системой
type UserService struct {
	db  *database.Database
	log *zap.Logger
}

type CreateUserRequest struct {
	FirstName string `json:"firstName" validate:"required,min=2,max=50"`
	LastName  string `json:"lastName" validate:"required,min=2,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
}

type UserResponse struct {
	ID        uint   `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

func NewUserService(db *database.Database, log *zap.Logger) *UserService {
	return &UserService{db: db, log: log.Named("user")}
}

// NewUserResponse убирает из ответа служебные поля
func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}
}

// CreateUser создает нового сотрудника
func (s *UserService) CreateUser(req CreateUserRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	// Проверяем, существует ли пользователь с таким email
	if _, err := s.db.GetUserByEmail(email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !isNotFound(err) {
		return nil, transient(err)
	}

	// Хешируем пароль
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     email,
		Password:  string(hashedPassword),
	}
	if err := s.db.CreateUser(user); err != nil {
		return nil, transient(err)
	}

	s.log.Info("зарегистрирован сотрудник", zap.Uint("user_id", user.ID), zap.String("email", user.Email))
	return user, nil
}

// Authenticate проверяет email и пароль
func (s *UserService) Authenticate(email, password string) (*models.User, error) {
	user, err := s.db.GetUserByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, transient(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// GetUser ищет сотрудника по ID
func (s *UserService) GetUser(id uint) (*models.User, error) {
	user, err := s.db.GetUserByID(id)
	if err != nil {
		return nil, notFound(err, ErrNotFound.With("пользователь не найден"))
	}
	return user, nil
}
