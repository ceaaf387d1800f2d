package api

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gpufutures.com/internal/config"
	"gpufutures.com/internal/model"
)

type AuthHandler struct {
	db        *gorm.DB
	cfg       *config.Config
	jwtSecret []byte
}

func NewAuthHandler(db *gorm.DB, cfg *config.Config) *AuthHandler {
	secret := cfg.Auth.JWTSecret
	if secret == "" {
		log.Println("Auth: Warning - auth.jwt_secret not configured, using insecure default")
		secret = "gpufutures-dev-secret"
	}

	return &AuthHandler{
		db:        db,
		cfg:       cfg,
		jwtSecret: []byte(secret),
	}
}

type LoginRequest struct {
	Username string `json:"Username"`
	Email    string `json:"Email"`
	Password string `json:"Password"`
}

type RegisterRequest struct {
	Username string `json:"Username"`
	Email    string `json:"Email"`
	Password string `json:"Password"`
}

type AuthResponse struct {
	Token    string `json:"Token"`
	ID       uint   `json:"ID"`
	Username string `json:"Username"`
	Email    string `json:"Email"`
	Role     string `json:"Role"`
}

// Register creates a new user (default role: user). The username
// doubles as the trading account name on the ledger.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"Error": "Invalid request"})
	}

	if req.Username == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"Error": "Username is required"})
	}
	if req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"Error": "Password is required"})
	}
	if req.Email == "" {
		req.Email = req.Username
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"Error": "Crypto error"})
	}

	user := model.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashedPassword),
		Role:     "user",
		IsActive: true,
	}

	if err := h.db.Create(&user).Error; err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"Error": "Username or Email already exists"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"Message": "User registered successfully"})
}

// Login authenticates a user and returns a JWT.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"Error": "Invalid request"})
	}

	loginID := req.Username
	if loginID == "" {
		loginID = req.Email
	}
	if loginID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"Error": "Username or Email is required"})
	}

	var user model.User
	if err := h.db.Where("username = ? OR email = ?", loginID, loginID).First(&user).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"Error": "Invalid credentials"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"Error": "Invalid credentials"})
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":       user.ID,
		"email":    user.Email,
		"username": user.Username,
		"role":     user.Role,
		"exp":      time.Now().Add(time.Hour * 72).Unix(),
	})

	t, err := token.SignedString(h.jwtSecret)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"Error": "Failed to sign token"})
	}

	return c.JSON(AuthResponse{
		Token:    t,
		ID:       user.ID,
		Email:    user.Email,
		Username: user.Username,
		Role:     user.Role,
	})
}

// EnsureAdminUser creates the 'admin' account on first boot. The
// engine recognizes this username as the parameter administrator, so
// it must exist before any parameter change can be made.
func (h *AuthHandler) EnsureAdminUser() {
	var count int64
	h.db.Model(&model.User{}).Where("username = ?", "admin").Count(&count)
	if count > 0 {
		return
	}

	log.Println("Auth: No admin user found. Creating default 'admin' user...")

	password := h.cfg.Auth.AdminPassword
	if password == "" {
		password = "admin123"
	}
	email := h.cfg.Auth.AdminEmail
	if email == "" {
		email = "admin@gpufutures.local"
	}

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	admin := model.User{
		Username: "admin",
		Email:    email,
		Password: string(hashedPassword),
		Role:     "admin",
		IsActive: true,
	}
	if err := h.db.Create(&admin).Error; err != nil {
		log.Printf("Failed to create admin user: %v", err)
	} else {
		log.Println("Auth: Created default admin user")
	}
}

// GetMe returns the authenticated user's profile.
func (h *AuthHandler) GetMe(c *fiber.Ctx) error {
	userID := c.Locals("id")
	if userID == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"Error": "Unauthorized"})
	}

	var user model.User
	if err := h.db.First(&user, userID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"Error": "User not found"})
	}

	return c.JSON(fiber.Map{
		"ID":        user.ID,
		"Username":  user.Username,
		"Email":     user.Email,
		"Role":      user.Role,
		"IsActive":  user.IsActive,
		"CreatedAt": user.CreatedAt,
	})
}

// Logout is a placeholder for client-side token removal.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"Message": "Logged out successfully",
	})
}
