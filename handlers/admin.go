package handlers

import (
	"net/http"
	"net/mail"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/taskboardhq/taskboard/database"
	"github.com/taskboardhq/taskboard/models"
	"golang.org/x/crypto/bcrypt"
)

// GetUsers handles GET /api/admin/users - lists provisioned accounts with the
// plain user role. Admin accounts are never included.
func GetUsers(c *gin.Context) {
	var users []models.User
	if err := database.DB.Where("LOWER(role) = ?", models.RoleUser).
		Order("created_at DESC").
		Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	c.JSON(http.StatusOK, users)
}

type createUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// CreateUser handles POST /api/admin/create-user
func CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": gin.H{"body": "request body is not valid JSON"}})
		return
	}

	fieldErrors := gin.H{}
	if strings.TrimSpace(req.Name) == "" {
		fieldErrors["name"] = "name is required"
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		fieldErrors["email"] = "email is required"
	} else if _, err := mail.ParseAddress(email); err != nil {
		fieldErrors["email"] = "email is not a valid address"
	} else {
		var count int64
		database.DB.Model(&models.User{}).Where("email = ?", email).Count(&count)
		if count > 0 {
			fieldErrors["email"] = "email has already been taken"
		}
	}

	if req.Password == "" {
		fieldErrors["password"] = "password is required"
	} else if len(req.Password) < 8 {
		fieldErrors["password"] = "password must be at least 8 characters"
	}

	if req.Role == "" {
		fieldErrors["role"] = "role is required"
	} else if !models.ValidRole(req.Role) {
		fieldErrors["role"] = "role must be admin or user"
	}

	if len(fieldErrors) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": fieldErrors})
		return
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	user := models.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    email,
		Password: string(hashedBytes),
		Role:     req.Role,
	}

	if err := database.DB.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "User created successfully"})
}
