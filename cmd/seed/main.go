package main

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/taskboardhq/taskboard/database"
	"github.com/taskboardhq/taskboard/models"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Connect to database
	if err := database.Connect(); err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer database.Close()

	fmt.Println("🌱 Starting seed...")

	user := seedUser("Test User", "user1@taskboard.local", "password123", "User")
	seedUser("Admin", "admin@taskboard.local", "password123", models.RoleAdmin)

	now := time.Now()
	tasks := []models.Task{
		{
			UserID:      user.ID,
			Title:       "Fix Dashboard Layout",
			Description: "Fix the alignment of the login card and input fields.",
			DueDate:     now.Add(48 * time.Hour),
			Priority:    models.PriorityHigh,
			Status:      models.StatusTodo,
		},
		{
			UserID:      user.ID,
			Title:       "Setup PostgreSQL Migrations",
			Description: "Ensure the priority column exists in the tasks table.",
			DueDate:     now.Add(24 * time.Hour),
			Priority:    models.PriorityMedium,
			Status:      models.StatusInProgress,
		},
		{
			UserID:      user.ID,
			Title:       "Connect Client to API",
			Description: "Verify that the API base URL is correct.",
			DueDate:     now.Add(-24 * time.Hour),
			Priority:    models.PriorityLow,
			Status:      models.StatusCompleted,
			IsPinned:    true,
		},
	}

	created := 0
	for _, task := range tasks {
		var count int64
		database.DB.Model(&models.Task{}).
			Where("user_id = ? AND title = ?", task.UserID, task.Title).
			Count(&count)
		if count > 0 {
			continue
		}
		if err := database.DB.Create(&task).Error; err != nil {
			log.Printf("❌ Failed to create task %q: %v", task.Title, err)
			continue
		}
		created++
	}

	fmt.Printf("✅ Seed complete (%d tasks created)\n", created)
}

// seedUser creates a user unless one with the email already exists
func seedUser(name, email, password, role string) *models.User {
	var existing models.User
	if err := database.DB.Where("email = ?", email).First(&existing).Error; err == nil {
		return &existing
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("❌ Failed to hash password: %v", err)
	}

	user := models.User{
		Name:     name,
		Email:    email,
		Password: string(hashedBytes),
		Role:     role,
	}
	if err := database.DB.Create(&user).Error; err != nil {
		log.Fatalf("❌ Failed to create user %s: %v", email, err)
	}

	fmt.Printf("👤 Created user %s (%s)\n", email, role)
	return &user
}
