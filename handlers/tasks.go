package handlers

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskboardhq/taskboard/database"
	"github.com/taskboardhq/taskboard/models"
	"gorm.io/gorm"
)

// Layouts accepted for due_date values. HTML datetime-local inputs produce
// the minute-precision form.
var dueDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDueDate(value string) (time.Time, bool) {
	for _, layout := range dueDateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// GetTasks handles GET /api/tasks - list the current user's tasks, newest first
func GetTasks(c *gin.Context) {
	user := CurrentUserFrom(c)

	tasks := []models.Task{}
	if err := database.DB.Where("user_id = ?", user.ID).
		Order("created_at DESC, id DESC").
		Find(&tasks).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tasks"})
		return
	}

	c.JSON(http.StatusOK, tasks)
}

// CreateTask handles POST /api/tasks - multipart form with an optional image
func CreateTask(c *gin.Context) {
	user := CurrentUserFrom(c)

	title := strings.TrimSpace(c.PostForm("title"))
	description := c.PostForm("description")
	dueDateStr := c.PostForm("due_date")
	priorityStr := c.PostForm("priority")

	fieldErrors := gin.H{}
	if title == "" {
		fieldErrors["title"] = "title is required"
	}

	var dueDate time.Time
	if dueDateStr == "" {
		fieldErrors["due_date"] = "due date is required"
	} else {
		var ok bool
		if dueDate, ok = parseDueDate(dueDateStr); !ok {
			fieldErrors["due_date"] = "due date is not a valid timestamp"
		}
	}

	priority := models.PriorityLow
	if priorityStr != "" {
		priority = models.TaskPriority(priorityStr)
		if !models.ValidPriority(priority) {
			fieldErrors["priority"] = "priority must be Low, Medium or High"
		}
	}

	// Validate the image before any side effect so a rejected request
	// leaves nothing behind
	file, err := c.FormFile("image")
	hasImage := err == nil && file != nil
	if hasImage {
		if msg := validateTaskImage(file); msg != "" {
			fieldErrors["image"] = msg
		}
	}

	if len(fieldErrors) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": fieldErrors})
		return
	}

	var imagePath *string
	if hasImage {
		relPath, err := saveTaskImage(file)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store image"})
			return
		}
		imagePath = &relPath
	}

	task := models.Task{
		UserID:      user.ID,
		Title:       title,
		Description: description,
		ImagePath:   imagePath,
		DueDate:     dueDate,
		Priority:    priority,
		Status:      models.StatusTodo,
		IsPinned:    false,
	}

	if err := database.DB.Create(&task).Error; err != nil {
		if imagePath != nil {
			deleteTaskImage(*imagePath)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create task"})
		return
	}

	publishTaskEvent(user.ID, "task.created", &task)
	c.JSON(http.StatusCreated, task)
}

// taskUpdateRequest carries the mutable field subset. Pointers distinguish
// "omitted" from zero values.
type taskUpdateRequest struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	DueDate     *string              `json:"due_date"`
	Priority    *models.TaskPriority `json:"priority"`
	Status      *models.TaskStatus   `json:"status"`
	IsPinned    *bool                `json:"is_pinned"`
}

// UpdateTask handles PUT/PATCH /api/tasks/:id - partial update. A JSON body
// updates plain fields; a multipart body may additionally replace the image.
func UpdateTask(c *gin.Context) {
	user := CurrentUserFrom(c)

	task, ok := findOwnedTask(c, user.ID)
	if !ok {
		return
	}

	var req taskUpdateRequest
	isMultipart := strings.HasPrefix(c.ContentType(), "multipart/form-data")
	if isMultipart {
		bindUpdateForm(c, &req)
	} else if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": gin.H{"body": "request body is not valid JSON"}})
		return
	}

	fieldErrors := gin.H{}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		fieldErrors["title"] = "title is required"
	}
	var dueDate time.Time
	if req.DueDate != nil {
		var ok bool
		if dueDate, ok = parseDueDate(*req.DueDate); !ok {
			fieldErrors["due_date"] = "due date is not a valid timestamp"
		}
	}
	if req.Priority != nil && !models.ValidPriority(*req.Priority) {
		fieldErrors["priority"] = "priority must be Low, Medium or High"
	}
	if req.Status != nil && !models.ValidStatus(*req.Status) {
		fieldErrors["status"] = "status must be todo, in-progress or completed"
	}

	var file *multipart.FileHeader
	if isMultipart {
		if fh, err := c.FormFile("image"); err == nil && fh != nil {
			if msg := validateTaskImage(fh); msg != "" {
				fieldErrors["image"] = msg
			} else {
				file = fh
			}
		}
	}

	if len(fieldErrors) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": fieldErrors})
		return
	}

	if req.Title != nil {
		task.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.DueDate != nil {
		task.DueDate = dueDate
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.Status != nil {
		task.Status = *req.Status
	}
	if req.IsPinned != nil {
		task.IsPinned = *req.IsPinned
	}

	if file != nil {
		relPath, err := saveTaskImage(file)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store image"})
			return
		}
		// Drop the previous blob before recording the new path so two
		// successive replacements never leave an orphan referenced
		if task.ImagePath != nil {
			deleteTaskImage(*task.ImagePath)
		}
		task.ImagePath = &relPath
	}

	if err := database.DB.Save(task).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task"})
		return
	}

	publishTaskEvent(user.ID, "task.updated", task)
	c.JSON(http.StatusOK, task)
}

// DeleteTask handles DELETE /api/tasks/:id
func DeleteTask(c *gin.Context) {
	user := CurrentUserFrom(c)

	task, ok := findOwnedTask(c, user.ID)
	if !ok {
		return
	}

	// Release the stored image before removing the row so no orphaned
	// attachment survives the task
	if task.ImagePath != nil {
		deleteTaskImage(*task.ImagePath)
	}

	if err := database.DB.Delete(task).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete task"})
		return
	}

	publishTaskEvent(user.ID, "task.deleted", task)
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

// findOwnedTask resolves :id scoped to the owner. A task belonging to someone
// else answers exactly like a nonexistent one.
func findOwnedTask(c *gin.Context, userID uint) (*models.Task, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return nil, false
	}

	var task models.Task
	if err := database.DB.Where("id = ? AND user_id = ?", id, userID).First(&task).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch task"})
		}
		return nil, false
	}
	return &task, true
}

// bindUpdateForm reads the update field subset from a multipart form
func bindUpdateForm(c *gin.Context, req *taskUpdateRequest) {
	if v, ok := c.GetPostForm("title"); ok {
		req.Title = &v
	}
	if v, ok := c.GetPostForm("description"); ok {
		req.Description = &v
	}
	if v, ok := c.GetPostForm("due_date"); ok {
		req.DueDate = &v
	}
	if v, ok := c.GetPostForm("priority"); ok {
		p := models.TaskPriority(v)
		req.Priority = &p
	}
	if v, ok := c.GetPostForm("status"); ok {
		s := models.TaskStatus(v)
		req.Status = &s
	}
	if v, ok := c.GetPostForm("is_pinned"); ok {
		pinned := v == "1" || strings.EqualFold(v, "true")
		req.IsPinned = &pinned
	}
}
