package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/taskboardhq/taskboard/database"
	"github.com/taskboardhq/taskboard/handlers"
	"github.com/taskboardhq/taskboard/models"
)

// Maintenance tool: deletes completed tasks past the retention window and
// sweeps image blobs no task references anymore.
func main() {
	retentionDays := flag.Int("retention", 90, "delete completed tasks older than this many days (0 disables)")
	dryRun := flag.Bool("dry-run", false, "report what would be removed without touching anything")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	if err := database.Connect(); err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer database.Close()

	fmt.Println("Start cleanup...")

	if *retentionDays > 0 {
		purgeCompletedTasks(*retentionDays, *dryRun)
	}
	sweepOrphanedImages(*dryRun)

	fmt.Println("Cleanup finished successfully")
}

func purgeCompletedTasks(retentionDays int, dryRun bool) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	var stale []models.Task
	if err := database.DB.
		Where("status = ? AND updated_at < ?", models.StatusCompleted, cutoff).
		Find(&stale).Error; err != nil {
		log.Fatalf("Failed to list stale tasks: %v", err)
	}

	if dryRun {
		fmt.Printf("Would delete %d completed tasks older than %s\n", len(stale), cutoff.Format("2006-01-02"))
		return
	}

	for _, task := range stale {
		if task.ImagePath != nil {
			removeBlob(*task.ImagePath)
		}
		if err := database.DB.Delete(&task).Error; err != nil {
			log.Fatalf("Failed to delete task %d: %v", task.ID, err)
		}
	}
	fmt.Printf("✅ Deleted %d completed tasks older than %d days\n", len(stale), retentionDays)
}

// sweepOrphanedImages removes files under the uploads dir that no task row
// references. Crash windows between a blob write and its row can leave these.
func sweepOrphanedImages(dryRun bool) {
	var paths []string
	if err := database.DB.Model(&models.Task{}).
		Where("image_path IS NOT NULL").
		Pluck("image_path", &paths).Error; err != nil {
		log.Fatalf("Failed to list referenced images: %v", err)
	}

	referenced := make(map[string]bool, len(paths))
	for _, p := range paths {
		referenced[filepath.FromSlash(p)] = true
	}

	base := handlers.UploadsBaseDir()
	tasksDir := filepath.Join(base, "tasks")
	entries, err := os.ReadDir(tasksDir)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("✅ No uploads directory, nothing to sweep")
			return
		}
		log.Fatalf("Failed to read uploads directory: %v", err)
	}

	orphans := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		rel := filepath.Join("tasks", entry.Name())
		if referenced[rel] {
			continue
		}
		orphans++
		if dryRun {
			fmt.Printf("Would remove orphaned image %s\n", rel)
			continue
		}
		removeBlob(rel)
	}

	if dryRun {
		fmt.Printf("Would remove %d orphaned images\n", orphans)
	} else {
		fmt.Printf("✅ Removed %d orphaned images\n", orphans)
	}
}

func removeBlob(relPath string) {
	fullPath := filepath.Join(handlers.UploadsBaseDir(), filepath.FromSlash(relPath))
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		log.Printf("⚠️ Failed to remove %s: %v", relPath, err)
	}
}
