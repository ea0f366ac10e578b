package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aayseekaya/CounselEase/cmd/api"
	"github.com/aayseekaya/CounselEase/cmd/models"
	"github.com/aayseekaya/CounselEase/db"
	"gorm.io/gorm"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			runMigrations()
			return
		case "clear-db":
			runDatabaseClear()
			return
		default:
			log.Fatalf("Unknown command: %s", os.Args[1])
		}
	}

	startServer()
}

func runMigrations() {
	DB, err := db.NewPSQLStorage()
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer func() {
		sqlDB, _ := DB.DB()
		sqlDB.Close()
		log.Println("Database connection closed")
	}()
	log.Println("Connected to the database for migrations")

	if err := performMigrations(DB); err != nil {
		log.Fatalf("Migration error: %v", err)
	}
	log.Println("Migrations completed successfully")
}

func performMigrations(DB *gorm.DB) error {
	migrations := []struct {
		model interface{}
		name  string
	}{
		{&models.User{}, "User"},
		{&models.Expert{}, "Expert"},
		{&models.ExpertSchedule{}, "ExpertSchedule"},
		{&models.Appointment{}, "Appointment"},
		{&models.SubscriptionPlan{}, "SubscriptionPlan"},
		{&models.Subscription{}, "Subscription"},
		{&models.Payment{}, "Payment"},
		{&models.Invoice{}, "Invoice"},
		{&models.Notification{}, "Notification"},
	}

	log.Println("Starting database migrations...")
	for _, migration := range migrations {
		log.Printf("Migrating %s table...", migration.name)
		if err := DB.AutoMigrate(migration.model); err != nil {
			return fmt.Errorf("error migrating %s table: %w", migration.name, err)
		}
		log.Printf("%s migration successful", migration.name)
	}

	log.Println("All migrations completed successfully")
	return nil
}

func startServer() {
	DB, err := db.NewPSQLStorage()
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer func() {
		sqlDB, _ := DB.DB()
		sqlDB.Close()
		log.Println("Database connection closed")
	}()
	log.Println("Connected to the database")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	server := api.NewApiServer(":"+port, DB)

	go func() {
		if err := server.Run(); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()
	log.Printf("Server running on port %s", port)

	<-quit
	log.Println("Shutting down server...")
}

func clearDatabase(DB *gorm.DB, tables []interface{}) error {
	if len(tables) == 0 {
		tables = []interface{}{
			&models.Notification{},
			&models.Invoice{},
			&models.Payment{},
			&models.Subscription{},
			&models.SubscriptionPlan{},
			&models.Appointment{},
			&models.ExpertSchedule{},
			&models.Expert{},
			&models.User{},
		}
	}

	log.Println("Dropping tables...")

	for _, table := range tables {
		if err := DB.Migrator().DropTable(table); err != nil {
			log.Printf("Warning dropping table %T: %v", table, err)
		} else {
			log.Printf("Table %T dropped", table)
		}
	}

	return nil
}

func runDatabaseClear() {
	DB, err := db.NewPSQLStorage()
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer func() {
		sqlDB, _ := DB.DB()
		sqlDB.Close()
		log.Println("Database connection closed")
	}()

	log.Println("Preparing to clear database...")

	var confirmation string
	fmt.Print("Are you sure you want to clear the database? (yes/no): ")
	fmt.Scanln(&confirmation)

	if confirmation != "yes" {
		log.Println("Database clearing cancelled.")
		return
	}

	var tableNames string
	fmt.Print("Enter table names to clear (comma separated) or leave blank to clear all: ")
	fmt.Scanln(&tableNames)

	var tables []interface{}
	if tableNames != "" {
		for _, table := range strings.Split(tableNames, ",") {
			switch strings.TrimSpace(table) {
			case "User":
				tables = append(tables, &models.User{})
			case "Expert":
				tables = append(tables, &models.Expert{})
			case "ExpertSchedule":
				tables = append(tables, &models.ExpertSchedule{})
			case "Appointment":
				tables = append(tables, &models.Appointment{})
			case "SubscriptionPlan":
				tables = append(tables, &models.SubscriptionPlan{})
			case "Subscription":
				tables = append(tables, &models.Subscription{})
			case "Payment":
				tables = append(tables, &models.Payment{})
			case "Invoice":
				tables = append(tables, &models.Invoice{})
			case "Notification":
				tables = append(tables, &models.Notification{})
			default:
				log.Printf("Unknown table: %s", table)
			}
		}
	}

	if err := clearDatabase(DB, tables); err != nil {
		log.Fatalf("Error clearing database: %v", err)
	}

	log.Println("Database cleared successfully")
}
