package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/uni-attendance-api/internal/models"
	"github.com/noah-isme/uni-attendance-api/internal/repository"
	"github.com/noah-isme/uni-attendance-api/pkg/config"
	"github.com/noah-isme/uni-attendance-api/pkg/database"
	"github.com/noah-isme/uni-attendance-api/pkg/logger"
)

// Applies the embedded schema and optionally bootstraps the first admin account.
//
//	migrate -admin-email admin@uni.edu -admin-name "Registrar"
//
// The admin password is read from ADMIN_PASSWORD.
func main() {
	adminEmail := flag.String("admin-email", "", "create an admin with this email when none exists")
	adminName := flag.String("admin-name", "Administrator", "display name for the bootstrapped admin")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(ctx, db, logr); err != nil {
		logr.Fatal("migration failed", zap.Error(err))
	}

	if *adminEmail == "" {
		return
	}
	if err := bootstrapAdmin(ctx, repository.NewUserRepository(db), *adminEmail, *adminName, os.Getenv("ADMIN_PASSWORD"), logr); err != nil {
		logr.Fatal("admin bootstrap failed", zap.Error(err))
	}
}

type adminStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

func bootstrapAdmin(ctx context.Context, users adminStore, email, name, password string, logr *zap.Logger) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if len(password) < 8 {
		return errors.New("ADMIN_PASSWORD must be at least 8 characters")
	}

	existing, err := users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		logr.Info("admin already exists", zap.String("email", existing.Email), zap.String("role", string(existing.Role)))
		return nil
	case !errors.Is(err, sql.ErrNoRows):
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     name,
		Role:         models.RoleAdmin,
		Active:       true,
	}
	if err := users.Create(ctx, admin); err != nil {
		return err
	}
	logr.Info("admin created", zap.String("id", admin.ID), zap.String("email", admin.Email))
	return nil
}
