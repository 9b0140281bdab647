package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/academictracker/api/internal/audit"
	"github.com/academictracker/api/internal/config"
	"github.com/academictracker/api/internal/database"
	"github.com/academictracker/api/internal/logger"
	"github.com/academictracker/api/internal/password"
	"github.com/academictracker/api/internal/revocation"
	"github.com/academictracker/api/internal/services/academic"
	"github.com/academictracker/api/internal/services/auth"
	"github.com/academictracker/api/internal/services/events"
	"github.com/academictracker/api/internal/services/grades"
	"github.com/academictracker/api/internal/store"
	"github.com/academictracker/api/internal/token"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// seed creates a demo student with a small term of sample data. Running it
// twice is harmless: an existing demo account is left as is.
func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zapLogger, err := logger.New(cfg.App.Environment)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zapLogger.Sync() //nolint:errcheck

	ctx := context.Background()
	pool, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		zapLogger.Fatal("database connection", zap.Error(err))
	}
	defer pool.Close()

	if err := database.RunMigrations(cfg.Database.URL, zapLogger); err != nil {
		zapLogger.Fatal("migrations", zap.Error(err))
	}

	demoPassword := os.Getenv("SEED_DEMO_PASSWORD")
	if demoPassword == "" {
		demoPassword = "tracker-demo-2025"
		zapLogger.Warn("using default demo password - set SEED_DEMO_PASSWORD outside development")
	}

	st := store.New(pool)
	tokenSvc, err := token.NewService(cfg.Token)
	if err != nil {
		zapLogger.Fatal("token service", zap.Error(err))
	}
	authSvc := auth.New(auth.Dependencies{
		Users:    st.Users,
		TokenSvc: tokenSvc,
		Hasher:   password.NewHasher(cfg.Security),
		Revoker:  revocation.NewMemory(),
		Auditor:  audit.New(st.AuditLog, zapLogger),
		Logger:   zapLogger,
		Security: cfg.Security,
	})

	res, err := authSvc.Signup(ctx, auth.SignupInput{Name: "Demo Student", Email: "demo@academic-tracker.local", Password: demoPassword})
	if errors.Is(err, auth.ErrEmailAlreadyExists) {
		zapLogger.Info("demo account already present, nothing to seed")
		return
	}
	if err != nil {
		zapLogger.Fatal("create demo user", zap.Error(err))
	}
	userID := res.User.ID

	if err := seedData(ctx, st, zapLogger, userID); err != nil {
		zapLogger.Fatal("seeding", zap.Error(err))
	}
	zapLogger.Info("seeding completed", zap.Stringer("user_id", userID))
}

func seedData(ctx context.Context, st *store.Store, zapLogger *zap.Logger, userID uuid.UUID) error {
	eventSvc := events.New(st.Events, zapLogger)
	gradeSvc := grades.New(st.Grades, zapLogger)
	recordSvc := academic.New(st.Records, zapLogger)

	term := "Fall 2025"
	courses := []struct{ code, name, instructor string }{
		{"CS101", "Introduction to Programming", "Dr. Hopper"},
		{"MATH201", "Linear Algebra", "Prof. Noether"},
	}
	for _, c := range courses {
		status, credits := "in_progress", 4.0
		if _, err := recordSvc.Create(ctx, userID, academic.Input{
			CourseCode: &c.code, CourseName: &c.name, Credits: &credits,
			Term: &term, Status: &status, Instructor: &c.instructor,
		}); err != nil {
			return fmt.Errorf("seed record %s: %w", c.code, err)
		}
	}

	midterm, quiz := "Midterm", "Quiz 1"
	score, maxScore, weight := 86.0, 100.0, 30.0
	quizScore, quizWeight := 9.0, 5.0
	quizMax := 10.0
	if _, err := gradeSvc.Create(ctx, userID, grades.Input{Course: &courses[0].code, Assessment: &midterm, Score: &score, MaxScore: &maxScore, Weight: &weight, Term: &term}); err != nil {
		return fmt.Errorf("seed grade: %w", err)
	}
	if _, err := gradeSvc.Create(ctx, userID, grades.Input{Course: &courses[1].code, Assessment: &quiz, Score: &quizScore, MaxScore: &quizMax, Weight: &quizWeight, Term: &term}); err != nil {
		return fmt.Errorf("seed grade: %w", err)
	}

	start := time.Now().UTC().Truncate(time.Hour).Add(72 * time.Hour)
	end := start.Add(2 * time.Hour)
	title, kind, location := "Linear Algebra final", "exam", "Hall B"
	if _, err := eventSvc.Create(ctx, userID, events.Input{Title: &title, Type: &kind, StartsAt: &start, EndsAt: &end, Location: &location}); err != nil {
		return fmt.Errorf("seed event: %w", err)
	}
	due := start.Add(-48 * time.Hour)
	hw, hwKind := "CS101 problem set 3", "assignment"
	if _, err := eventSvc.Create(ctx, userID, events.Input{Title: &hw, Type: &hwKind, StartsAt: &due}); err != nil {
		return fmt.Errorf("seed event: %w", err)
	}
	return nil
}
