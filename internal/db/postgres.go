package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/skillpath/skillpath-backend/internal/logger"
	"github.com/skillpath/skillpath-backend/internal/types"
	"github.com/skillpath/skillpath-backend/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	log.Info("Loading environment variables...")
	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := utils.GetEnv("POSTGRES_NAME", "skillpath", log)
	log.Debug("Environment variables loaded")

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	log.Info("Connecting to Postgres...")
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		log.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		log.Error("Failed to enable uuid-ossp extension", "error", err)
		return nil, fmt.Errorf("enable uuid-ossp extension: %w", err)
	}
	log.Info("uuid-ossp extension enabled")

	return &PostgresService{db: db, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&types.User{},
		&types.UserToken{},
		&types.Skill{},
		&types.SkillTopic{},
		&types.Task{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}
	s.log.Info("Configuring foreign key relationships for postgres tables...")
	constraints := []struct {
		name string
		stmt string
	}{
		{
			name: "fk_user_token_user_id",
			stmt: `ALTER TABLE "user_token"
				ADD CONSTRAINT "fk_user_token_user_id"
				FOREIGN KEY ("user_id")
				REFERENCES "user"("id")
				ON DELETE CASCADE`,
		},
		{
			name: "fk_skill_user_id",
			stmt: `ALTER TABLE "skill"
				ADD CONSTRAINT "fk_skill_user_id"
				FOREIGN KEY ("user_id")
				REFERENCES "user"("id")
				ON DELETE CASCADE`,
		},
		{
			name: "fk_skill_topic_skill_id",
			stmt: `ALTER TABLE "skill_topic"
				ADD CONSTRAINT "fk_skill_topic_skill_id"
				FOREIGN KEY ("skill_id")
				REFERENCES "skill"("id")
				ON DELETE CASCADE`,
		},
		{
			name: "fk_task_user_id",
			stmt: `ALTER TABLE "task"
				ADD CONSTRAINT "fk_task_user_id"
				FOREIGN KEY ("user_id")
				REFERENCES "user"("id")
				ON DELETE CASCADE`,
		},
	}
	for _, fk := range constraints {
		exists := false
		row := s.db.Raw(`SELECT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = ?)`, fk.name).Row()
		if err := row.Scan(&exists); err != nil {
			return fmt.Errorf("check constraint %s: %w", fk.name, err)
		}
		if exists {
			continue
		}
		if err := s.db.Exec(fk.stmt).Error; err != nil {
			return fmt.Errorf("add %s: %w", fk.name, err)
		}
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
