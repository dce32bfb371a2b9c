package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var botConfigColumnNames = []string{"symbol", "current_level", "is_enabled", "min_delta", "max_delta", "updated_at", "created_at"}

func TestBotConfigRepositoryGet(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		mockSetup   func(mock sqlmock.Sqlmock)
		expectLevel string
		expectError error
	}{
		{
			name: "success",
			mockSetup: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(botConfigColumnNames).
					AddRow("SPXW", "L2", true, 0.08, 0.15, now, now)
				mock.ExpectQuery(`SELECT .+ FROM bot_config WHERE symbol = \$1`).
					WithArgs("SPXW").
					WillReturnRows(rows)
			},
			expectLevel: "L2",
		},
		{
			name: "null columns",
			mockSetup: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(botConfigColumnNames).
					AddRow(nil, "L1", nil, nil, nil, nil, nil)
				mock.ExpectQuery(`SELECT .+ FROM bot_config WHERE symbol = \$1`).
					WithArgs("SPXW").
					WillReturnRows(rows)
			},
			expectLevel: "L1",
		},
		{
			name: "not found",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT .+ FROM bot_config WHERE symbol = \$1`).
					WithArgs("SPXW").
					WillReturnError(sql.ErrNoRows)
			},
			expectError: ErrBotConfigNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("failed to create mock: %v", err)
			}
			defer db.Close()
			tt.mockSetup(mock)

			repo := NewBotConfigRepository(db)
			cfg, err := repo.Get(context.Background(), spxPartition)

			if tt.expectError != nil {
				if !errors.Is(err, tt.expectError) {
					t.Errorf("expected %v, got %v", tt.expectError, err)
				}
			} else {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if cfg.CurrentLevel != tt.expectLevel || cfg.Symbol != "SPXW" {
					t.Errorf("unexpected config: %+v", cfg)
				}
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestBotConfigRepositoryUpdateLevel(t *testing.T) {
	now := time.Now()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows(botConfigColumnNames).
		AddRow("RUT", "L3", true, 0.1, 0.2, now, now)
	mock.ExpectQuery(`UPDATE bot_config SET current_level = \$1, updated_at = \$2 WHERE symbol = \$3 RETURNING`).
		WithArgs("L3", sqlmock.AnyArg(), "RUT").
		WillReturnRows(rows)

	repo := NewBotConfigRepository(db)
	cfg, err := repo.UpdateLevel(context.Background(), rutPartition, "L3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.CurrentLevel != "L3" || !cfg.Enabled {
		t.Errorf("unexpected config: %+v", cfg)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestBotConfigRepositoryUpdateLevel_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`UPDATE bot_config`).
		WithArgs("L3", sqlmock.AnyArg(), "RUT").
		WillReturnError(sql.ErrNoRows)

	repo := NewBotConfigRepository(db)
	if _, err := repo.UpdateLevel(context.Background(), rutPartition, "L3"); !errors.Is(err, ErrBotConfigNotFound) {
		t.Errorf("expected ErrBotConfigNotFound, got %v", err)
	}
}
