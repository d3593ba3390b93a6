package database

import "github.com/vitalboard/server/internal/models"

func allModels() []any {
	return []any{
		&models.Profile{},
	}
}
